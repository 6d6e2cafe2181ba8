// Package engineerr collects the error taxonomy of spec.md §7 as sentinel
// errors, so every engine component and the HTTP adapter report the same
// vocabulary — the same role booking.go's ErrCabFull/ErrNoMatch family
// plays in the teacher.
package engineerr

import "errors"

// Kind is one of the six error categories spec.md §7 distinguishes.
type Kind string

const (
	// KindInputInvalid marks a route or entity that failed validation
	// before Phase 1 (non-positive distance, end before start, empty
	// segment list, unknown location id). Fatal: aborts the run.
	KindInputInvalid Kind = "InputInvalid"
	// KindNoPath marks a relocation that has no direct graph edge.
	// Recovered locally per candidate.
	KindNoPath Kind = "NoPath"
	// KindUnassignable marks a route with no feasible vehicle.
	// Recovered locally; the run continues.
	KindUnassignable Kind = "Unassignable"
	// KindLifetimeExceeded marks a candidate that would cross its
	// lifetime contract limit. Never overridden.
	KindLifetimeExceeded Kind = "LifetimeExceeded"
	// KindCancelled marks cooperative run cancellation.
	KindCancelled Kind = "Cancelled"
	// KindInternal marks an invariant violation. Fatal.
	KindInternal Kind = "Internal"
)

var (
	ErrInputInvalid     = errors.New("engine: invalid input")
	ErrNoPath           = errors.New("engine: no direct relocation path")
	ErrUnassignable     = errors.New("engine: no feasible vehicle for route")
	ErrLifetimeExceeded = errors.New("engine: lifetime contract limit would be exceeded")
	ErrCancelled        = errors.New("engine: run cancelled")
	ErrInternal         = errors.New("engine: invariant violation")
)

// KindOf maps a sentinel error to its Kind. Returns ("", false) for errors
// outside the taxonomy.
func KindOf(err error) (Kind, bool) {
	switch {
	case errors.Is(err, ErrInputInvalid):
		return KindInputInvalid, true
	case errors.Is(err, ErrNoPath):
		return KindNoPath, true
	case errors.Is(err, ErrUnassignable):
		return KindUnassignable, true
	case errors.Is(err, ErrLifetimeExceeded):
		return KindLifetimeExceeded, true
	case errors.Is(err, ErrCancelled):
		return KindCancelled, true
	case errors.Is(err, ErrInternal):
		return KindInternal, true
	default:
		return "", false
	}
}

// IsFatal reports whether an error of this Kind should abort the run
// (InputInvalid, Internal) rather than be recovered locally.
func IsFatal(k Kind) bool {
	return k == KindInputInvalid || k == KindInternal
}
