// Package runcontrol provides rundriver.CancelSignal implementations: the
// cooperative cancellation flag spec.md §5 requires the Run Driver to poll
// between routes, either in-process or, via Redis, from an operator action
// taken in a separate process (the same deployment shape the teacher's
// cancel.go responds to for a rider-initiated cancellation).
package runcontrol

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// LocalSignal is an in-process cancellation flag, set by calling Cancel.
type LocalSignal struct {
	ch   chan struct{}
	once sync.Once
}

// NewLocalSignal builds an unset LocalSignal.
func NewLocalSignal() *LocalSignal {
	return &LocalSignal{ch: make(chan struct{})}
}

// Cancel marks the signal as set. Safe to call more than once.
func (s *LocalSignal) Cancel() {
	s.once.Do(func() { close(s.ch) })
}

// Cancelled implements rundriver.CancelSignal.
func (s *LocalSignal) Cancelled(context.Context) bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// RedisSignal polls a Redis key for a cancellation flag set by an operator
// (or another process) outside the run itself.
type RedisSignal struct {
	client *redis.Client
	key    string
}

// NewRedisSignal builds a RedisSignal polling the given key (typically
// scoped by run id, e.g. "fleet:run:42:cancel").
func NewRedisSignal(client *redis.Client, key string) *RedisSignal {
	return &RedisSignal{client: client, key: key}
}

// Cancelled implements rundriver.CancelSignal. A Redis error is treated as
// "not cancelled" rather than aborting the run on a transient network
// hiccup — cancellation is advisory, not a correctness requirement.
func (s *RedisSignal) Cancelled(ctx context.Context) bool {
	exists, err := s.client.Exists(ctx, s.key).Result()
	if err != nil {
		log.Printf("[runcontrol] cancel-signal check failed, treating as not cancelled: %v", err)
		return false
	}
	return exists > 0
}

// Set marks the run for cancellation.
func (s *RedisSignal) Set(ctx context.Context) error {
	return s.client.Set(ctx, s.key, "1", 0).Err()
}

// Clear removes the cancellation flag, e.g. once a run has finished.
func (s *RedisSignal) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
