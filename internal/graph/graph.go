// Package graph indexes the location-relation edges for O(1) lookup of
// (from, to) -> (distance_km, time_hours), spec.md §4.1. Construction
// ingests the edge list as-is; no symmetric closure is assumed. A bounded,
// process-local LRU cache wraps lookups as a pure performance aid (spec.md
// §5) — it never changes what Lookup returns, only how fast a repeated
// lookup comes back.
package graph

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

// edgeKey is the lookup key for both the primary index and the LRU cache.
type edgeKey struct {
	From int64
	To   int64
}

// Graph is the immutable, freely-shareable relation index. Once built its
// edge set is never mutated, matching spec.md §5's "Graph Index is
// immutable after construction — freely shared." Only the LRU cache
// (itself safe for concurrent use) and the atomic hit/miss counters change
// on Lookup.
type Graph struct {
	edges map[edgeKey]model.LocationEdge
	cache *lru.Cache[edgeKey, model.LocationEdge]

	hits   int64
	misses int64
}

// New builds a Graph with no cache — every Lookup hits the map directly,
// which is already O(1).
func New(edges []model.LocationEdge) *Graph {
	g := &Graph{edges: make(map[edgeKey]model.LocationEdge, len(edges))}
	for _, e := range edges {
		g.edges[edgeKey{From: e.FromID, To: e.ToID}] = e
	}
	return g
}

// NewWithCache builds a Graph backed by a bounded LRU cache of the given
// size. size <= 0 disables the in-process cache entirely.
func NewWithCache(edges []model.LocationEdge, size int) (*Graph, error) {
	g := New(edges)
	if size <= 0 {
		return g, nil
	}
	cache, err := lru.New[edgeKey, model.LocationEdge](size)
	if err != nil {
		return nil, err
	}
	g.cache = cache
	return g, nil
}

// Lookup returns the edge from -> to, or ok=false if no direct relocation
// path exists. Missing edge means the candidate vehicle is infeasible for
// that route unless already at the route start (spec.md §4.1).
//
// Complexity: O(1) expected, with or without the cache layer.
func (g *Graph) Lookup(from, to int64) (model.LocationEdge, bool) {
	key := edgeKey{From: from, To: to}

	if g.cache != nil {
		if edge, ok := g.cache.Get(key); ok {
			atomic.AddInt64(&g.hits, 1)
			return edge, true
		}
	}

	edge, ok := g.edges[key]
	atomic.AddInt64(&g.misses, 1)
	if ok && g.cache != nil {
		g.cache.Add(key, edge)
	}
	return edge, ok
}

// Stats returns the cumulative cache hit/miss counters (in-process cache
// only). Intended for run-summary diagnostics, not correctness.
func (g *Graph) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&g.hits), atomic.LoadInt64(&g.misses)
}

// Len returns the number of edges indexed.
func (g *Graph) Len() int {
	return len(g.edges)
}
