// Package observability tracks routing statistics for monitoring and
// capacity planning.
package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/tesseradb/tessera/pkg/types"
)

// RouteStats tracks per-root routing outcomes.
type RouteStats struct {
	mu     sync.RWMutex
	roots  map[types.TableID]*TableRouteStats
	window time.Duration
}

// TableRouteStats holds routing statistics for one root table.
type TableRouteStats struct {
	Table        types.TableID
	Routes       int64
	Failures     int64
	TotalLatency time.Duration
	LastSeen     time.Time
	Leaves       map[types.TableID]int64 // leaf table → rows routed there
}

// NewRouteStats creates a new statistics tracker.
// window: time duration for pruning idle entries (e.g., 1 hour)
func NewRouteStats(window time.Duration) *RouteStats {
	return &RouteStats{
		roots:  make(map[types.TableID]*TableRouteStats),
		window: window,
	}
}

// RecordRoute records one successfully routed row.
// This method is O(1) and thread-safe.
func (r *RouteStats) RecordRoute(root, leaf types.TableID, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.statsFor(root)
	stats.Routes++
	stats.TotalLatency += latency
	stats.LastSeen = time.Now()
	stats.Leaves[leaf]++
}

// RecordFailure records a row no partition accepted.
func (r *RouteStats) RecordFailure(root types.TableID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.statsFor(root)
	stats.Failures++
	stats.LastSeen = time.Now()
}

// statsFor returns the entry for a root, creating it if needed. Callers
// must hold the write lock.
func (r *RouteStats) statsFor(root types.TableID) *TableRouteStats {
	stats, ok := r.roots[root]
	if !ok {
		stats = &TableRouteStats{
			Table:  root,
			Leaves: make(map[types.TableID]int64),
		}
		r.roots[root] = stats
	}
	return stats
}

// Top returns the busiest roots by route count, descending. The result
// is a deep copy.
func (r *RouteStats) Top(n int) []TableRouteStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || len(r.roots) == 0 {
		return []TableRouteStats{}
	}

	out := make([]TableRouteStats, 0, len(r.roots))
	for _, s := range r.roots {
		cp := TableRouteStats{
			Table:        s.Table,
			Routes:       s.Routes,
			Failures:     s.Failures,
			TotalLatency: s.TotalLatency,
			LastSeen:     s.LastSeen,
			Leaves:       make(map[types.TableID]int64, len(s.Leaves)),
		}
		for leaf, count := range s.Leaves {
			cp.Leaves[leaf] = count
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Routes > out[j].Routes
	})
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Get returns a copy of one root's statistics.
func (r *RouteStats) Get(root types.TableID) (TableRouteStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.roots[root]
	if !ok {
		return TableRouteStats{}, false
	}
	cp := TableRouteStats{
		Table:        s.Table,
		Routes:       s.Routes,
		Failures:     s.Failures,
		TotalLatency: s.TotalLatency,
		LastSeen:     s.LastSeen,
		Leaves:       make(map[types.TableID]int64, len(s.Leaves)),
	}
	for leaf, count := range s.Leaves {
		cp.Leaves[leaf] = count
	}
	return cp, true
}

// Prune removes entries where time.Since(LastSeen) > window.
// This should be called periodically (e.g., every 5 minutes).
func (r *RouteStats) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := time.Now().Add(-r.window)
	for root, stats := range r.roots {
		if stats.LastSeen.Before(threshold) {
			delete(r.roots, root)
		}
	}
}
