package cache

import "sync/atomic"

// Stats counts cache outcomes. Every lookup is exactly one hit or one
// miss; a backend error on lookup counts as both an error and a miss.
type Stats struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	Errors          int64   `json:"errors"`
	TotalOperations int64   `json:"total_operations"`
	HitRate         float64 `json:"hit_rate"`
}

// RecordHit counts a hit.
func (s *Stats) RecordHit() { s.hits.Add(1) }

// RecordMiss counts a miss.
func (s *Stats) RecordMiss() { s.misses.Add(1) }

// RecordError counts a backend error.
func (s *Stats) RecordError() { s.errors.Add(1) }

// Snapshot returns the current counts. HitRate is hits/(hits+misses), or 0
// before any lookup.
func (s *Stats) Snapshot() StatsSnapshot {
	hits := s.hits.Load()
	misses := s.misses.Load()
	snap := StatsSnapshot{
		Hits:            hits,
		Misses:          misses,
		Errors:          s.errors.Load(),
		TotalOperations: hits + misses,
	}
	if snap.TotalOperations > 0 {
		snap.HitRate = float64(hits) / float64(snap.TotalOperations)
	}
	return snap
}

// Reset zeroes every counter. Calling it repeatedly is harmless.
func (s *Stats) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.errors.Store(0)
}
