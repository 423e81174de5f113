package telemetry

import (
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a coarse aggregation latency bucket.
type LatencyBucket string

const (
	BucketUnder1s  LatencyBucket = "lt_1s"
	BucketUnder3s  LatencyBucket = "lt_3s"
	BucketUnder8s  LatencyBucket = "lt_8s"
	BucketUnder15s LatencyBucket = "lt_15s"
	BucketOver15s  LatencyBucket = "ge_15s"
)

// LatencyToBucket maps an aggregation duration to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Second:
		return BucketUnder1s
	case d < 3*time.Second:
		return BucketUnder3s
	case d < 8*time.Second:
		return BucketUnder8s
	case d < 15*time.Second:
		return BucketUnder15s
	default:
		return BucketOver15s
	}
}

// QueryEvent describes one finished aggregation.
type QueryEvent struct {
	Query   string
	Records int
	Level   string
	Latency time.Duration
}

// TermCount is a query term and how often it was seen.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QuerySnapshot is a point-in-time copy of QueryStats.
type QuerySnapshot struct {
	Total        int64                   `json:"total"`
	NoEvidence   int64                   `json:"no_evidence"`
	Levels       map[string]int64        `json:"levels"`
	Latency      map[LatencyBucket]int64 `json:"latency"`
	TopTerms     []TermCount             `json:"top_terms"`
	RecentMisses []string                `json:"recent_misses"`
	Since        time.Time               `json:"since"`
}

// CircularBuffer is a fixed-capacity FIFO.
type CircularBuffer[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
	size  int
}

// NewCircularBuffer returns a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity)}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Items returns the contents oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, 0, b.size)
	start := (b.head - b.size + len(b.items)) % len(b.items)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%len(b.items)])
	}
	return out
}

// QueryStats aggregates query outcomes in memory.
type QueryStats struct {
	mu         sync.Mutex
	total      int64
	noEvidence int64
	levels     map[string]int64
	latency    map[LatencyBucket]int64
	terms      *lru.Cache[string, int64]
	misses     *CircularBuffer[string]
	since      time.Time
}

// NewQueryStats tracks up to termCapacity distinct terms and the last
// missCapacity queries that found no evidence.
func NewQueryStats(termCapacity, missCapacity int) *QueryStats {
	if termCapacity <= 0 {
		termCapacity = 200
	}
	terms, _ := lru.New[string, int64](termCapacity)
	return &QueryStats{
		levels:  make(map[string]int64),
		latency: make(map[LatencyBucket]int64),
		terms:   terms,
		misses:  NewCircularBuffer[string](missCapacity),
		since:   time.Now(),
	}
}

// Record adds one finished query.
func (s *QueryStats) Record(e QueryEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if e.Records == 0 {
		s.noEvidence++
		s.misses.Add(e.Query)
	}
	if e.Level != "" {
		s.levels[e.Level]++
	}
	s.latency[LatencyToBucket(e.Latency)]++

	for _, term := range ExtractTerms(e.Query) {
		n, _ := s.terms.Get(term)
		s.terms.Add(term, n+1)
	}
}

// Snapshot copies the current statistics. TopTerms holds at most
// topN entries, most frequent first.
func (s *QueryStats) Snapshot(topN int) QuerySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := QuerySnapshot{
		Total:        s.total,
		NoEvidence:   s.noEvidence,
		Levels:       make(map[string]int64, len(s.levels)),
		Latency:      make(map[LatencyBucket]int64, len(s.latency)),
		RecentMisses: s.misses.Items(),
		Since:        s.since,
	}
	for k, v := range s.levels {
		snap.Levels[k] = v
	}
	for k, v := range s.latency {
		snap.Latency[k] = v
	}

	for _, term := range s.terms.Keys() {
		if n, ok := s.terms.Peek(term); ok {
			snap.TopTerms = append(snap.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	slices.SortStableFunc(snap.TopTerms, func(a, b TermCount) int {
		if a.Count != b.Count {
			if a.Count > b.Count {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Term, b.Term)
	})
	if topN > 0 && len(snap.TopTerms) > topN {
		snap.TopTerms = snap.TopTerms[:topN]
	}
	return snap
}

// ExtractTerms lowercases query and keeps words of three or more letters.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}
