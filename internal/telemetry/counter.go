// Package telemetry keeps local usage counters: per-source daily call
// counts and aggregate query statistics. Nothing leaves the machine.
package telemetry

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// dayLayout is the UTC day key used in memory and in SQLite.
const dayLayout = "2006-01-02"

// SourceCount is one source's tally for a day.
type SourceCount struct {
	Source   string `json:"source"`
	Calls    int64  `json:"calls"`
	Failures int64  `json:"failures"`
	Results  int64  `json:"results"`
}

// DailySnapshot is the per-source tally for one UTC day, sorted by source.
type DailySnapshot struct {
	Day     string        `json:"day"`
	Sources []SourceCount `json:"sources"`
}

// Empty reports whether nothing was counted.
func (s DailySnapshot) Empty() bool {
	for _, c := range s.Sources {
		if c.Calls > 0 || c.Failures > 0 || c.Results > 0 {
			return false
		}
	}
	return true
}

type sourceCounter struct {
	calls    atomic.Int64
	failures atomic.Int64
	results  atomic.Int64
}

// CallCounter counts source calls per UTC day. When the day changes the
// previous day's counts are handed to the rollover hook and the counter
// starts from zero.
type CallCounter struct {
	mu       sync.RWMutex
	day      string
	counts   map[string]*sourceCounter
	now      func() time.Time
	rollover func(DailySnapshot)
}

// CounterOption configures a CallCounter.
type CounterOption func(*CallCounter)

// WithClock sets the time source.
func WithClock(now func() time.Time) CounterOption {
	return func(c *CallCounter) { c.now = now }
}

// WithRollover registers fn to receive each finished day.
func WithRollover(fn func(DailySnapshot)) CounterOption {
	return func(c *CallCounter) { c.rollover = fn }
}

// NewCallCounter returns an empty counter for the current UTC day.
func NewCallCounter(opts ...CounterOption) *CallCounter {
	c := &CallCounter{
		counts: make(map[string]*sourceCounter),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.day = c.today()
	return c
}

func (c *CallCounter) today() string {
	return c.now().UTC().Format(dayLayout)
}

// Record counts one call to source. A non-nil err counts as a failure.
func (c *CallCounter) Record(source string, results int, err error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return
	}
	c.roll()

	sc := c.entry(source)
	sc.calls.Add(1)
	if err != nil {
		sc.failures.Add(1)
	}
	if results > 0 {
		sc.results.Add(int64(results))
	}
}

func (c *CallCounter) entry(source string) *sourceCounter {
	c.mu.RLock()
	sc, ok := c.counts[source]
	c.mu.RUnlock()
	if ok {
		return sc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sc, ok = c.counts[source]; !ok {
		sc = &sourceCounter{}
		c.counts[source] = sc
	}
	return sc
}

// roll starts a new day if the UTC date moved since the last call.
func (c *CallCounter) roll() {
	today := c.today()
	c.mu.RLock()
	same := c.day == today
	c.mu.RUnlock()
	if same {
		return
	}

	c.mu.Lock()
	if c.day == today {
		c.mu.Unlock()
		return
	}
	finished := c.snapshotLocked(false)
	c.day = today
	c.counts = make(map[string]*sourceCounter)
	hook := c.rollover
	c.mu.Unlock()

	if hook != nil && !finished.Empty() {
		hook(finished)
	}
}

// Snapshot returns today's counts without clearing them.
func (c *CallCounter) Snapshot() DailySnapshot {
	c.roll()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(false)
}

// Drain returns today's counts and zeroes them atomically per counter, so
// concurrent Record calls are never lost between a read and a reset.
func (c *CallCounter) Drain() DailySnapshot {
	c.roll()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(true)
}

// Reset zeroes every counter. Calling it twice is the same as once.
func (c *CallCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day = c.today()
	c.counts = make(map[string]*sourceCounter)
}

// Day returns the UTC day being counted.
func (c *CallCounter) Day() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.day
}

func (c *CallCounter) snapshotLocked(drain bool) DailySnapshot {
	snap := DailySnapshot{Day: c.day, Sources: make([]SourceCount, 0, len(c.counts))}
	for name, sc := range c.counts {
		var count SourceCount
		if drain {
			count = SourceCount{Source: name, Calls: sc.calls.Swap(0), Failures: sc.failures.Swap(0), Results: sc.results.Swap(0)}
		} else {
			count = SourceCount{Source: name, Calls: sc.calls.Load(), Failures: sc.failures.Load(), Results: sc.results.Load()}
		}
		snap.Sources = append(snap.Sources, count)
	}
	slices.SortFunc(snap.Sources, func(a, b SourceCount) int {
		return strings.Compare(a.Source, b.Source)
	})
	return snap
}
