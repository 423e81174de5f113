package telemetry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func TestCallCounter_RecordAndSnapshot(t *testing.T) {
	// Given: a counter on a fixed day
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := NewCallCounter(WithClock(clock.Now))

	// When: recording calls for two sources
	c.Record("pubmed", 5, nil)
	c.Record("pubmed", 0, errors.New("timeout"))
	c.Record("cochrane", 2, nil)
	c.Record("  ", 9, nil)

	// Then: counts are per source, sorted, and blank names are ignored
	snap := c.Snapshot()
	assert.Equal(t, "2026-03-01", snap.Day)
	require.Len(t, snap.Sources, 2)
	assert.Equal(t, SourceCount{Source: "cochrane", Calls: 1, Results: 2}, snap.Sources[0])
	assert.Equal(t, SourceCount{Source: "pubmed", Calls: 2, Failures: 1, Results: 5}, snap.Sources[1])
}

func TestCallCounter_RollsOverAtUTCMidnight(t *testing.T) {
	// Given: a counter with a rollover hook, late in the UTC day
	clock := &fakeClock{t: time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)}
	var finished []DailySnapshot
	c := NewCallCounter(WithClock(clock.Now), WithRollover(func(s DailySnapshot) {
		finished = append(finished, s)
	}))
	c.Record("pubmed", 1, nil)

	// When: time crosses midnight UTC and another call arrives
	clock.Set(time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC))
	c.Record("pubmed", 3, nil)

	// Then: the old day is handed off and the new day starts fresh
	require.Len(t, finished, 1)
	assert.Equal(t, "2026-03-01", finished[0].Day)
	assert.Equal(t, int64(1), finished[0].Sources[0].Calls)

	snap := c.Snapshot()
	assert.Equal(t, "2026-03-02", snap.Day)
	assert.Equal(t, int64(1), snap.Sources[0].Calls)
	assert.Equal(t, int64(3), snap.Sources[0].Results)
}

func TestCallCounter_LocalMidnightDoesNotRoll(t *testing.T) {
	// Given: a clock in a zone ahead of UTC
	zone := time.FixedZone("UTC+5", 5*3600)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 23, 0, 0, 0, zone)}
	c := NewCallCounter(WithClock(clock.Now))
	c.Record("pubmed", 1, nil)

	// When: local midnight passes but the UTC date is unchanged
	clock.Set(time.Date(2026, 3, 2, 1, 0, 0, 0, zone))
	c.Record("pubmed", 1, nil)

	// Then: both calls land on the same UTC day
	snap := c.Snapshot()
	assert.Equal(t, "2026-03-01", snap.Day)
	assert.Equal(t, int64(2), snap.Sources[0].Calls)
}

func TestCallCounter_ResetIsIdempotent(t *testing.T) {
	c := NewCallCounter()
	c.Record("pubmed", 1, nil)

	c.Reset()
	first := c.Snapshot()
	c.Reset()
	second := c.Snapshot()

	assert.True(t, first.Empty())
	assert.Equal(t, first, second)
}

func TestCallCounter_DrainZeroesCounts(t *testing.T) {
	c := NewCallCounter()
	c.Record("pubmed", 4, nil)

	drained := c.Drain()

	assert.Equal(t, int64(1), drained.Sources[0].Calls)
	assert.True(t, c.Snapshot().Empty())
}

func TestCallCounter_ConcurrentRecords(t *testing.T) {
	// Given: many goroutines recording at once
	c := NewCallCounter()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record("pubmed", 1, nil)
			}
		}()
	}
	wg.Wait()

	// Then: no call is lost
	snap := c.Snapshot()
	assert.Equal(t, int64(2000), snap.Sources[0].Calls)
	assert.Equal(t, int64(2000), snap.Sources[0].Results)
}
