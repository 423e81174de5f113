package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	everr "github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
)

func TestHashQuery_NormalizesCaseAndWhitespace(t *testing.T) {
	// Given: two spellings of the same query
	a := HashQuery("  Metformin and Diabetes ")
	b := HashQuery("metformin and diabetes")

	// Then: digests match and are full-length hex
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", a)
	assert.NotEqual(t, a, HashQuery("metformin and obesity"))
}

func TestKey_Format(t *testing.T) {
	key := Key("Statins", "openalex")

	assert.Equal(t, "evidence:"+HashQuery("statins")+":openalex", key)
}

func TestMemoryStore_ExpiresEntries(t *testing.T) {
	// Given: a store with a controllable clock
	s := NewMemoryStore(10, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

	// When: read before and after the TTL
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(2 * time.Minute)
	_, ok, err = s.Get(ctx, "k")

	// Then: the expired entry is a miss
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	s := NewMemoryStore(10, 0)
	buf := []byte("abc")
	require.NoError(t, s.Set(context.Background(), "k", buf, 0))
	buf[0] = 'X'

	v, _, _ := s.Get(context.Background(), "k")
	assert.Equal(t, []byte("abc"), v)
}

func TestSQLiteStore_RoundTripAndExpiry(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("one"), time.Minute))
	require.NoError(t, s.Set(ctx, "a", []byte("two"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("keep"), 0))

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("two"), v)

	now = now.Add(time.Hour)
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = s.Get(ctx, "b")
	assert.True(t, ok)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_Purge(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))

	now = now.Add(time.Minute)
	n, err := s.Purge(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// failingStore simulates an unreachable backend.
type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (f *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil, false, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func (f *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("connection refused")
}

func (f *failingStore) Close() error { return nil }

func TestEvidenceCache_HitAndMiss(t *testing.T) {
	// Given: an adapter over the memory store
	c := New(NewMemoryStore(10, time.Hour), WithLogger(logging.Discard()))
	ctx := context.Background()

	// When: a miss, a put, then a hit under a differently spelled query
	_, ok := c.Get(ctx, "statins", "openalex")
	assert.False(t, ok)

	c.Put(ctx, "statins", "openalex", []byte(`[]`), time.Hour)
	payload, ok := c.Get(ctx, "  STATINS ", "openalex")

	// Then
	assert.True(t, ok)
	assert.Equal(t, []byte(`[]`), payload)

	_, ok = c.Get(ctx, "statins", "europepmc")
	assert.False(t, ok)

	snap := c.Stats().Snapshot()
	assert.Equal(t, int64(1), snap.Hits)
	assert.Equal(t, int64(2), snap.Misses)
	assert.Equal(t, snap.Hits+snap.Misses, snap.TotalOperations)
	assert.InDelta(t, 1.0/3.0, snap.HitRate, 1e-9)
}

func TestEvidenceCache_UnreachableBackendDegradesToMiss(t *testing.T) {
	// Given: a backend that always errors and a breaker that trips after 2 failures
	backend := &failingStore{}
	c := New(backend,
		WithLogger(logging.Discard()),
		WithBreaker(everr.NewCircuitBreaker("cache", everr.WithMaxFailures(2), everr.WithResetTimeout(time.Hour))),
	)
	ctx := context.Background()

	// When: several lookups and a put
	for i := 0; i < 4; i++ {
		_, ok := c.Get(ctx, "q", "s")
		assert.False(t, ok)
	}
	c.Put(ctx, "q", "s", []byte("x"), 0)

	// Then: every lookup is a miss, errors are counted, and the open circuit
	// stops calls reaching the backend
	snap := c.Stats().Snapshot()
	assert.Equal(t, int64(4), snap.Misses)
	assert.Equal(t, int64(0), snap.Hits)
	assert.Equal(t, int64(5), snap.Errors)
	assert.Equal(t, 2, backend.calls)
}

func TestEvidenceCache_RedisUnreachable(t *testing.T) {
	// Given: a redis store pointing at a closed port
	store := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	c := New(store, WithLogger(logging.Discard()), WithOpTimeout(100*time.Millisecond))
	defer c.Close()

	// When / Then: get misses and put is a silent no-op
	_, ok := c.Get(context.Background(), "q", "s")
	assert.False(t, ok)
	c.Put(context.Background(), "q", "s", []byte("x"), time.Minute)
	assert.Equal(t, int64(1), c.Stats().Snapshot().Misses)
}

func TestEvidenceCache_NilStoreDisablesCaching(t *testing.T) {
	c := New(nil)
	c.Put(context.Background(), "q", "s", []byte("x"), time.Minute)

	_, ok := c.Get(context.Background(), "q", "s")
	assert.False(t, ok)
}

func TestStats_ResetIsIdempotent(t *testing.T) {
	var s Stats
	assert.Equal(t, 0.0, s.Snapshot().HitRate)

	s.RecordHit()
	s.RecordMiss()
	s.RecordError()
	s.Reset()
	s.Reset()

	assert.Equal(t, StatsSnapshot{}, s.Snapshot())
}

func TestStats_Concurrent(t *testing.T) {
	var s Stats
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.RecordHit()
			} else {
				s.RecordMiss()
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, int64(50), snap.TotalOperations)
	assert.Equal(t, 0.5, snap.HitRate)
}

func TestNewStore_Backends(t *testing.T) {
	tests := []struct {
		backend string
		want    any
	}{
		{"memory", &MemoryStore{}},
		{"redis", &RedisStore{}},
		{"sqlite", &SQLiteStore{}},
		{"none", NopStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.NewConfig().Cache
			cfg.Backend = tt.backend
			cfg.SQLitePath = filepath.Join(t.TempDir(), "c.db")

			s, err := NewStore(cfg)
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}

	_, err := NewStore(config.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
