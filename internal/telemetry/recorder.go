package telemetry

import (
	"database/sql"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/store"
)

// Recorder ties the in-memory counters to optional SQLite persistence.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	Calls   *CallCounter
	Queries *QueryStats

	store  *Store
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	latency map[LatencyBucket]int64
}

// Open builds a Recorder from cfg. A disabled config returns nil. When the
// database cannot be opened the recorder keeps counting in memory only.
func Open(cfg config.TelemetryConfig, logger *slog.Logger) *Recorder {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DBPath == "" {
		return NewRecorder(nil, logger)
	}

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Warn("telemetry_store_unavailable", slog.String("path", cfg.DBPath), slog.String("error", err.Error()))
		return NewRecorder(nil, logger)
	}
	st, err := NewStore(db)
	if err != nil {
		_ = db.Close()
		logger.Warn("telemetry_store_unavailable", slog.String("path", cfg.DBPath), slog.String("error", err.Error()))
		return NewRecorder(nil, logger)
	}
	r := NewRecorder(st, logger)
	r.db = db
	return r
}

// NewRecorder returns a recorder persisting to st, which may be nil.
func NewRecorder(st *Store, logger *slog.Logger, opts ...CounterOption) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		Queries: NewQueryStats(200, 100),
		store:   st,
		logger:  logger,
		latency: make(map[LatencyBucket]int64),
	}
	opts = append(opts, WithRollover(r.persistDay))
	r.Calls = NewCallCounter(opts...)
	return r
}

// RecordCall counts one source call.
func (r *Recorder) RecordCall(source string, results int, err error) {
	if r == nil {
		return
	}
	r.Calls.Record(source, results, err)
}

// RecordQuery records a finished aggregation.
func (r *Recorder) RecordQuery(e QueryEvent) {
	if r == nil {
		return
	}
	r.Queries.Record(e)
	r.mu.Lock()
	r.latency[LatencyToBucket(e.Latency)]++
	r.mu.Unlock()
}

// Flush writes pending counts to the store and clears them.
func (r *Recorder) Flush() error {
	if r == nil || r.store == nil {
		return nil
	}

	snap := r.Calls.Drain()
	if err := r.store.SaveDaily(snap); err != nil {
		return err
	}

	r.mu.Lock()
	pending := r.latency
	r.latency = make(map[LatencyBucket]int64)
	r.mu.Unlock()
	return r.store.SaveLatency(snap.Day, pending)
}

func (r *Recorder) persistDay(snap DailySnapshot) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveDaily(snap); err != nil {
		r.logger.Warn("telemetry_flush_failed", slog.String("day", snap.Day), slog.String("error", err.Error()))
	}
}

// Store returns the backing store, or nil when counting in memory.
func (r *Recorder) Store() *Store {
	if r == nil {
		return nil
	}
	return r.store
}

// Close flushes and closes the database it opened.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	err := r.Flush()
	if r.db != nil {
		if cerr := r.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
