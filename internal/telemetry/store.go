package telemetry

import (
	"database/sql"
	"fmt"
)

// Store persists daily call counts in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore wraps db, creating the schema if needed.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// InitSchema creates the telemetry tables if they don't exist.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS source_calls (
		day TEXT NOT NULL,
		source TEXT NOT NULL,
		calls INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		results INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, source)
	);

	CREATE TABLE IF NOT EXISTS query_latency (
		day TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, bucket)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// SaveDaily adds snap to the stored totals for its day.
func (s *Store) SaveDaily(snap DailySnapshot) error {
	if snap.Empty() {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO source_calls (day, source, calls, failures, results)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(day, source) DO UPDATE SET
			calls = calls + excluded.calls,
			failures = failures + excluded.failures,
			results = results + excluded.results
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range snap.Sources {
		if _, err := stmt.Exec(snap.Day, c.Source, c.Calls, c.Failures, c.Results); err != nil {
			return fmt.Errorf("upsert source calls: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Daily returns stored counts for days in [from, to], one snapshot per
// day in ascending order.
func (s *Store) Daily(from, to string) ([]DailySnapshot, error) {
	rows, err := s.db.Query(`
		SELECT day, source, calls, failures, results
		FROM source_calls
		WHERE day >= ? AND day <= ?
		ORDER BY day, source
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query source calls: %w", err)
	}
	defer rows.Close()

	var out []DailySnapshot
	for rows.Next() {
		var day string
		var c SourceCount
		if err := rows.Scan(&day, &c.Source, &c.Calls, &c.Failures, &c.Results); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Day != day {
			out = append(out, DailySnapshot{Day: day})
		}
		out[len(out)-1].Sources = append(out[len(out)-1].Sources, c)
	}
	return out, rows.Err()
}

// SaveLatency adds bucket counts for day.
func (s *Store) SaveLatency(day string, counts map[LatencyBucket]int64) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_latency (day, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(day, bucket) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for bucket, n := range counts {
		if _, err := stmt.Exec(day, string(bucket), n); err != nil {
			return fmt.Errorf("upsert latency: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Latency returns bucket totals for days in [from, to].
func (s *Store) Latency(from, to string) (map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`
		SELECT bucket, SUM(count)
		FROM query_latency
		WHERE day >= ? AND day <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency: %w", err)
	}
	defer rows.Close()

	out := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var n int64
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[LatencyBucket(bucket)] = n
	}
	return out, rows.Err()
}
