package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/amanrag/internal/search"
)

// MaxStoredFallbacks bounds the persisted fallback query window.
const MaxStoredFallbacks = 100

const telemetrySchema = `
CREATE TABLE IF NOT EXISTS counter_stats (
	date  TEXT NOT NULL,
	kind  TEXT NOT NULL,
	key   TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, kind, key)
);

CREATE TABLE IF NOT EXISTS source_stats (
	date   TEXT NOT NULL,
	source TEXT NOT NULL,
	state  TEXT NOT NULL,
	count  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, source, state)
);

CREATE TABLE IF NOT EXISTS query_terms (
	term      TEXT PRIMARY KEY,
	count     INTEGER NOT NULL DEFAULT 1,
	last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

CREATE TABLE IF NOT EXISTS fallback_queries (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	query          TEXT NOT NULL,
	category       TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	top_confidence REAL NOT NULL DEFAULT 0,
	unix_nano      INTEGER NOT NULL
);
`

// Counter kinds in counter_stats.
const (
	kindRoute    = "route"
	kindReason   = "reason"
	kindCategory = "category"
	kindLatency  = "latency"
)

// SQLiteMetricsStore accumulates drained snapshots in a local SQLite file
// so that FALLBACK rates can be reviewed across CLI runs.
type SQLiteMetricsStore struct {
	db *sql.DB
}

// OpenMetricsStore opens or creates the telemetry database. An empty path
// opens a private in-memory database.
func OpenMetricsStore(path string) (*SQLiteMetricsStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}
	if _, err := db.Exec(telemetrySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create telemetry schema: %w", err)
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// Save adds the counters of s to the totals for date (YYYY-MM-DD) and
// appends its fallback queries, trimming to MaxStoredFallbacks.
func (s *SQLiteMetricsStore) Save(ctx context.Context, date string, snap *Snapshot) error {
	if snap == nil || snap.TotalRequests == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	counters := map[string]map[string]int64{
		kindRoute:    stringKeys(snap.Routes),
		kindReason:   stringKeys(snap.Reasons),
		kindCategory: snap.Categories,
		kindLatency:  stringKeys(snap.LatencyDistribution),
	}
	for kind, counts := range counters {
		for key, n := range counts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO counter_stats (date, kind, key, count) VALUES (?, ?, ?, ?)
				ON CONFLICT(date, kind, key) DO UPDATE SET count = count + excluded.count`,
				date, kind, key, n); err != nil {
				return fmt.Errorf("save %s count: %w", kind, err)
			}
		}
	}
	for src, states := range snap.SourceStates {
		for state, n := range states {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO source_stats (date, source, state, count) VALUES (?, ?, ?, ?)
				ON CONFLICT(date, source, state) DO UPDATE SET count = count + excluded.count`,
				date, string(src), string(state), n); err != nil {
				return fmt.Errorf("save source count: %w", err)
			}
		}
	}
	for _, tc := range snap.TopTerms {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO query_terms (term, count, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(term) DO UPDATE SET
				count = count + excluded.count,
				last_seen = CURRENT_TIMESTAMP`,
			tc.Term, tc.Count); err != nil {
			return fmt.Errorf("save term count: %w", err)
		}
	}
	for _, fq := range snap.RecentFallbacks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fallback_queries (query, category, reason, top_confidence, unix_nano)
			VALUES (?, ?, ?, ?, ?)`,
			fq.Query, fq.Category, string(fq.Reason), fq.TopConfidence, fq.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("save fallback query: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM fallback_queries
		WHERE id NOT IN (SELECT id FROM fallback_queries ORDER BY id DESC LIMIT ?)`,
		MaxStoredFallbacks); err != nil {
		return fmt.Errorf("trim fallback queries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load aggregates the stored totals for the inclusive date range.
// TopTerms and RecentFallbacks are capped at limit entries, newest
// fallbacks first.
func (s *SQLiteMetricsStore) Load(ctx context.Context, from, to string, limit int) (*Snapshot, error) {
	snap := &Snapshot{
		Routes:              make(map[search.Route]int64),
		Reasons:             make(map[search.FailureReason]int64),
		Categories:          make(map[string]int64),
		SourceStates:        make(map[search.Source]map[search.SourceState]int64),
		LatencyDistribution: make(map[LatencyBucket]int64),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, key, SUM(count) FROM counter_stats
		WHERE date >= ? AND date <= ?
		GROUP BY kind, key`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	err = scanRows(rows, func() error {
		var kind, key string
		var n int64
		if err := rows.Scan(&kind, &key, &n); err != nil {
			return err
		}
		switch kind {
		case kindRoute:
			snap.Routes[search.Route(key)] += n
			snap.TotalRequests += n
		case kindReason:
			snap.Reasons[search.FailureReason(key)] += n
		case kindCategory:
			snap.Categories[key] += n
		case kindLatency:
			snap.LatencyDistribution[LatencyBucket(key)] += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan counters: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT source, state, SUM(count) FROM source_stats
		WHERE date >= ? AND date <= ?
		GROUP BY source, state`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query source stats: %w", err)
	}
	err = scanRows(rows, func() error {
		var src, state string
		var n int64
		if err := rows.Scan(&src, &state, &n); err != nil {
			return err
		}
		states, ok := snap.SourceStates[search.Source(src)]
		if !ok {
			states = make(map[search.SourceState]int64)
			snap.SourceStates[search.Source(src)] = states
		}
		states[search.SourceState(state)] += n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source stats: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT term, count FROM query_terms
		ORDER BY count DESC, term ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	err = scanRows(rows, func() error {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return err
		}
		snap.TopTerms = append(snap.TopTerms, tc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan top terms: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT query, category, reason, top_confidence, unix_nano FROM fallback_queries
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query fallback queries: %w", err)
	}
	err = scanRows(rows, func() error {
		var fq FallbackQuery
		var reason string
		var ns int64
		if err := rows.Scan(&fq.Query, &fq.Category, &reason, &fq.TopConfidence, &ns); err != nil {
			return err
		}
		fq.Reason = search.FailureReason(reason)
		fq.Timestamp = time.Unix(0, ns)
		snap.RecentFallbacks = append(snap.RecentFallbacks, fq)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan fallback queries: %w", err)
	}

	return snap, nil
}

// Close releases the database.
func (s *SQLiteMetricsStore) Close() error {
	return s.db.Close()
}

func scanRows(rows *sql.Rows, scan func() error) error {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(); err != nil {
			return err
		}
	}
	return rows.Err()
}

func stringKeys[K ~string](in map[K]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
