// Package store provides SQLite persistence for the operational picture.
//
// Store is the source of truth. The fusion and decision engines are
// stateless request handlers that read-modify-write through it; multi-row
// changes (fused event + provenance + report transitions, event transition
// + decision append) execute as single transactions with guarded UPDATE
// predicates, so concurrent writers racing for the same rows observe a
// CONFLICT instead of partial state.
//
// # Thread Safety
//
// Store is safe for concurrent use. The underlying sql.DB handles
// connection pooling and serialization; WAL mode keeps readers off the
// writers' backs for file-based databases.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abelbrown/sitrep/internal/errs"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store handles persistence of reports, events, provenance, decisions,
// and QA threads. NOT an interface - concrete type.
type Store struct {
	db *sql.DB
}

// Open creates a Store at the given database path, creating tables as
// needed. Uses WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT,
		lon REAL,
		lat REAL,
		collection_time DATETIME,
		submitted_by TEXT NOT NULL,
		submitted_at DATETIME NOT NULL,
		classification TEXT NOT NULL,
		reliability TEXT,
		credibility TEXT,
		status TEXT NOT NULL DEFAULT 'SUBMITTED'
	);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
	CREATE INDEX IF NOT EXISTS idx_reports_collection ON reports(collection_time);
	CREATE INDEX IF NOT EXISTS idx_reports_submitted ON reports(submitted_at DESC);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		start_time DATETIME,
		end_time DATETIME,
		lon REAL,
		lat REAL,
		area_of_interest TEXT,
		confidence REAL NOT NULL,
		sensitivity TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_by TEXT NOT NULL,
		approved_by TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC);

	-- One provenance edge per fused report, ever. The UNIQUE constraint
	-- backs the at-most-one-fusion invariant at the schema level.
	CREATE TABLE IF NOT EXISTS fusion_provenance (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id),
		source_report_id TEXT NOT NULL UNIQUE REFERENCES reports(id),
		algorithm TEXT NOT NULL,
		weight REAL NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_provenance_event ON fusion_provenance(event_id);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		decision_type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		decision_maker TEXT NOT NULL,
		related_event_id TEXT,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		classification TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		effective_until DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_decisions_event ON decisions(related_event_id);

	CREATE TABLE IF NOT EXISTS qa_threads (
		id TEXT PRIMARY KEY,
		event_id TEXT,
		questioner_id TEXT NOT NULL,
		question TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'OPEN',
		priority TEXT NOT NULL DEFAULT 'NORMAL',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_qa_event ON qa_threads(event_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for collaborators that
// maintain their own tables (the audit trail). Prefer Store methods for
// everything else.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Stats summarizes row counts for the operator CLI.
type Stats struct {
	Reports        int
	UnfusedReports int
	Events         int
	PendingEvents  int
	Decisions      int
	OpenQAThreads  int
}

// GetStats returns current row counts.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM reports", &st.Reports},
		{"SELECT COUNT(*) FROM reports WHERE status = 'SUBMITTED'", &st.UnfusedReports},
		{"SELECT COUNT(*) FROM events", &st.Events},
		{"SELECT COUNT(*) FROM events WHERE status = 'PENDING'", &st.PendingEvents},
		{"SELECT COUNT(*) FROM decisions", &st.Decisions},
		{"SELECT COUNT(*) FROM qa_threads WHERE status = 'OPEN'", &st.OpenQAThreads},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return Stats{}, errs.Store(err, "count rows")
		}
	}
	return st, nil
}
