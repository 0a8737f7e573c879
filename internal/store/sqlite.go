// ABOUTME: SQLite ledger using modernc.org/sqlite
// ABOUTME: Creates its schema on open and records one row per dispatched operation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/2389/cookie-jar/internal/dispatch"
)

// SQLiteStore implements Ledger using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens or creates a ledger at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite ledger initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id   TEXT NOT NULL UNIQUE,
			operation  TEXT NOT NULL,
			accepted   INTEGER NOT NULL,
			quality    TEXT,
			error_kind TEXT,
			collected  INTEGER NOT NULL,
			available  INTEGER NOT NULL,
			ts         TEXT NOT NULL,

			CHECK (collected >= 0),
			CHECK (available >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_events_operation ON events(operation);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// OpenSQLiteReadOnly opens an existing ledger for reading. It never creates
// the file; a missing ledger yields an error matching fs.ErrNotExist. The
// connection runs with query_only so writes fail.
func OpenSQLiteReadOnly(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "_pragma=query_only(1)"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	logger.Debug("opened SQLite ledger read-only", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append records an event. ID and Timestamp are generated if not set.
func (s *SQLiteStore) Append(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, operation, accepted, quality, error_kind, collected, available, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Operation,
		e.Accepted,
		nullable(e.Quality),
		nullable(e.ErrorKind),
		e.Collected,
		e.Available,
		e.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("appended ledger event",
		"id", e.ID,
		"operation", e.Operation,
		"accepted", e.Accepted,
	)
	return nil
}

const listQuery = `
	SELECT event_id, operation, accepted, quality, error_kind, collected, available, ts
	FROM events
	WHERE (? = '' OR operation = ?)
	  AND (? IS NULL OR ts >= ?)
	ORDER BY seq DESC
	LIMIT ?
`

// List returns events matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Event, error) {
	var since *string
	if f.Since != nil {
		str := f.Since.UTC().Format(time.RFC3339)
		since = &str
	}

	rows, err := s.db.QueryContext(ctx, listQuery,
		f.Operation, f.Operation,
		since, since,
		normalizeLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// Stats summarizes every event in the ledger.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN accepted = 1 AND operation IN (?, ?) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error_kind IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM events
	`, dispatch.ToolReflectAndReward, dispatch.ToolGiveCookie).Scan(&st.Events, &st.Awarded, &st.Denied)
	if err != nil {
		return Stats{}, fmt.Errorf("summarizing events: %w", err)
	}
	return st, nil
}

// Observe records a dispatcher outcome. It satisfies dispatch.Observer.
func (s *SQLiteStore) Observe(ctx context.Context, o *dispatch.Outcome) error {
	return s.Append(ctx, EventFromOutcome(o))
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (Event, error) {
	var e Event
	var quality, errorKind sql.NullString
	var tsStr string

	if err := scanner.Scan(
		&e.ID,
		&e.Operation,
		&e.Accepted,
		&quality,
		&errorKind,
		&e.Collected,
		&e.Available,
		&tsStr,
	); err != nil {
		return e, fmt.Errorf("scanning event: %w", err)
	}
	e.Quality = quality.String
	e.ErrorKind = errorKind.String

	var err error
	e.Timestamp, err = time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}
	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
