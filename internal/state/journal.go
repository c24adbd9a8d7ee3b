// Package state keeps the recordkeeper activity journal in SQLite.
// The journal records which datasets were created, saved, imported and
// exported. Dataset files remain the source of truth; losing the journal
// loses history only.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/recordkeeper/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// timeLayout is fixed width so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteJournal implements core.Journal using SQLite.
type SQLiteJournal struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteJournal creates a new journal instance. A nil logger discards output.
func NewSQLiteJournal(logger *slog.Logger) *SQLiteJournal {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteJournal{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (j *SQLiteJournal) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	j.db = db
	j.path = path
	j.logger.Debug("journal opened", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (j *SQLiteJournal) InitSchema() error {
	return j.Migrate()
}

// Path returns the path the journal was opened with.
func (j *SQLiteJournal) Path() string {
	return j.path
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// Record appends an event to the journal.
func (j *SQLiteJournal) Record(ctx context.Context, ev *core.Event) error {
	if j.db == nil {
		return fmt.Errorf("database not opened")
	}
	if !ev.Dataset.Valid() {
		return fmt.Errorf("record event: unknown dataset %v", ev.Dataset)
	}
	if ev.ID == "" {
		ev.ID = generateID()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	ev.At = ev.At.UTC()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (id, dataset, kind, row_count, col_count, detail, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Dataset.Name(), string(ev.Kind), ev.Rows, ev.Columns, ev.Detail, ev.At.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	j.logger.Debug("event recorded",
		slog.String("dataset", ev.Dataset.Name()),
		slog.String("kind", string(ev.Kind)))
	return nil
}

// List returns events newest first, optionally filtered by dataset.
func (j *SQLiteJournal) List(ctx context.Context, dataset *core.DatasetID, limit int) ([]*core.Event, error) {
	if j.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT id, dataset, kind, row_count, col_count, detail, recorded_at FROM events`)
	if dataset != nil {
		query.WriteString(` WHERE dataset = ?`)
		args = append(args, dataset.Name())
	}
	query.WriteString(` ORDER BY recorded_at DESC, rowid DESC`)
	if limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*core.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (*core.Event, error) {
	var (
		ev      core.Event
		dataset string
		kind    string
		at      string
	)
	if err := rows.Scan(&ev.ID, &dataset, &kind, &ev.Rows, &ev.Columns, &ev.Detail, &at); err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	id, err := core.ParseDatasetID(dataset)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	ev.Dataset = id
	ev.Kind = core.EventKind(kind)

	ev.At, err = time.Parse(timeLayout, at)
	if err != nil {
		return nil, fmt.Errorf("event %s: invalid timestamp %q: %w", ev.ID, at, err)
	}
	return &ev, nil
}

// Ensure SQLiteJournal implements core.Journal.
var _ core.Journal = (*SQLiteJournal)(nil)
