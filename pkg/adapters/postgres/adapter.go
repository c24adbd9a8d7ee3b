// Package postgres provides a PostgreSQL adapter for recordkeeper.
// It moves CSV files through a PostgreSQL session with COPY, so imports and
// exports use the server's CSV parser and writer.
package postgres

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/recordkeeper/pkg/adapter"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

const transferTable = "recordkeeper_transfer"

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Formats returns the file formats this adapter reads and writes.
func (a *Adapter) Formats() []core.FileFormat {
	return []core.FileFormat{core.FormatCSV}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres", slog.String("host", params.Host), slog.String("database", params.Database))

	db, err := sql.Open("pgx", buildPostgresDSN(cfg, params))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// ReadFile loads a CSV file with COPY FROM STDIN and returns its rows.
// Unquoted empty fields are null; quoted empty fields are empty strings.
func (a *Adapter) ReadFile(ctx context.Context, path string, format core.FileFormat) (*core.Table, error) {
	if format != core.FormatCSV {
		return nil, fmt.Errorf("postgres adapter cannot read %s files", format)
	}
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	file, err := os.Open(path) //nolint:gosec // path is supplied by the user on purpose
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	headers, err := csv.NewReader(file).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("CSV file %s has no header row", path)
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file: %w", err)
	}

	var t *core.Table
	err = a.withConn(ctx, func(conn *pgx.Conn) error {
		cols := positionalColumns(len(headers))
		if err := createTransferTable(ctx, conn, cols); err != nil {
			return err
		}
		defer dropTransferTable(ctx, conn)

		copySQL := fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true)",
			transferTable, strings.Join(cols, ", "))
		if _, err := conn.PgConn().CopyFrom(ctx, file, copySQL); err != nil {
			return fmt.Errorf("failed to copy data: %w", err)
		}

		t, err = selectTable(ctx, conn, cols, headers)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// WriteFile bulk-loads t into a temporary table and streams it to path with
// COPY TO STDOUT.
func (a *Adapter) WriteFile(ctx context.Context, path string, t *core.Table, format core.FileFormat) error {
	if format != core.FormatCSV {
		return fmt.Errorf("postgres adapter cannot write %s files", format)
	}
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.NumColumns() == 0 {
		return fmt.Errorf("cannot write a table without columns to %s", format)
	}

	file, err := os.Create(path) //nolint:gosec // path is supplied by the user on purpose
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	err = a.withConn(ctx, func(conn *pgx.Conn) error {
		cols := positionalColumns(t.NumColumns())
		if err := createTransferTable(ctx, conn, cols); err != nil {
			return err
		}
		defer dropTransferTable(ctx, conn)

		if _, err := conn.CopyFrom(ctx, pgx.Identifier{transferTable}, cols, pgx.CopyFromRows(tableRows(t))); err != nil {
			return fmt.Errorf("failed to load rows: %w", err)
		}

		copySQL := fmt.Sprintf("COPY (SELECT %s FROM %s ORDER BY rk_row) TO STDOUT WITH (FORMAT csv, HEADER true)",
			aliasedColumns(cols, t.ColumnNames()), transferTable)
		if _, err := conn.PgConn().CopyTo(ctx, file, copySQL); err != nil {
			return fmt.Errorf("failed to copy data: %w", err)
		}
		return nil
	})
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// withConn pins one session so the temporary table outlives single statements.
func (a *Adapter) withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c.Conn())
	})
}

// positionalColumns names columns c1..cn; source headers never reach SQL.
func positionalColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i+1)
	}
	return cols
}

func createTransferTable(ctx context.Context, conn *pgx.Conn, cols []string) error {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " TEXT"
	}
	// rk_row keeps insertion order for export.
	createSQL := fmt.Sprintf("CREATE TEMP TABLE %s (%s, rk_row BIGSERIAL)", transferTable, strings.Join(defs, ", "))
	if _, err := conn.Exec(ctx, "DROP TABLE IF EXISTS "+transferTable); err != nil {
		return fmt.Errorf("failed to drop transfer table: %w", err)
	}
	if _, err := conn.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create transfer table: %w", err)
	}
	return nil
}

func dropTransferTable(ctx context.Context, conn *pgx.Conn) {
	_, _ = conn.Exec(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+transferTable)
}

func selectTable(ctx context.Context, conn *pgx.Conn, cols, names []string) (*core.Table, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rk_row", strings.Join(cols, ", "), transferTable)
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer table: %w", err)
	}
	defer rows.Close()

	t := &core.Table{Columns: make([]core.Column, len(names))}
	for i, name := range names {
		t.Columns[i] = core.Column{Name: name, Values: []core.Text{}}
	}

	values := make([]*string, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			cell := core.Null()
			if v != nil {
				cell = core.Some(*v)
			}
			t.Columns[i].Values = append(t.Columns[i].Values, cell)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return t, nil
}

func tableRows(t *core.Table) [][]any {
	out := make([][]any, t.NumRows())
	for r := range out {
		row := make([]any, t.NumColumns())
		for c, col := range t.Columns {
			if v := col.Values[r]; v.Valid {
				row[c] = v.Value
			}
		}
		out[r] = row
	}
	return out
}

func aliasedColumns(cols, names []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " AS " + adapter.QuoteIdent(names[i])
	}
	return strings.Join(parts, ", ")
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
