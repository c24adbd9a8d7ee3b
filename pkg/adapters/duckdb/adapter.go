// Package duckdb provides a DuckDB database adapter for recordkeeper.
// It reads and writes CSV and Parquet files on behalf of dataset import and export.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/recordkeeper/pkg/adapter"
	"github.com/leapstack-labs/recordkeeper/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

const exportTable = "recordkeeper_export"

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Formats returns the file formats this adapter reads and writes.
func (a *Adapter) Formats() []core.FileFormat {
	return []core.FileFormat{core.FormatCSV, core.FormatParquet}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}

	a.Logger.Debug("connected to duckdb", slog.String("path", path))
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, params *Params) error {
	for _, ext := range params.Extensions {
		if err := a.Exec(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := a.Exec(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for name, value := range params.Settings {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = %s", name, adapter.QuoteLiteral(value))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", name, err)
		}
	}
	for _, secret := range params.Secrets {
		if err := a.Exec(ctx, buildCreateSecretSQL(secret)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", secret.Type, err)
		}
	}
	return nil
}

// ReadFile reads a CSV or Parquet file into a table. Every column is read as
// text; empty CSV cells become nulls.
func (a *Adapter) ReadFile(ctx context.Context, path string, format core.FileFormat) (*core.Table, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	source, err := sourceExpr(path, format)
	if err != nil {
		return nil, err
	}

	desc, err := a.QueryTable(ctx, "DESCRIBE SELECT * FROM "+source)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", path, err)
	}
	names, ok := desc.Column("column_name")
	if !ok {
		return nil, fmt.Errorf("failed to describe %s: no column_name in result", path)
	}

	casts := make([]string, len(names.Values))
	for i, name := range names.Values {
		ident := adapter.QuoteIdent(name.Value)
		casts[i] = fmt.Sprintf("CAST(%s AS VARCHAR) AS %s", ident, ident)
	}

	t, err := a.QueryTable(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(casts, ", "), source))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	a.Logger.Debug("read file",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.String("shape", t.Shape().String()))
	return t, nil
}

// WriteFile writes t to path as CSV or Parquet, replacing any existing file.
// The table goes through a temporary table on a pinned connection.
func (a *Adapter) WriteFile(ctx context.Context, path string, t *core.Table, format core.FileFormat) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid table: %w", err)
	}
	if t.NumColumns() == 0 {
		return fmt.Errorf("cannot write a table without columns to %s", format)
	}

	var copyOpts string
	switch format {
	case core.FormatCSV:
		copyOpts = "(FORMAT CSV, HEADER)"
	case core.FormatParquet:
		copyOpts = "(FORMAT PARQUET)"
	default:
		return fmt.Errorf("unsupported file format %q", format)
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := createExportTable(ctx, conn, t); err != nil {
		return err
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+exportTable)
	}()

	if err := insertRows(ctx, conn, t); err != nil {
		return err
	}

	copySQL := fmt.Sprintf("COPY %s TO %s %s", exportTable, adapter.QuoteLiteral(path), copyOpts)
	if _, err := conn.ExecContext(ctx, copySQL); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	a.Logger.Debug("wrote file",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.String("shape", t.Shape().String()))
	return nil
}

func sourceExpr(path string, format core.FileFormat) (string, error) {
	switch format {
	case core.FormatCSV:
		return fmt.Sprintf("read_csv(%s, header = true, all_varchar = true)", adapter.QuoteLiteral(path)), nil
	case core.FormatParquet:
		return fmt.Sprintf("read_parquet(%s)", adapter.QuoteLiteral(path)), nil
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}
}

func createExportTable(ctx context.Context, conn *sql.Conn, t *core.Table) error {
	cols := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cols[i] = adapter.QuoteIdent(col.Name) + " VARCHAR"
	}
	ddl := fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s (%s)", exportTable, strings.Join(cols, ", "))
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create export table: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, conn *sql.Conn, t *core.Table) error {
	if t.NumRows() == 0 {
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", t.NumColumns()), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", exportTable, placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, t.NumColumns())
	for r := range t.NumRows() {
		for c, col := range t.Columns {
			if v := col.Values[r]; v.Valid {
				args[c] = v.Value
			} else {
				args[c] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}
	return nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement for cfg.
func buildCreateSecretSQL(cfg SecretConfig) string {
	parts := []string{"TYPE " + cfg.Type}
	if cfg.Provider != "" {
		parts = append(parts, "PROVIDER "+cfg.Provider)
	}
	if cfg.Region != "" {
		parts = append(parts, "REGION "+adapter.QuoteLiteral(cfg.Region))
	}
	if scope := formatScope(cfg.Scope); scope != "" {
		parts = append(parts, "SCOPE "+scope)
	}
	if cfg.KeyID != "" {
		parts = append(parts, "KEY_ID "+adapter.QuoteLiteral(cfg.KeyID))
	}
	if cfg.Secret != "" {
		parts = append(parts, "SECRET "+adapter.QuoteLiteral(cfg.Secret))
	}
	if cfg.Endpoint != "" {
		parts = append(parts, "ENDPOINT "+adapter.QuoteLiteral(cfg.Endpoint))
	}
	if cfg.URLStyle != "" {
		parts = append(parts, "URL_STYLE "+adapter.QuoteLiteral(cfg.URLStyle))
	}
	if cfg.UseSSL != nil {
		parts = append(parts, fmt.Sprintf("USE_SSL %t", *cfg.UseSSL))
	}
	return "CREATE SECRET (\n    " + strings.Join(parts, ",\n    ") + "\n)"
}

func formatScope(scope any) string {
	var items []string
	switch s := scope.(type) {
	case nil:
		return ""
	case string:
		if s == "" {
			return ""
		}
		return adapter.QuoteLiteral(s)
	case []string:
		items = s
	case []any:
		for _, v := range s {
			items = append(items, fmt.Sprint(v))
		}
	default:
		return adapter.QuoteLiteral(fmt.Sprint(s))
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = adapter.QuoteLiteral(item)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
