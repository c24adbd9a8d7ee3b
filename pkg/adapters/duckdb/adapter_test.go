package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/recordkeeper/pkg/adapter"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectMemory(t *testing.T, params map[string]any) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: ":memory:", Params: params}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func scalar(t *testing.T, adp *Adapter, query string) core.Text {
	t.Helper()
	got, err := adp.QueryTable(context.Background(), query)
	require.NoError(t, err)
	require.Equal(t, core.Shape{Rows: 1, Columns: 1}, got.Shape())
	return got.Columns[0].Values[0]
}

func TestConnect_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.duckdb")

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: path}))
	require.NoError(t, adp.Exec(ctx, "CREATE TABLE kept (v VARCHAR)"))
	require.NoError(t, adp.Close())
	assert.FileExists(t, path)

	reopened := New(nil)
	require.NoError(t, reopened.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = reopened.Close() }()
	assert.Equal(t, core.Some("1"), scalar(t, reopened,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = 'kept'"))
}

func TestConnect_EmptyPathIsInMemory(t *testing.T) {
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{}))
	defer func() { _ = adp.Close() }()

	assert.Equal(t, core.Some("memory"), scalar(t, adp, "SELECT current_database()"))
}

func TestConnect_AppliesParams(t *testing.T) {
	t.Run("settings", func(t *testing.T) {
		adp := connectMemory(t, map[string]any{
			"settings": map[string]any{"threads": 2},
		})
		assert.Equal(t, core.Some("2"), scalar(t, adp, "SELECT current_setting('threads')"))
	})

	t.Run("extensions", func(t *testing.T) {
		adp := connectMemory(t, map[string]any{
			"extensions": []any{"json"},
		})
		assert.Equal(t, core.Some("true"), scalar(t, adp,
			"SELECT loaded FROM duckdb_extensions() WHERE extension_name = 'json'"))
	})

	t.Run("no params", func(t *testing.T) {
		adp := connectMemory(t, nil)
		assert.Equal(t, core.Some("1"), scalar(t, adp, "SELECT 1"))
	})
}

func TestConnect_RejectedParamsLeaveAdapterClosed(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr string
	}{
		{
			name:    "misspelled key",
			params:  map[string]any{"extension": "json"},
			wantErr: "invalid duckdb params",
		},
		{
			name:    "setting the engine refuses",
			params:  map[string]any{"settings": map[string]any{"no_such_setting": "1"}},
			wantErr: "failed to apply setting no_such_setting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			err := adp.Connect(context.Background(), core.AdapterConfig{Path: ":memory:", Params: tt.params})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, adp.DB)
		})
	}
}

func TestAdapter_RequiresConnection(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.ReadFile(ctx, "in.csv", core.FormatCSV)
	assert.EqualError(t, err, "database connection not established")

	err = adp.WriteFile(ctx, "out.csv", core.TextColumns("a").EmptyTable(), core.FormatCSV)
	assert.EqualError(t, err, "database connection not established")

	assert.NoError(t, adp.Close())
}

func TestBuildCreateSecretSQL(t *testing.T) {
	ssl := false
	tests := []struct {
		name   string
		secret SecretConfig
		want   []string
	}{
		{
			name:   "type only",
			secret: SecretConfig{Type: "gcs"},
			want:   []string{"TYPE gcs"},
		},
		{
			name:   "credential chain for one bucket",
			secret: SecretConfig{Type: "s3", Provider: "credential_chain", Region: "sa-east-1", Scope: "s3://contratos"},
			want:   []string{"TYPE s3", "PROVIDER credential_chain", "REGION 'sa-east-1'", "SCOPE 's3://contratos'"},
		},
		{
			name: "explicit keys against minio",
			secret: SecretConfig{
				Type:     "s3",
				KeyID:    "admin",
				Secret:   "it's-secret",
				Endpoint: "localhost:9000",
				URLStyle: "path",
				UseSSL:   &ssl,
				Scope:    []any{"s3://a", "s3://b"},
			},
			want: []string{
				"TYPE s3",
				"SCOPE ('s3://a', 's3://b')",
				"KEY_ID 'admin'",
				"SECRET 'it''s-secret'",
				"ENDPOINT 'localhost:9000'",
				"URL_STYLE 'path'",
				"USE_SSL false",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildCreateSecretSQL(tt.secret)
			assert.Equal(t, "CREATE SECRET (\n    "+strings.Join(tt.want, ",\n    ")+"\n)", got)
		})
	}
}

func TestFormatScope(t *testing.T) {
	assert.Empty(t, formatScope(nil))
	assert.Empty(t, formatScope(""))
	assert.Equal(t, "'s3://x'", formatScope("s3://x"))
	assert.Equal(t, "('a', 'b')", formatScope([]string{"a", "b"}))
	assert.Equal(t, "'42'", formatScope(42))
}

func TestAdapter_Formats(t *testing.T) {
	adp := New(nil)
	assert.Equal(t, []core.FileFormat{core.FormatCSV, core.FormatParquet}, adp.Formats())
	assert.True(t, adapter.Supports(adp, core.FormatCSV))
	assert.False(t, adapter.Supports(adp, core.FileFormat("xlsx")))
}

func TestAdapter_ReadFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *core.Table
	}{
		{
			name:    "empty cells read as nulls",
			content: "ID Processo,NUP,Objeto\nDE 15/2024,0001,Café\nDE 16/2024,,007\n",
			want: &core.Table{Columns: []core.Column{
				{Name: "ID Processo", Values: []core.Text{core.Some("DE 15/2024"), core.Some("DE 16/2024")}},
				{Name: "NUP", Values: []core.Text{core.Some("0001"), core.Null()}},
				{Name: "Objeto", Values: []core.Text{core.Some("Café"), core.Some("007")}},
			}},
		},
		{
			name:    "column with no values",
			content: "numero,observacao\n1,\n2,\n",
			want: &core.Table{Columns: []core.Column{
				{Name: "numero", Values: []core.Text{core.Some("1"), core.Some("2")}},
				{Name: "observacao", Values: []core.Text{core.Null(), core.Null()}},
			}},
		},
		{
			name:    "header without rows",
			content: "numero,objeto\n",
			want:    core.TextColumns("numero", "objeto").EmptyTable(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := connectMemory(t, nil)
			path := filepath.Join(t.TempDir(), "in.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			got, err := adp.ReadFile(context.Background(), path, core.FormatCSV)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %+v", got)
		})
	}
}

func TestAdapter_ReadFile_Errors(t *testing.T) {
	adp := connectMemory(t, nil)
	dir := t.TempDir()

	_, err := adp.ReadFile(context.Background(), filepath.Join(dir, "missing.csv"), core.FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to describe")

	_, err = adp.ReadFile(context.Background(), filepath.Join(dir, "in.xlsx"), core.FileFormat("xlsx"))
	assert.EqualError(t, err, `unsupported file format "xlsx"`)
}

func TestAdapter_WriteRead_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format core.FileFormat
		file   string
		table  *core.Table
	}{
		{
			name:   "csv with quoting and nulls",
			format: core.FormatCSV,
			file:   "out.csv",
			table: &core.Table{Columns: []core.Column{
				{Name: "numero", Values: []core.Text{core.Some("1"), core.Some("2")}},
				{Name: "objeto", Values: []core.Text{core.Some("Aquisição, de \"café\""), core.Null()}},
			}},
		},
		{
			name:   "csv without rows",
			format: core.FormatCSV,
			file:   "empty.csv",
			table:  core.TextColumns("numero", "objeto").EmptyTable(),
		},
		{
			name:   "parquet keeps empty strings apart from nulls",
			format: core.FormatParquet,
			file:   "out.parquet",
			table: &core.Table{Columns: []core.Column{
				{Name: "numero", Values: []core.Text{core.Some("1"), core.Some(""), core.Null()}},
				{Name: "objeto", Values: []core.Text{core.Some("Serviço"), core.Null(), core.Some("x")}},
			}},
		},
		{
			name:   "parquet column of nulls",
			format: core.FormatParquet,
			file:   "nulls.parquet",
			table: &core.Table{Columns: []core.Column{
				{Name: "numero", Values: []core.Text{core.Some("1"), core.Some("2")}},
				{Name: "vazio", Values: []core.Text{core.Null(), core.Null()}},
			}},
		},
		{
			name:   "parquet without rows",
			format: core.FormatParquet,
			file:   "empty.parquet",
			table:  core.TextColumns("a", "b").EmptyTable(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := connectMemory(t, nil)

			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, adp.WriteFile(ctx, path, tt.table, tt.format))
			assert.FileExists(t, path)

			got, err := adp.ReadFile(ctx, path, tt.format)
			require.NoError(t, err)
			assert.True(t, tt.table.Equal(got), "got %+v", got)
		})
	}
}

func TestAdapter_WriteFile_ReplacesExisting(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t, nil)
	path := filepath.Join(t.TempDir(), "out.csv")

	first := &core.Table{Columns: []core.Column{{Name: "a", Values: []core.Text{core.Some("1"), core.Some("2")}}}}
	second := &core.Table{Columns: []core.Column{{Name: "b", Values: []core.Text{core.Some("3")}}}}
	require.NoError(t, adp.WriteFile(ctx, path, first, core.FormatCSV))
	require.NoError(t, adp.WriteFile(ctx, path, second, core.FormatCSV))

	got, err := adp.ReadFile(ctx, path, core.FormatCSV)
	require.NoError(t, err)
	assert.True(t, second.Equal(got), "got %+v", got)
}

func TestAdapter_WriteFile_Errors(t *testing.T) {
	ctx := context.Background()
	adp := connectMemory(t, nil)

	dir := t.TempDir()
	tests := []struct {
		name    string
		table   *core.Table
		format  core.FileFormat
		wantErr string
	}{
		{"no columns", &core.Table{}, core.FormatCSV, "without columns"},
		{"invalid table", &core.Table{Columns: []core.Column{{Name: ""}}}, core.FormatCSV, "invalid table"},
		{"unknown format", core.TextColumns("a").EmptyTable(), core.FileFormat("xlsx"), "unsupported file format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := adp.WriteFile(ctx, filepath.Join(dir, "out"), tt.table, tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.NoFileExists(t, filepath.Join(dir, "out"))
}

func TestRegistered(t *testing.T) {
	adp, err := adapter.Open(context.Background(), core.AdapterConfig{Type: "duckdb", Path: ":memory:"}, nil)
	require.NoError(t, err)
	defer func() { _ = adp.Close() }()

	assert.IsType(t, &Adapter{}, adp)
	assert.True(t, adapter.Supports(adp, core.FormatParquet))
}
