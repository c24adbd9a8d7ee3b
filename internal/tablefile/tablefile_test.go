package tablefile

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *core.Table {
	t.Helper()
	tbl, err := core.NewTable(
		core.Column{Name: "a", Values: []core.Text{core.Some("1"), core.Null(), core.Some("")}},
		core.Column{Name: "b", Values: []core.Text{core.Some("2"), core.Some("ação"), core.Null()}},
	)
	require.NoError(t, err)
	return tbl
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		table *core.Table
	}{
		{name: "rows with nulls and empty strings", table: sampleTable(t)},
		{name: "zero rows", table: core.TextColumns("numero", "ano", "nup").EmptyTable()},
		{name: "zero columns", table: &core.Table{Columns: []core.Column{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)

			data, err := EncodeBytes(tt.table, WithAllocator(mem), WithDataset("contratos"))
			require.NoError(t, err)

			got, hdr, err := Decode(data, WithAllocator(mem))
			require.NoError(t, err)
			assert.Equal(t, "contratos", hdr.Dataset)
			assert.Equal(t, FormatVersion, hdr.Format)
			if diff := cmp.Diff(tt.table, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	first, err := EncodeBytes(sampleTable(t), WithDataset("atas"))
	require.NoError(t, err)
	second, err := EncodeBytes(sampleTable(t), WithDataset("atas"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))
}

func TestEncode_RejectsInvalidTable(t *testing.T) {
	bad := &core.Table{Columns: []core.Column{
		{Name: "a", Values: []core.Text{core.Some("1")}},
		{Name: "b"},
	}}
	var buf bytes.Buffer
	err := Encode(&buf, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table")
	assert.Zero(t, buf.Len(), "nothing is written for an invalid table")
}

func TestDecode_Garbage(t *testing.T) {
	_, _, err := Decode([]byte("not an arrow file"))
	assert.Error(t, err)
}

func TestDecode_Truncated(t *testing.T) {
	data, err := EncodeBytes(sampleTable(t))
	require.NoError(t, err)
	_, _, err = Decode(data[:len(data)/2])
	assert.Error(t, err)
}

func TestDecode_RejectsNonTextColumn(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).Append(7)
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	_, _, err = Decode(buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want utf8")
}

func TestWriteAtomic_ThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contratos.table")
	require.NoError(t, WriteAtomic(path, sampleTable(t), WithDataset("contratos")))

	got, hdr, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "contratos", hdr.Dataset)
	assert.True(t, sampleTable(t).Equal(got))
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteAtomic_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "contratos.table")
	err := WriteAtomic(path, sampleTable(t))
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Dir(path))
}

func TestWriteAtomic_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matriz_riscos.table")
	require.NoError(t, WriteAtomic(path, sampleTable(t)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := &core.Table{Columns: []core.Column{{Name: "x"}, {Name: "x"}}}
	require.Error(t, WriteAtomic(path, bad))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assertNoTempFiles(t, dir)
}

func TestWriteAtomic_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atas.table")
	require.NoError(t, WriteAtomic(path, sampleTable(t)))

	replacement, err := core.FromRows([]string{"z"}, [][]string{{"only"}})
	require.NoError(t, err)
	require.NoError(t, WriteAtomic(path, replacement))

	got, _, err := Read(path)
	require.NoError(t, err)
	assert.True(t, replacement.Equal(got))
}

func TestWriteAtomic_DirectorySyncFailureAfterRename(t *testing.T) {
	orig := syncDir
	syncDir = func(string) error { return errors.New("sync not supported") }
	t.Cleanup(func() { syncDir = orig })

	path := filepath.Join(t.TempDir(), "automacoes.table")
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	require.NoError(t, WriteAtomic(path, sampleTable(t), WithLogger(logger)))

	got, _, err := Read(path)
	require.NoError(t, err)
	assert.True(t, sampleTable(t).Equal(got))
	assert.Contains(t, logs.String(), "failed to sync directory after write")
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp.*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
