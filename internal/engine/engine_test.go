package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/recordkeeper/internal/catalog"
	"github.com/leapstack-labs/recordkeeper/internal/store"
	"github.com/leapstack-labs/recordkeeper/internal/tablefile"
	"github.com/leapstack-labs/recordkeeper/internal/testutil"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestEngine(t *testing.T, journal bool) *Engine {
	t.Helper()
	cfg := Config{
		BaseDir: t.TempDir(),
		Logger:  testutil.NewTestLogger(t),
	}
	if journal {
		cfg.JournalPath = filepath.Join(cfg.BaseDir, ".recordkeeper", "journal.db")
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func kinds(events []*core.Event) []core.EventKind {
	var out []core.EventKind
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestNew_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.EqualError(t, err, "base directory not specified")
}

func TestNew_Journal(t *testing.T) {
	e := newTestEngine(t, true)
	assert.True(t, e.HasJournal())
	assert.FileExists(t, filepath.Join(e.Paths().BaseDir(), ".recordkeeper", "journal.db"))

	_, err := newTestEngine(t, false).History(context.Background(), nil, 0)
	assert.ErrorIs(t, err, ErrNoJournal)
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, true)

	results, err := e.Init(ctx)
	require.NoError(t, err)
	require.Len(t, results, len(core.AllDatasets()))
	for i, r := range results {
		assert.Equal(t, core.AllDatasets()[i], r.Dataset)
		assert.Equal(t, store.OutcomeCreated, r.Outcome)
		assert.Equal(t, len(catalog.Schema(r.Dataset)), r.Shape.Columns)
		assert.FileExists(t, r.Path)
	}
	assert.ElementsMatch(t, core.AllDatasets(), e.Cache().Loaded())

	again, err := e.Init(ctx)
	require.NoError(t, err)
	for _, r := range again {
		assert.Equal(t, store.OutcomeLoaded, r.Outcome, r.Dataset.Name())
	}

	events, err := e.History(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, events, len(core.AllDatasets()), "only the first Init creates files")
}

func TestSave_UpdatesCacheAndJournal(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, true)

	tbl, err := core.FromRows(catalog.Schema(core.Contracts).Names(), [][]string{
		{"1", "2024", "DE 1/2024", "0001", "Papel"},
	})
	require.NoError(t, err)
	require.NoError(t, e.Save(ctx, core.Contracts, tbl))

	cached, ok := e.Cache().Peek(core.Contracts)
	require.True(t, ok)
	assert.Same(t, tbl, cached)

	onDisk, _, err := tablefile.Read(e.Paths().DatasetLocation(core.Contracts))
	require.NoError(t, err)
	assert.True(t, tbl.Equal(onDisk))

	contracts := core.Contracts
	events, err := e.History(ctx, &contracts, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventSaved, events[0].Kind)
	assert.Equal(t, 1, events[0].Rows)
}

func TestSave_InvalidTable(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, false)

	err := e.Save(ctx, core.Contracts, &core.Table{Columns: []core.Column{{Name: "a"}, {Name: "a"}}})
	var werr *core.WriteError
	require.ErrorAs(t, err, &werr)
	_, ok := e.Cache().Peek(core.Contracts)
	assert.False(t, ok)
}

func TestAppendRecord(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, true)

	first, err := e.AppendRecord(ctx, core.RiskMatrix, core.Record{
		"risco": core.Some("Atraso na entrega"),
		"causa": core.Some("Fornecedor"),
	})
	require.NoError(t, err)
	assert.Equal(t, core.Shape{Rows: 1, Columns: 7}, first.Shape())

	second, err := e.AppendRecord(ctx, core.RiskMatrix, core.Record{"risco": core.Some("Preço")})
	require.NoError(t, err)
	assert.Equal(t, 2, second.NumRows())
	assert.Equal(t, 1, first.NumRows(), "earlier snapshots are not modified")

	col, _ := second.Column("causa")
	assert.Equal(t, []core.Text{core.Some("Fornecedor"), core.Null()}, col.Values)

	e.Invalidate(core.RiskMatrix)
	reloaded, err := e.Table(ctx, core.RiskMatrix)
	require.NoError(t, err)
	assert.True(t, second.Equal(reloaded))
}

func TestAppendRecord_UnknownColumn(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, false)

	before, err := e.Table(ctx, core.Contracts)
	require.NoError(t, err)

	_, err = e.AppendRecord(ctx, core.Contracts, core.Record{"valor": core.Some("10")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown columns")

	after, err := e.Table(ctx, core.Contracts)
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, 0, after.NumRows())
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, true)

	src := filepath.Join(t.TempDir(), "dispensas.csv")
	csv := "ID Processo,NUP,Objeto Resumido,UASG,Observações\n" +
		"DE 15/2024,62055.000015/2024-01,Material de limpeza,787010,x\n" +
		"DE 16/2024,62055.000016/2024-02,Café,787010,y\n"
	require.NoError(t, os.WriteFile(src, []byte(csv), 0o600))

	rep, err := e.Import(ctx, core.ElectronicWaiver, src, "")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Rows)
	assert.Equal(t, []string{"Observações"}, rep.Dropped)

	tbl, err := e.Table(ctx, core.ElectronicWaiver)
	require.NoError(t, err)
	assert.Equal(t, catalog.Schema(core.ElectronicWaiver).Names(), tbl.ColumnNames())
	ano, _ := tbl.Column("ano")
	assert.Equal(t, []core.Text{core.Some("2024"), core.Some("2024")}, ano.Values)

	out := filepath.Join(t.TempDir(), "dispensas.parquet")
	require.NoError(t, e.Export(ctx, core.ElectronicWaiver, out, ""))
	assert.FileExists(t, out)

	waiver := core.ElectronicWaiver
	events, err := e.History(ctx, &waiver, 0)
	require.NoError(t, err)
	assert.Equal(t, []core.EventKind{core.EventExported, core.EventImported}, kinds(events))
	assert.Equal(t, out, events[0].Detail)

	// Re-importing our own export is lossless.
	_, err = e.Import(ctx, core.ElectronicWaiver, out, core.FormatParquet)
	require.NoError(t, err)
	again, err := e.Table(ctx, core.ElectronicWaiver)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(again))
}

func TestImport_Errors(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, false)

	_, err := e.Import(ctx, core.Contracts, "data.xlsx", "")
	require.Error(t, err)

	src := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(src, []byte("NUP,Objeto\n1,2\n"), 0o600))
	_, err = e.Import(ctx, core.ElectronicWaiver, src, core.FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")

	ok, err := e.store.Exists(core.ElectronicWaiver)
	require.NoError(t, err)
	assert.False(t, ok, "a rejected import writes nothing")
}

func TestExport_SchemalessDatasetFails(t *testing.T) {
	e := newTestEngine(t, false)
	err := e.Export(context.Background(), core.Minutes, filepath.Join(t.TempDir(), "atas.csv"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without columns")
}

func TestDatasets(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, false)

	_, err := e.Table(ctx, core.Planning)
	require.NoError(t, err)

	infos, err := e.Datasets()
	require.NoError(t, err)
	require.Len(t, infos, len(core.AllDatasets()))
	for _, info := range infos {
		assert.Equal(t, info.Dataset == core.Planning, info.Exists, info.Dataset.Name())
	}
}

func TestWatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := newTestEngine(t, false)
	_, err := e.Init(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx) }()

	require.Eventually(t, func() bool {
		e.watchMu.Lock()
		defer e.watchMu.Unlock()
		return e.watcher != nil
	}, 2*time.Second, 10*time.Millisecond)

	// Our own save keeps the cached table.
	_, err = e.AppendRecord(ctx, core.Contracts, core.Record{"numero": core.Some("1")})
	require.NoError(t, err)
	assert.Never(t, func() bool {
		_, ok := e.Cache().Peek(core.Contracts)
		return !ok
	}, 300*time.Millisecond, 20*time.Millisecond)

	// A write by someone else shortly after our own is still seen.
	external, err := core.FromRows([]string{"objeto"}, [][]string{{"a"}, {"b"}, {"c"}})
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, tablefile.WriteAtomic(e.Paths().DatasetLocation(core.Contracts), external))
	require.Eventually(t, func() bool {
		got, err := e.Table(ctx, core.Contracts)
		return err == nil && got.Shape() == core.Shape{Rows: 3, Columns: 1}
	}, 2*time.Second, 20*time.Millisecond)

	// Someone else's write invalidates.
	other := catalog.Schema(core.Planning).EmptyTable()
	require.NoError(t, tablefile.WriteAtomic(e.Paths().DatasetLocation(core.Planning), other))
	assert.Eventually(t, func() bool {
		_, ok := e.Cache().Peek(core.Planning)
		return !ok
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, false)
	_, err := e.Init(ctx)
	require.NoError(t, err)

	external, err := core.FromRows([]string{"objeto"}, [][]string{{"a"}, {"b"}})
	require.NoError(t, err)
	require.NoError(t, tablefile.WriteAtomic(e.Paths().DatasetLocation(core.Contracts), external))

	cached, err := e.Table(ctx, core.Contracts)
	require.NoError(t, err)
	assert.Equal(t, 0, cached.NumRows(), "not watching, so the cache still holds the old table")

	require.NoError(t, e.Reload(ctx))
	assert.Equal(t, core.AllDatasets(), e.Cache().Loaded())

	got, err := e.Table(ctx, core.Contracts)
	require.NoError(t, err)
	assert.True(t, external.Equal(got))
}
