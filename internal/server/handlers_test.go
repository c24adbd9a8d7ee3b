package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/recordkeeper/internal/catalog"
	"github.com/leapstack-labs/recordkeeper/internal/engine"
	"github.com/leapstack-labs/recordkeeper/internal/tablefile"
	"github.com/leapstack-labs/recordkeeper/internal/testutil"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func newTestServer(t *testing.T, journal bool) (*Server, *httptest.Server) {
	t.Helper()

	base := t.TempDir()
	cfg := engine.Config{BaseDir: base, Logger: testutil.NewTestLogger(t)}
	if journal {
		cfg.JournalPath = filepath.Join(base, ".recordkeeper", "journal.db")
	}
	eng, err := engine.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	s := New(Config{Engine: eng, Logger: testutil.NewTestLogger(t)})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, v any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body)) //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

// =============================================================================
// API Tests
// =============================================================================

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp, err := http.Get(ts.URL + "/healthz") //nolint:noctx // test request
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDatasets(t *testing.T) {
	_, ts := newTestServer(t, false)

	var out []DatasetSummary
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/datasets", &out))
	require.Len(t, out, len(core.AllDatasets()))
	assert.Equal(t, "contratos", out[0].Dataset)
	assert.Equal(t, "Contratos", out[0].Title)
	assert.False(t, out[0].Exists)
}

func TestGetSchema(t *testing.T) {
	_, ts := newTestServer(t, false)

	var entry catalog.Entry
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/datasets/risk-matrix/schema", &entry))
	assert.Equal(t, "matriz_riscos", entry.Name)
	assert.Equal(t, catalog.Schema(core.RiskMatrix), entry.Columns)
}

func TestAddRecordAndGetDataset(t *testing.T) {
	_, ts := newTestServer(t, true)

	var rec RecordResponse
	status := postJSON(t, ts.URL+"/api/datasets/contratos/records",
		`{"values": {"numero": "12", "objeto": "Café", "nup": null}}`, &rec)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, RecordResponse{Dataset: "contratos", Rows: 1, Columns: 5}, rec)

	status = postJSON(t, ts.URL+"/api/datasets/contratos/records", `{"values": {"numero": "13"}}`, nil)
	require.Equal(t, http.StatusCreated, status)

	var table TableResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/datasets/contratos?limit=1", &table))
	assert.Equal(t, []string{"numero", "ano", "id_processo", "nup", "objeto"}, table.Columns)
	assert.Equal(t, 2, table.TotalRows)
	require.Len(t, table.Rows, 1)
	require.NotNil(t, table.Rows[0][4])
	assert.Equal(t, "Café", *table.Rows[0][4])
	assert.Nil(t, table.Rows[0][3])

	var events []Event
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/history?dataset=contracts", &events))
	require.Len(t, events, 2)
	assert.Equal(t, "saved", events[0].Kind)
	assert.Equal(t, 2, events[0].Rows)
}

func TestAPIErrors(t *testing.T) {
	_, ts := newTestServer(t, false)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown dataset",
			method:     http.MethodGet,
			path:       "/api/datasets/compras",
			wantStatus: http.StatusNotFound,
			wantError:  `unknown dataset "compras"`,
		},
		{
			name:       "invalid limit",
			method:     http.MethodGet,
			path:       "/api/datasets/contratos?limit=abc",
			wantStatus: http.StatusBadRequest,
			wantError:  `invalid limit "abc"`,
		},
		{
			name:       "unknown column",
			method:     http.MethodPost,
			path:       "/api/datasets/contratos/records",
			body:       `{"values": {"valor": "1"}}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "unknown columns: [valor]",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/datasets/contratos/records",
			body:       `{"numero": "1"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "empty record",
			method:     http.MethodPost,
			path:       "/api/datasets/contratos/records",
			body:       `{"values": {}}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "no values given",
		},
		{
			name:       "history without journal",
			method:     http.MethodGet,
			path:       "/api/history",
			wantStatus: http.StatusNotFound,
			wantError:  "activity journal is disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			var status int
			if tt.method == http.MethodPost {
				status = postJSON(t, ts.URL+tt.path, tt.body, &body)
			} else {
				status = getJSON(t, ts.URL+tt.path, &body)
			}
			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, body.Error, tt.wantError)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(&core.UnknownDatasetError{Name: "x"}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&core.UnknownColumnsError{Columns: []string{"x"}}))
	assert.Equal(t, http.StatusNotFound, statusFor(engine.ErrNoJournal))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

// =============================================================================
// Event Stream Tests
// =============================================================================

func TestEvents_ReportsAppends(t *testing.T) {
	s, ts := newTestServer(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)

	got := make(chan string, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return
		}
		defer func() { _ = resp.Body.Close() }()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.Contains(line, "changed") {
				got <- line
				return
			}
		}
	}()

	require.Eventually(t, func() bool { return s.Notifier().Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	status := postJSON(t, ts.URL+"/api/datasets/atas/records", `{"values": {"x": "1"}}`, nil)
	// Minutes has no declared columns, so any column is unknown.
	require.Equal(t, http.StatusBadRequest, status)

	status = postJSON(t, ts.URL+"/api/datasets/risk-matrix/records", `{"values": {"risco": "Atraso"}}`, nil)
	require.Equal(t, http.StatusCreated, status)

	select {
	case line := <-got:
		assert.Contains(t, line, `"changed":"matriz_riscos"`)
		assert.Contains(t, line, `"shapeChanged":true`)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event received")
	}
}

func TestReload_ReportsEveryDataset(t *testing.T) {
	s, ts := newTestServer(t, false)
	ctx := context.Background()
	_, err := s.engine.Init(ctx)
	require.NoError(t, err)
	s.handlers.observe()

	updates := s.Notifier().Subscribe()
	defer s.Notifier().Unsubscribe(updates)

	external, err := core.FromRows([]string{"objeto"}, [][]string{{"a"}})
	require.NoError(t, err)
	require.NoError(t, tablefile.WriteAtomic(s.engine.Paths().DatasetLocation(core.Contracts), external))

	var out []DatasetSummary
	require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/datasets/reload", "", &out))
	require.Len(t, out, len(core.AllDatasets()))

	got := make(map[core.DatasetID]bool)
	for range core.AllDatasets() {
		select {
		case c := <-updates:
			got[c.Dataset] = c.ShapeChanged
		case <-time.After(2 * time.Second):
			t.Fatal("missing change event")
		}
	}
	want := make(map[core.DatasetID]bool)
	for _, id := range core.AllDatasets() {
		want[id] = false
	}
	want[core.Contracts] = true
	assert.Equal(t, want, got)
}

func TestServeListener(t *testing.T) {
	base := t.TempDir()
	eng, err := engine.New(engine.Config{BaseDir: base, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	defer func() { _ = eng.Close() }()
	_, err = eng.Init(context.Background())
	require.NoError(t, err)

	s := New(Config{Engine: eng, Watch: true, Logger: testutil.NewTestLogger(t)})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz") //nolint:noctx // test request
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, DefaultAddr, s.addr)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.Notifier())
}
