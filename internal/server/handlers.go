package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/recordkeeper/internal/catalog"
	"github.com/leapstack-labs/recordkeeper/internal/engine"
	"github.com/leapstack-labs/recordkeeper/internal/server/notifier"
	"github.com/leapstack-labs/recordkeeper/pkg/change"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// maxRecordBody bounds the size of an append request.
const maxRecordBody = 1 << 20

// Handlers serves the API routes.
type Handlers struct {
	engine   *engine.Engine
	notifier *notifier.Notifier
	detector change.Detector
	logger   *slog.Logger
}

// NewHandlers creates the route handlers.
func NewHandlers(eng *engine.Engine, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{engine: eng, notifier: notify, logger: logger}
}

// ListDatasets returns every dataset with its file status.
func (h *Handlers) ListDatasets(w http.ResponseWriter, _ *http.Request) {
	infos, err := h.engine.Datasets()
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]DatasetSummary, len(infos))
	for i, info := range infos {
		out[i] = DatasetSummary{
			Dataset: info.Dataset.Name(),
			Title:   info.Dataset.Title(),
			Path:    info.Path,
			Exists:  info.Exists,
			Rows:    info.Shape.Rows,
			Columns: info.Shape.Columns,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDataset returns a dataset's rows. The optional limit query parameter
// caps the number of rows returned.
func (h *Handlers) GetDataset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.datasetParam(w, r)
	if !ok {
		return
	}
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}

	t, err := h.engine.Table(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	n := t.NumRows()
	if limit > 0 && limit < n {
		n = limit
	}
	out := TableResponse{
		Dataset:   id.Name(),
		Columns:   t.ColumnNames(),
		Rows:      make([][]*string, n),
		TotalRows: t.NumRows(),
	}
	for i := range n {
		row := t.Row(i)
		cells := make([]*string, len(row))
		for c, v := range row {
			if v.Valid {
				s := v.Value
				cells[c] = &s
			}
		}
		out.Rows[i] = cells
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSchema returns a dataset's creation schema.
func (h *Handlers) GetSchema(w http.ResponseWriter, r *http.Request) {
	id, ok := h.datasetParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, catalog.Lookup(id))
}

// AddRecord appends one record to a dataset and reports the change to
// event subscribers.
func (h *Handlers) AddRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.datasetParam(w, r)
	if !ok {
		return
	}

	var req RecordRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if len(req.Values) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no values given"})
		return
	}

	rec := make(core.Record, len(req.Values))
	for name, v := range req.Values {
		if v == nil {
			rec[name] = core.Null()
		} else {
			rec[name] = core.Some(*v)
		}
	}

	t, err := h.engine.AppendRecord(r.Context(), id, rec)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.announce(id, t)
	writeJSON(w, http.StatusCreated, RecordResponse{Dataset: id.Name(), Rows: t.NumRows(), Columns: t.NumColumns()})
}

// Reload drops every cached table, reads all datasets from disk again and
// reports each one to event subscribers. It responds like ListDatasets.
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reload(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	for _, id := range core.AllDatasets() {
		h.publish(r.Context(), id)
	}
	h.ListDatasets(w, r)
}

// observe records the cached tables as what subscribers have already seen.
func (h *Handlers) observe() {
	for _, id := range h.engine.Cache().Loaded() {
		if t, ok := h.engine.Cache().Peek(id); ok {
			h.detector.Changed(id, t)
		}
	}
}

// publish re-reads id and reports it to event subscribers. A dataset that
// cannot be read counts as a shape change.
func (h *Handlers) publish(ctx context.Context, id core.DatasetID) {
	t, err := h.engine.Table(ctx, id)
	if err != nil {
		h.logger.Warn("failed to read changed dataset", "dataset", id.Name(), "error", err)
		h.detector.Forget(id)
		h.notifier.Broadcast(notifier.Change{Dataset: id, ShapeChanged: true})
		return
	}
	h.announce(id, t)
}

func (h *Handlers) announce(id core.DatasetID, t *core.Table) {
	h.notifier.Broadcast(notifier.Change{Dataset: id, ShapeChanged: h.detector.Changed(id, t)})
}

// History returns journal events, newest first. Query parameters: dataset
// and limit (default 50).
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	var filter *core.DatasetID
	if name := r.URL.Query().Get("dataset"); name != "" {
		id, err := core.ParseDatasetID(name)
		if err != nil {
			h.writeError(w, err)
			return
		}
		filter = &id
	}
	limit := 50
	if r.URL.Query().Has("limit") {
		var ok bool
		if limit, ok = intQuery(w, r, "limit"); !ok {
			return
		}
	}

	events, err := h.engine.History(r.Context(), filter, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = Event{
			ID:      ev.ID,
			At:      ev.At,
			Dataset: ev.Dataset.String(),
			Kind:    string(ev.Kind),
			Rows:    ev.Rows,
			Columns: ev.Columns,
			Detail:  ev.Detail,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Events streams a signal patch for every changed dataset until the client
// disconnects.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-updates:
			if err := sse.MarshalAndPatchSignals(ChangeSignal{Changed: c.Dataset.Name(), ShapeChanged: c.ShapeChanged}); err != nil {
				h.logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}

func (h *Handlers) datasetParam(w http.ResponseWriter, r *http.Request) (core.DatasetID, bool) {
	id, err := core.ParseDatasetID(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return 0, false
	}
	return id, true
}

func intQuery(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid %s %q", key, raw)})
		return 0, false
	}
	return n, true
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var (
		unknownDataset *core.UnknownDatasetError
		unknownColumns *core.UnknownColumnsError
	)
	switch {
	case errors.As(err, &unknownDataset):
		return http.StatusNotFound
	case errors.As(err, &unknownColumns):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoJournal):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
