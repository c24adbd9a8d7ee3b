package core

import (
	"context"
	"time"
)

// Journal defines the interface for the activity journal.
// The journal is advisory: dataset files remain the source of truth.
type Journal interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Record appends an event. Empty ID and zero At are filled in.
	Record(ctx context.Context, ev *Event) error

	// List returns events newest first. A nil dataset lists every dataset;
	// limit <= 0 means no limit.
	List(ctx context.Context, dataset *DatasetID, limit int) ([]*Event, error)
}

// EventKind classifies a journal event.
type EventKind string

// Event kind constants.
const (
	EventCreated  EventKind = "created"
	EventSaved    EventKind = "saved"
	EventImported EventKind = "imported"
	EventExported EventKind = "exported"
)

// Event records one persistence action against a dataset.
type Event struct {
	ID      string
	Dataset DatasetID
	Kind    EventKind
	Rows    int
	Columns int
	Detail  string
	At      time.Time
}
