package server

import "time"

// DatasetSummary describes one dataset file.
type DatasetSummary struct {
	Dataset string `json:"dataset"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// TableResponse carries a dataset's rows. Null cells are null.
type TableResponse struct {
	Dataset   string      `json:"dataset"`
	Columns   []string    `json:"columns"`
	Rows      [][]*string `json:"rows"`
	TotalRows int         `json:"total_rows"`
}

// RecordRequest is the body of an append. A null value stores a null cell;
// columns left out are null too.
type RecordRequest struct {
	Values map[string]*string `json:"values"`
}

// RecordResponse reports the dataset shape after an append.
type RecordResponse struct {
	Dataset string `json:"dataset"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// Event is one journal entry.
type Event struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Dataset string    `json:"dataset"`
	Kind    string    `json:"kind"`
	Rows    int       `json:"rows"`
	Columns int       `json:"columns"`
	Detail  string    `json:"detail,omitempty"`
}

// ChangeSignal is patched into clients' signals when a dataset changes.
type ChangeSignal struct {
	Changed      string `json:"changed"`
	ShapeChanged bool   `json:"shapeChanged"`
}

type errorResponse struct {
	Error string `json:"error"`
}
