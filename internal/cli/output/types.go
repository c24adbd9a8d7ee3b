package output

// DatasetInfo describes one dataset file in list output.
type DatasetInfo struct {
	Dataset string `json:"dataset"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Size    int64  `json:"size_bytes"`
}

// ListOutput is the JSON output of the list command.
type ListOutput struct {
	BaseDir  string        `json:"base_dir"`
	Datasets []DatasetInfo `json:"datasets"`
}

// InitResult is one dataset's entry in init output.
type InitResult struct {
	Dataset string `json:"dataset"`
	Outcome string `json:"outcome"`
	Path    string `json:"path"`
}

// TableOutput is the JSON output of the show command. Null cells are null.
type TableOutput struct {
	Dataset   string      `json:"dataset"`
	Columns   []string    `json:"columns"`
	Rows      [][]*string `json:"rows"`
	TotalRows int         `json:"total_rows"`
}

// HistoryEntry is one journal event in history output.
type HistoryEntry struct {
	ID      string `json:"id"`
	At      string `json:"at"`
	Dataset string `json:"dataset"`
	Kind    string `json:"kind"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Detail  string `json:"detail,omitempty"`
}

// ImportOutput is the JSON output of the import command.
type ImportOutput struct {
	Dataset string            `json:"dataset"`
	Source  string            `json:"source"`
	Rows    int               `json:"rows"`
	Mapped  map[string]string `json:"mapped"`
	Dropped []string          `json:"dropped"`
	Filled  []string          `json:"filled"`
}
