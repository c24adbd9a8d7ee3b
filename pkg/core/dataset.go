package core

import (
	"fmt"
	"strings"
)

// DatasetID identifies one logical dataset. The set is closed: every value
// the application knows about is declared below and listed by AllDatasets.
type DatasetID int

// Dataset identifiers, in their fixed enumeration order.
const (
	Contracts DatasetID = iota
	Planning
	Minutes
	ElectronicWaiver
	RiskMatrix
	Automations

	datasetCount
)

type datasetInfo struct {
	name  string // file stem and module directory name
	alias string // english identifier accepted on the command line
	title string // label shown in the panel menu
}

var datasets = [datasetCount]datasetInfo{
	Contracts:        {name: "contratos", alias: "contracts", title: "Contratos"},
	Planning:         {name: "planejamento", alias: "planning", title: "Planejamento"},
	Minutes:          {name: "atas", alias: "minutes", title: "Atas"},
	ElectronicWaiver: {name: "dispensa_eletronica", alias: "electronic-waiver", title: "Dispensa Eletrônica"},
	RiskMatrix:       {name: "matriz_riscos", alias: "risk-matrix", title: "Matriz de Riscos"},
	Automations:      {name: "automacoes", alias: "automations", title: "Automações"},
}

// AllDatasets returns every dataset in enumeration order.
func AllDatasets() []DatasetID {
	ids := make([]DatasetID, 0, datasetCount)
	for id := DatasetID(0); id < datasetCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Valid reports whether d is one of the declared datasets.
func (d DatasetID) Valid() bool {
	return d >= 0 && d < datasetCount
}

// Name returns the on-disk name of the dataset (e.g. "contratos").
// It panics for an undeclared identifier.
func (d DatasetID) Name() string {
	return d.info().name
}

// Alias returns the English identifier of the dataset (e.g. "contracts").
func (d DatasetID) Alias() string {
	return d.info().alias
}

// Title returns the human-readable label of the dataset.
func (d DatasetID) Title() string {
	return d.info().title
}

// String implements fmt.Stringer. Unlike Name it never panics.
func (d DatasetID) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DatasetID(%d)", int(d))
	}
	return datasets[d].name
}

func (d DatasetID) info() datasetInfo {
	if !d.Valid() {
		panic(fmt.Sprintf("core: unknown dataset id %d", int(d)))
	}
	return datasets[d]
}

// ParseDatasetID resolves a dataset from its name, alias or title.
// Matching ignores case and treats '-' and '_' as equivalent.
func ParseDatasetID(s string) (DatasetID, error) {
	key := normalizeDatasetKey(s)
	for id := DatasetID(0); id < datasetCount; id++ {
		info := datasets[id]
		if key == normalizeDatasetKey(info.name) ||
			key == normalizeDatasetKey(info.alias) ||
			key == normalizeDatasetKey(info.title) {
			return id, nil
		}
	}
	return 0, &UnknownDatasetError{Name: s}
}

func normalizeDatasetKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// DatasetNames returns the on-disk names of all datasets, in enumeration order.
func DatasetNames() []string {
	names := make([]string, 0, datasetCount)
	for _, id := range AllDatasets() {
		names = append(names, id.Name())
	}
	return names
}
