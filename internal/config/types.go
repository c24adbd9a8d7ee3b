package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/leapstack-labs/recordkeeper/pkg/adapter"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// AdapterSection configures the file adapter used for import and export.
type AdapterSection struct {
	Type    string            `koanf:"type" yaml:"type"`
	Path    string            `koanf:"path" yaml:"path,omitempty"`
	Options map[string]string `koanf:"options" yaml:"options,omitempty"`
	Params  map[string]any    `koanf:"params" yaml:"params,omitempty"`
}

// Validate checks that the adapter type is registered.
func (a *AdapterSection) Validate() error {
	if a == nil {
		return nil
	}
	if a.Type == "" {
		return fmt.Errorf("adapter type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(a.Type)) {
		return &adapter.UnknownAdapterError{Type: a.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

// FileBacked reports whether Path names a database file. Other adapters
// carry a connection string there.
func (a *AdapterSection) FileBacked() bool {
	return a != nil && strings.EqualFold(a.Type, "duckdb")
}

// ToAdapterConfig converts the section to the adapter registry's config.
func (a *AdapterSection) ToAdapterConfig() core.AdapterConfig {
	if a == nil {
		return core.AdapterConfig{}
	}
	return core.AdapterConfig{
		Type:    strings.ToLower(a.Type),
		Path:    a.Path,
		Options: maps.Clone(a.Options),
		Params:  maps.Clone(a.Params),
	}
}
