// Package config provides configuration management for the recordkeeper CLI.
//
// This package layers CLI-specific fields over the shared configuration in
// internal/config.
package config

import (
	sharedcfg "github.com/leapstack-labs/recordkeeper/internal/config"
)

// AdapterSection is an alias for the shared adapter configuration.
type AdapterSection = sharedcfg.AdapterSection

// DefaultServeAddr is the listen address of the serve command.
const DefaultServeAddr = "localhost:8765"

// ServeConfig holds configuration for the HTTP server.
type ServeConfig struct {
	Addr  string `koanf:"addr"`
	Watch *bool  `koanf:"watch"`
}

// DefaultServeConfig returns a ServeConfig with default values.
func DefaultServeConfig() *ServeConfig {
	watch := true
	return &ServeConfig{Addr: DefaultServeAddr, Watch: &watch}
}

// GetServeConfig returns the serve config with defaults applied for any unset values.
func (c *Config) GetServeConfig() *ServeConfig {
	if c.Serve == nil {
		return DefaultServeConfig()
	}
	out := *c.Serve
	defaults := DefaultServeConfig()
	if out.Addr == "" {
		out.Addr = defaults.Addr
	}
	if out.Watch == nil {
		out.Watch = defaults.Watch
	}
	return &out
}

// Config holds all CLI configuration options.
type Config struct {
	BaseDir      string          `koanf:"base_dir"`
	JournalPath  string          `koanf:"journal_path"`
	NoJournal    bool            `koanf:"no_journal"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output"`
	LogLevel     string          `koanf:"log_level"`
	Adapter      *AdapterSection `koanf:"adapter"`
	Serve        *ServeConfig    `koanf:"serve"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultJournalFile = sharedcfg.DefaultJournalFile
	DefaultOutput      = sharedcfg.DefaultOutput
	DefaultLogLevel    = sharedcfg.DefaultLogLevel
)
