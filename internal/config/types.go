// Package config provides shared configuration for colgraph. It is
// decoupled from CLI concerns so the server and other tools can load the
// same settings.
package config

import (
	"fmt"
	"time"
)

// Output formats supported by the CLI renderers.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputCSV   = "csv"
)

// Config holds the full colgraph configuration.
type Config struct {
	// StorePath is the SQLite graph database path; ":memory:" keeps the
	// graph in process.
	StorePath string `koanf:"store_path"`

	// FactsDir is the directory watched for analyzer fact files.
	FactsDir string `koanf:"facts_dir"`

	// Traversal limits.
	MaxDepth     int `koanf:"max_depth"`
	MaxVisited   int `koanf:"max_visited"`
	MaxNeighbors int `koanf:"max_neighbors"`

	PageSize     int           `koanf:"page_size"`
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// ListenAddr is the HTTP API bind address.
	ListenAddr string `koanf:"listen_addr"`

	Verbose bool   `koanf:"verbose"`
	Output  string `koanf:"output"`
}

// Validate checks bounds and enumerations after all sources are merged.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputTable, OutputJSON, OutputCSV:
	default:
		return fmt.Errorf("invalid output format %q (expected table, json, or csv)", c.Output)
	}
	if c.MaxDepth < 0 || c.MaxVisited < 0 || c.MaxNeighbors < 0 {
		return fmt.Errorf("traversal limits must not be negative")
	}
	if c.PageSize < 0 {
		return fmt.Errorf("page_size must not be negative")
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path is required")
	}
	return nil
}
