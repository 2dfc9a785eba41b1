package config

import "time"

// Default configuration values.
const (
	DefaultStorePath    = "colgraph.db"
	DefaultFactsDir     = "facts"
	DefaultMaxDepth     = 5
	DefaultMaxVisited   = 100_000
	DefaultPageSize     = 1000
	DefaultQueryTimeout = 30 * time.Second
	DefaultListenAddr   = ":8080"
	DefaultOutput       = OutputTable
)

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.StorePath == "" {
		c.StorePath = DefaultStorePath
	}
	if c.FactsDir == "" {
		c.FactsDir = DefaultFactsDir
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxVisited == 0 {
		c.MaxVisited = DefaultMaxVisited
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}
