// Package config loads server configuration from .rholang-ls.kdl or
// rholang-ls.toml in the workspace root, layered under CLI flag overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config is the fully resolved server configuration.
type Config struct {
	Version     int
	Project     Project
	Index       Index
	Cache       Cache
	Performance Performance
	Include     []string
	Exclude     []string
}

// Project identifies the workspace.
type Project struct {
	Root string
	Name string
}

// Index controls workspace discovery and re-indexing.
type Index struct {
	MaxFileSize     int64
	WatchMode       bool // enable file system watching for automatic reindexing
	WatchDebounceMs int  // debounce time for file change events
}

// Cache controls the hot and cold document caches.
type Cache struct {
	Capacity   int    // hot LRU capacity in documents
	Persistent bool   // write the cold cache on shutdown
	Dir        string // override for the platform cache root, tests only
}

// Performance bounds resource use during the initial scan.
type Performance struct {
	ParallelFileWorkers int // 0 = auto-detect (NumCPU)
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Index: Index{
			MaxFileSize:     4 * 1024 * 1024,
			WatchMode:       true,
			WatchDebounceMs: 100,
		},
		Cache: Cache{
			Capacity:   50,
			Persistent: true,
		},
		Performance: Performance{
			ParallelFileWorkers: 0,
		},
	}
}

// Load resolves configuration for a workspace root: defaults, then
// .rholang-ls.kdl, then rholang-ls.toml (first one found wins).
func Load(rootDir string) (*Config, error) {
	cfg := Default()
	if rootDir != "" {
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootDir, err)
		}
		cfg.Project.Root = abs
	}

	if loaded, err := LoadKDL(cfg.Project.Root); err != nil {
		return nil, err
	} else if loaded != nil {
		merge(cfg, loaded)
		return cfg, cfg.Validate()
	}

	if loaded, err := LoadTOML(cfg.Project.Root); err != nil {
		return nil, err
	} else if loaded != nil {
		merge(cfg, loaded)
	}
	return cfg, cfg.Validate()
}

// merge overlays non-zero fields of src onto dst.
func merge(dst, src *Config) {
	if src.Version != 0 {
		dst.Version = src.Version
	}
	if src.Project.Root != "" {
		dst.Project.Root = src.Project.Root
	}
	if src.Project.Name != "" {
		dst.Project.Name = src.Project.Name
	}
	if src.Index.MaxFileSize != 0 {
		dst.Index.MaxFileSize = src.Index.MaxFileSize
	}
	if src.Index.WatchDebounceMs != 0 {
		dst.Index.WatchDebounceMs = src.Index.WatchDebounceMs
	}
	dst.Index.WatchMode = src.Index.WatchMode
	if src.Cache.Capacity != 0 {
		dst.Cache.Capacity = src.Cache.Capacity
	}
	dst.Cache.Persistent = src.Cache.Persistent
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Performance.ParallelFileWorkers != 0 {
		dst.Performance.ParallelFileWorkers = src.Performance.ParallelFileWorkers
	}
	if len(src.Include) > 0 {
		dst.Include = src.Include
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
}

// Validate checks that resolved values are within reasonable ranges.
func (c *Config) Validate() error {
	if c.Index.MaxFileSize < 0 {
		return fmt.Errorf("Index.MaxFileSize must be non-negative, got %d", c.Index.MaxFileSize)
	}
	if c.Index.WatchDebounceMs < 0 || c.Index.WatchDebounceMs > 60_000 {
		return fmt.Errorf("Index.WatchDebounceMs must be between 0 and 60000, got %d", c.Index.WatchDebounceMs)
	}
	if c.Cache.Capacity < 0 || c.Cache.Capacity > 100_000 {
		return fmt.Errorf("Cache.Capacity must be between 0 and 100000, got %d", c.Cache.Capacity)
	}
	if c.Performance.ParallelFileWorkers < 0 || c.Performance.ParallelFileWorkers > 16*runtime.NumCPU() {
		return fmt.Errorf("Performance.ParallelFileWorkers out of range: %d", c.Performance.ParallelFileWorkers)
	}
	return nil
}
