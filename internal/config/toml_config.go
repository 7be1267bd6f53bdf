package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlFileName is the alternative configuration file for editors whose
// tooling prefers TOML.
const tomlFileName = "rholang-ls.toml"

// tomlConfig mirrors Config with the field tags the TOML layout uses.
type tomlConfig struct {
	Version int `toml:"version"`
	Project struct {
		Root string `toml:"root"`
		Name string `toml:"name"`
	} `toml:"project"`
	Index struct {
		MaxFileSize     int64 `toml:"max_file_size"`
		WatchMode       *bool `toml:"watch_mode"`
		WatchDebounceMs int   `toml:"watch_debounce_ms"`
	} `toml:"index"`
	Cache struct {
		Capacity   int    `toml:"capacity"`
		Persistent *bool  `toml:"persistent"`
		Dir        string `toml:"dir"`
	} `toml:"cache"`
	Performance struct {
		ParallelFileWorkers int `toml:"parallel_file_workers"`
	} `toml:"performance"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML attempts to load configuration from rholang-ls.toml in the
// project root. A missing file returns (nil, nil).
func LoadTOML(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, tomlFileName)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", tomlFileName, err)
	}

	var raw tomlConfig
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", tomlFileName, err)
	}

	cfg := Default()
	if raw.Version != 0 {
		cfg.Version = raw.Version
	}
	if raw.Project.Root != "" {
		cfg.Project.Root = raw.Project.Root
	}
	cfg.Project.Name = raw.Project.Name
	if raw.Index.MaxFileSize != 0 {
		cfg.Index.MaxFileSize = raw.Index.MaxFileSize
	}
	if raw.Index.WatchMode != nil {
		cfg.Index.WatchMode = *raw.Index.WatchMode
	}
	if raw.Index.WatchDebounceMs != 0 {
		cfg.Index.WatchDebounceMs = raw.Index.WatchDebounceMs
	}
	if raw.Cache.Capacity != 0 {
		cfg.Cache.Capacity = raw.Cache.Capacity
	}
	if raw.Cache.Persistent != nil {
		cfg.Cache.Persistent = *raw.Cache.Persistent
	}
	cfg.Cache.Dir = raw.Cache.Dir
	if raw.Performance.ParallelFileWorkers != 0 {
		cfg.Performance.ParallelFileWorkers = raw.Performance.ParallelFileWorkers
	}
	if len(raw.Include) > 0 {
		cfg.Include = raw.Include
	}
	if len(raw.Exclude) > 0 {
		cfg.Exclude = raw.Exclude
	}
	resolveRoot(cfg, projectRoot)
	return cfg, nil
}
