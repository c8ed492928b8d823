// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config defines the single immutable configuration record
// threaded through the analysis pipeline. There is no process-wide
// config singleton: every stage receives the Config it needs as a
// plain value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/hcaa/internal/errors"
)

// LLMConfig configures the optional stage-5 grounding call.
type LLMConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Provider     string        `yaml:"provider"`      // ollama, openai, anthropic, mock
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key,omitempty"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
}

// CacheConfig configures the external analysis-result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// Config is the fully-resolved, immutable set of analysis settings.
// One Config is built per run and passed by value to every stage; no
// stage mutates it or reads from the environment directly.
type Config struct {
	// ProjectRoot is the absolute path of the directory being analyzed.
	ProjectRoot string `yaml:"-"`

	// ExcludeGlobs are path patterns excluded from segment extraction,
	// in addition to the ingestion package's built-in defaults.
	ExcludeGlobs []string `yaml:"exclude"`

	// MaxFileSizeBytes caps the size of any single file read during
	// segment extraction (spec.md's 10 MiB per-file read cap).
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`

	// ParseWorkers bounds the stage-2 worker pool. Zero means
	// runtime.NumCPU().
	ParseWorkers int `yaml:"parse_workers"`

	// LLM configures stage 5. Grounding is skipped entirely when
	// Enabled is false, and fusion weights are redistributed 0.57/0.43.
	LLM LLMConfig `yaml:"llm"`

	// Cache configures the external short-circuit cache consulted
	// before a run and written to after one.
	Cache CacheConfig `yaml:"cache"`

	// JSON requests machine-readable output from the CLI front-end.
	JSON bool `yaml:"-"`

	// NoColor disables ANSI color in terminal output.
	NoColor bool `yaml:"-"`
}

// Defaults returns the built-in configuration baseline, the lowest
// rung of the priority order (explicit params > env vars > config
// file > defaults).
func Defaults() Config {
	return Config{
		ExcludeGlobs:     nil,
		MaxFileSizeBytes: 10 * 1024 * 1024,
		ParseWorkers:     runtime.NumCPU(),
		LLM: LLMConfig{
			Enabled:    false,
			Provider:   "ollama",
			BaseURL:    "http://localhost:11434",
			Model:      "llama3.1",
			Timeout:    120 * time.Second,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".hcaa/cache",
			TTL:     24 * time.Hour,
		},
	}
}

// fileConfig mirrors the subset of Config fields a .hcaa.yaml file may
// override. It is unmarshaled separately from Config so a missing or
// empty file never clobbers defaults with zero values.
type fileConfig struct {
	Exclude          []string       `yaml:"exclude"`
	MaxFileSizeBytes int64          `yaml:"max_file_size_bytes"`
	ParseWorkers     int            `yaml:"parse_workers"`
	LLM              *LLMConfig     `yaml:"llm"`
	Cache            *CacheConfig   `yaml:"cache"`
}

// Load resolves a Config for projectRoot by layering, lowest priority
// first: built-in defaults, then a `.hcaa.yaml` file at projectRoot (if
// present), then environment variables, then explicit overrides passed
// by the caller (typically parsed CLI flags). Each layer only replaces
// a field when it is actually set by that layer.
func Load(projectRoot string, overrides Config) (Config, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return Config{}, errors.NewInputError(
			"Invalid project root",
			err.Error(),
			"Pass an existing directory path to analyze",
		)
	}

	cfg := Defaults()
	cfg.ProjectRoot = absRoot

	if err := applyFile(&cfg, absRoot); err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)
	applyOverrides(&cfg, overrides)

	return cfg, nil
}

// applyFile merges `.hcaa.yaml` at root into cfg, if the file exists.
// A malformed file is a configuration error; a missing file is not.
func applyFile(cfg *Config, root string) error {
	path := filepath.Join(root, ".hcaa.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewConfigError(
			"Cannot read hcaa configuration",
			fmt.Sprintf("failed to read %s: %v", path, err),
			"Check the file's permissions or remove it to use defaults",
			err,
		)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return errors.NewConfigError(
			"Cannot load hcaa configuration",
			fmt.Sprintf("%s is malformed: %v", path, err),
			"Check the file against the documented schema or delete it to use defaults",
			err,
		)
	}

	if fc.Exclude != nil {
		cfg.ExcludeGlobs = fc.Exclude
	}
	if fc.MaxFileSizeBytes > 0 {
		cfg.MaxFileSizeBytes = fc.MaxFileSizeBytes
	}
	if fc.ParseWorkers > 0 {
		cfg.ParseWorkers = fc.ParseWorkers
	}
	if fc.LLM != nil {
		cfg.LLM = *fc.LLM
	}
	if fc.Cache != nil {
		cfg.Cache = *fc.Cache
	}
	return nil
}

// applyEnv layers environment variable overrides onto cfg, matching
// the teacher's OLLAMA_HOST / OLLAMA_EMBED_MODEL convention.
func applyEnv(cfg *Config) {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.LLM.BaseURL = host
	}
	if model := os.Getenv("OLLAMA_EMBED_MODEL"); model != "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.Model = model
	}
	if key := os.Getenv("HCAA_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
}

// applyOverrides layers explicit, highest-priority values (normally
// bound from CLI flags) onto cfg. A zero-value field in overrides is
// treated as "not set" and left alone, except for the boolean display
// flags which are only ever turned on by an override.
func applyOverrides(cfg *Config, overrides Config) {
	if len(overrides.ExcludeGlobs) > 0 {
		cfg.ExcludeGlobs = overrides.ExcludeGlobs
	}
	if overrides.MaxFileSizeBytes > 0 {
		cfg.MaxFileSizeBytes = overrides.MaxFileSizeBytes
	}
	if overrides.ParseWorkers > 0 {
		cfg.ParseWorkers = overrides.ParseWorkers
	}
	if overrides.LLM.Provider != "" {
		cfg.LLM.Provider = overrides.LLM.Provider
	}
	if overrides.LLM.BaseURL != "" {
		cfg.LLM.BaseURL = overrides.LLM.BaseURL
	}
	if overrides.LLM.Model != "" {
		cfg.LLM.Model = overrides.LLM.Model
	}
	if overrides.LLM.Enabled {
		cfg.LLM.Enabled = true
	}
	if overrides.Cache.Dir != "" {
		cfg.Cache.Dir = overrides.Cache.Dir
	}
	if overrides.JSON {
		cfg.JSON = true
	}
	if overrides.NoColor {
		cfg.NoColor = true
	}
}
