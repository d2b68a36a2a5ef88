// Package config provides configuration loading and management for icfc.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config represents the complete icfc configuration
type Config struct {
	Compile CompileConfig `yaml:"compile"`
	Watch   WatchConfig   `yaml:"watch"`
	Query   QueryConfig   `yaml:"query"`
	Log     LogConfig     `yaml:"log"`
}

// CompileConfig configures the CLAML to JSON compilation
type CompileConfig struct {
	// Input is the CLAML XML document to compile
	Input string `yaml:"input"`
	// OutDir is the dataset directory (default: icf_json)
	OutDir string `yaml:"out_dir"`
	// Lang is the language tag texts are selected in (default: en)
	Lang string `yaml:"lang"`
	// DefaultLang applies to untagged labels when the document declares no language
	DefaultLang string `yaml:"default_lang"`
	// LanguagePolicy is strict or fallback (default: strict)
	LanguagePolicy string `yaml:"language_policy"`
	// Clean normalises whitespace and strips markup
	Clean bool `yaml:"clean"`
	// Flatten lists all descendants per chapter and writes icf_flat.json
	Flatten bool `yaml:"flatten"`
	// Markdown adds description_markdown to detail records
	Markdown bool `yaml:"markdown"`
	// Stats prints a summary after writing
	Stats bool `yaml:"stats"`
	// Prune removes JSON files of earlier runs
	Prune bool `yaml:"prune"`
}

// WatchConfig configures recompilation on input changes
type WatchConfig struct {
	// Debounce is the quiet period before a change triggers a run
	Debounce time.Duration `yaml:"debounce"`
}

// QueryConfig configures dataset queries
type QueryConfig struct {
	// Source is a dataset directory or raw base URL (default: compile.out_dir)
	Source string `yaml:"source"`
	// Timeout bounds a query against a remote source
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is debug, info, warn or error (default: info)
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Compile: CompileConfig{
			OutDir:         "icf_json",
			Lang:           "en",
			LanguagePolicy: "strict",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Query: QueryConfig{
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Compile.Lang == "" {
		return fmt.Errorf("compile.lang is required")
	}
	if _, err := language.Parse(c.Compile.Lang); err != nil {
		return fmt.Errorf("compile.lang %q is not a valid language tag", c.Compile.Lang)
	}
	if c.Compile.DefaultLang != "" {
		if _, err := language.Parse(c.Compile.DefaultLang); err != nil {
			return fmt.Errorf("compile.default_lang %q is not a valid language tag", c.Compile.DefaultLang)
		}
	}
	switch c.Compile.LanguagePolicy {
	case "strict", "fallback":
	default:
		return fmt.Errorf("compile.language_policy must be strict or fallback")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Query.Timeout < 0 {
		return fmt.Errorf("query.timeout must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values).
// Boolean switches can only be turned on by a layer; flags turn them off.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Compile
	if other.Compile.Input != "" {
		c.Compile.Input = other.Compile.Input
	}
	if other.Compile.OutDir != "" {
		c.Compile.OutDir = other.Compile.OutDir
	}
	if other.Compile.Lang != "" {
		c.Compile.Lang = other.Compile.Lang
	}
	if other.Compile.DefaultLang != "" {
		c.Compile.DefaultLang = other.Compile.DefaultLang
	}
	if other.Compile.LanguagePolicy != "" {
		c.Compile.LanguagePolicy = other.Compile.LanguagePolicy
	}
	c.Compile.Clean = c.Compile.Clean || other.Compile.Clean
	c.Compile.Flatten = c.Compile.Flatten || other.Compile.Flatten
	c.Compile.Markdown = c.Compile.Markdown || other.Compile.Markdown
	c.Compile.Stats = c.Compile.Stats || other.Compile.Stats
	c.Compile.Prune = c.Compile.Prune || other.Compile.Prune

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Query
	if other.Query.Source != "" {
		c.Query.Source = other.Query.Source
	}
	if other.Query.Timeout != 0 {
		c.Query.Timeout = other.Query.Timeout
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
