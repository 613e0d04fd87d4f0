package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level typeval.yaml configuration.
type Config struct {
	// MaxDepth bounds nested conditional resolutions and subtype recursion.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// CacheSize is the number of memoized checker results. Negative
	// disables the cache.
	CacheSize int `yaml:"cache_size,omitempty"`

	// TemplateTimeout caps a single template pattern match.
	TemplateTimeout time.Duration `yaml:"template_timeout,omitempty"`

	// Parallelism limits how many queries of a document run at once.
	Parallelism int `yaml:"parallelism,omitempty"`

	Log   LogConfig   `yaml:"log,omitempty"`
	Store StoreConfig `yaml:"store,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// File, when set, receives logs through a rotating writer instead of
	// stderr. Relative paths are resolved against the config file.
	File string `yaml:"file,omitempty"`

	MaxSizeMB  int `yaml:"max_size_mb,omitempty"`
	MaxBackups int `yaml:"max_backups,omitempty"`
}

// StoreConfig points at the SQLite result store. An empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	var cfg Config
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a typeval.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses typeval.yaml content from bytes.
// The path argument is used for error messages and to resolve relative
// file paths.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	cfg.resolvePaths(filepath.Dir(path))
	return &cfg, nil
}

// FindConfig searches for typeval.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, ext := range DocumentFileExtensions {
			candidate := filepath.Join(dir, ConfigBaseName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("%s: max_depth must not be negative, got %d", path, c.MaxDepth)
	}
	if c.TemplateTimeout < 0 {
		return fmt.Errorf("%s: template_timeout must not be negative, got %s", path, c.TemplateTimeout)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%s: parallelism must not be negative, got %d", path, c.Parallelism)
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%s: log.level: %w", path, err)
		}
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("%s: log rotation limits must not be negative", path)
	}
	if c.Log.File == "" && (c.Log.MaxSizeMB > 0 || c.Log.MaxBackups > 0) {
		return fmt.Errorf("%s: log rotation is only valid with log.file", path)
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.TemplateTimeout == 0 {
		c.TemplateTimeout = DefaultTemplateTimeout
	}
	if c.Parallelism == 0 {
		c.Parallelism = DefaultParallelism
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB == 0 {
			c.Log.MaxSizeMB = DefaultLogMaxSizeMB
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = DefaultLogMaxBackups
		}
	}
}

func (c *Config) resolvePaths(configDir string) {
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(configDir, c.Log.File)
	}
	if c.Store.Path != "" && !filepath.IsAbs(c.Store.Path) {
		c.Store.Path = filepath.Join(configDir, c.Store.Path)
	}
}

// CacheEnabled reports whether checker results are memoized.
func (c *Config) CacheEnabled() bool { return c.CacheSize > 0 }
