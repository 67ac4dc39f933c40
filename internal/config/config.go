// Package config loads notebook settings from a YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/notebook/internal/serde"
)

// DefaultDatabaseURI is used when nothing else names a backend.
const DefaultDatabaseURI = "sqlite:///experiments.db"

// Environment variables read by Load.
const (
	EnvDatabase    = "NOTEBOOK_DATABASE"
	EnvStrictTypes = "NOTEBOOK_STRICT_TYPES"
	EnvLogLevel    = "NOTEBOOK_LOG_LEVEL"
)

// Config holds notebook settings.
type Config struct {
	// DatabaseURI names the default backend, see store.Open.
	DatabaseURI string `yaml:"database"`

	// SkipUnknownTypes encodes values of unregistered types as null instead
	// of failing the record.
	SkipUnknownTypes bool `yaml:"skip_unknown_types"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DatabaseURI:      DefaultDatabaseURI,
		SkipUnknownTypes: true,
		LogLevel:         "info",
	}
}

// Load reads settings from path, then applies environment overrides.
// An empty path skips the file. Fields absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}

		// Reject unknown fields so typos surface
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		c.DatabaseURI = v
	}
	if v, ok := lookup(EnvStrictTypes); ok && v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrictTypes, err)
		}
		c.SkipUnknownTypes = !strict
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks that required fields are present and valid.
func (c Config) Validate() error {
	if c.DatabaseURI == "" {
		return fmt.Errorf("database is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level is info.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// Policy returns the unknown-type policy the settings select.
func (c Config) Policy() serde.UnknownPolicy {
	if c.SkipUnknownTypes {
		return serde.SkipUnknown
	}
	return serde.StrictUnknown
}

// Codec returns a codec over the built-in registry with the selected policy.
func (c Config) Codec() *serde.Codec {
	return serde.NewCodec(nil, c.Policy())
}
