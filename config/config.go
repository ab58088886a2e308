// Package config loads the YAML configuration of the multires tool.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	LogLevel        string       `yaml:"log_level"`
	Workers         int          `yaml:"workers"`
	MinFacesPerTask int          `yaml:"min_faces_per_task"`
	Compression     string       `yaml:"compression"`
	StoreDir        string       `yaml:"store_dir"`
	Export          ExportConfig `yaml:"export"`
}

type ExportConfig struct {
	Generator string `yaml:"generator"`
}

const (
	defaultGenerator   = "multires"
	defaultCompression = "zstd"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		Compression: defaultCompression,
		Export:      ExportConfig{Generator: defaultGenerator},
	}
}

// GetWorkers returns the evaluator worker count: config, then MULTIRES_WORKERS,
// then 0 (one per CPU).
func (c *Config) GetWorkers() int {
	return getIntWithEnvFallback(c.Workers, "MULTIRES_WORKERS", 0)
}

// GetMinFacesPerTask returns the smallest face batch handed to a worker.
func (c *Config) GetMinFacesPerTask() int {
	return getIntWithEnvFallback(c.MinFacesPerTask, "MULTIRES_MIN_FACES", 0)
}

// SlogLevel parses LogLevel. Unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// getIntWithEnvFallback returns the value by priority: config, env, default.
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// Load reads the YAML file at path. If path is empty MULTIRES_CONFIG is used;
// with neither set, or when the file does not exist, defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MULTIRES_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Export.Generator == "" {
		cfg.Export.Generator = defaultGenerator
	}
	return cfg, nil
}
