// Package config loads prepare- and run-phase configuration using Koanf
// v2, layered the way the teacher does: struct defaults, then an
// optional YAML file, then environment variables, then CLI flags applied
// last as an explicit overlay (flags are parsed by the caller with the
// standard flag package, since these are one-shot CLI tools rather than
// a long-running server).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the default config file search.
const ConfigPathEnvVar = "ADCUBE_CONFIG_PATH"

// DefaultConfigPaths lists where a config file is searched for, in
// priority order.
var DefaultConfigPaths = []string{"adcube.yaml", "adcube.yml", "/etc/adcube/adcube.yaml"}

// PrepareConfig holds all settings for the prepare phase (C1-C5).
type PrepareConfig struct {
	DataDir      string        `koanf:"data_dir"`
	RollupDir    string        `koanf:"rollup_dir"`
	FallbackPath string        `koanf:"fallback_path"`
	Timezone     string        `koanf:"timezone"`
	BatchSize    int           `koanf:"batch_size"`
	FoldThresh   int           `koanf:"fold_threshold"`
	Threads      int           `koanf:"threads"`
	WallClockMax time.Duration `koanf:"wall_clock_budget"`
}

func defaultPrepareConfig() *PrepareConfig {
	return &PrepareConfig{
		DataDir:      "./data",
		RollupDir:    "./rollups",
		FallbackPath: "./rollups/fallback.duckdb",
		Timezone:     "UTC",
		BatchSize:    1 << 20,
		FoldThresh:   20,
		Threads:      0,
		WallClockMax: 10 * time.Minute,
	}
}

// RunConfig holds all settings for the run phase (C6-C9).
type RunConfig struct {
	RollupDir      string        `koanf:"rollup_dir"`
	QueryFile      string        `koanf:"query_file"`
	QueryDir       string        `koanf:"query_dir"`
	OutputDir      string        `koanf:"output_dir"`
	FallbackPath   string        `koanf:"fallback_path"`
	Timezone       string        `koanf:"timezone"`
	PreloadLimitMB int           `koanf:"preload_limit_mb"`
	WorkloadMax    time.Duration `koanf:"workload_budget"`
}

func defaultRunConfig() *RunConfig {
	return &RunConfig{
		RollupDir:      "./rollups",
		OutputDir:      "./output",
		FallbackPath:   "./rollups/fallback.duckdb",
		Timezone:       "UTC",
		PreloadLimitMB: 256,
		WorkloadMax:    1 * time.Second,
	}
}

func loadLayered(defaults interface{}) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("ADCUBE_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	return k, nil
}

// LoadPrepareConfig layers defaults, an optional YAML file, and
// ADCUBE_-prefixed environment variables into a PrepareConfig. Callers
// applying CLI flag overrides on top of the result must call Validate
// themselves once overrides are applied.
func LoadPrepareConfig() (*PrepareConfig, error) {
	k, err := loadLayered(defaultPrepareConfig())
	if err != nil {
		return nil, err
	}
	cfg := &PrepareConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal prepare config: %w", err)
	}
	return cfg, nil
}

// LoadRunConfig layers defaults, an optional YAML file, and
// ADCUBE_-prefixed environment variables into a RunConfig. Callers
// applying CLI flag overrides on top of the result must call Validate
// themselves once overrides are applied.
func LoadRunConfig() (*RunConfig, error) {
	k, err := loadLayered(defaultRunConfig())
	if err != nil {
		return nil, err
	}
	cfg := &RunConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal run config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform converts ADCUBE_DATA_DIR -> data_dir for koanf's dotted
// path scheme (flat configs here, so only the prefix strip + lowercase
// matters).
func envTransform(s string) string {
	return toKoanfKey(s)
}
