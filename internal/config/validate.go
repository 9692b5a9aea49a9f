package config

import (
	"strings"

	"github.com/adcube-dev/adcube/internal/apperr"
)

func toKoanfKey(envKey string) string {
	k := strings.TrimPrefix(envKey, "ADCUBE_")
	return strings.ToLower(k)
}

// Validate checks PrepareConfig invariants: required directories must be
// set, numeric knobs must be positive.
func (c *PrepareConfig) Validate() error {
	if c.DataDir == "" {
		return apperr.New(apperr.Config, "data_dir is required")
	}
	if c.RollupDir == "" {
		return apperr.New(apperr.Config, "rollup_dir is required")
	}
	if c.Timezone == "" {
		return apperr.New(apperr.Config, "timezone is required")
	}
	if c.BatchSize <= 0 {
		return apperr.New(apperr.Config, "batch_size must be positive")
	}
	if c.FoldThresh <= 0 {
		return apperr.New(apperr.Config, "fold_threshold must be positive")
	}
	return nil
}

// Validate checks RunConfig invariants.
func (c *RunConfig) Validate() error {
	if c.RollupDir == "" {
		return apperr.New(apperr.Config, "rollup_dir is required")
	}
	if c.QueryFile == "" && c.QueryDir == "" {
		return apperr.New(apperr.Config, "one of query_file or query_dir is required")
	}
	if c.OutputDir == "" {
		return apperr.New(apperr.Config, "output_dir is required")
	}
	if c.Timezone == "" {
		return apperr.New(apperr.Config, "timezone is required")
	}
	return nil
}
