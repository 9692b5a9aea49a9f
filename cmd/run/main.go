// Command run executes a batch of declarative JSON queries against the
// prepared cube family, falling back to the DuckDB store for any
// pattern the router can't answer from a cube, and writes one CSV per
// query.
//
// Initialization order mirrors cmd/prepare: configuration, logging, then
// a StoreError check that the cube family and fallback agree on their
// pinned timezone before a single query is executed (spec.md §7, §9).
// Every query is isolated: one query's failure is recorded and the run
// continues to the next, exiting non-zero only at the end if any query
// failed (spec.md §7 propagation policy).
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/config"
	"github.com/adcube-dev/adcube/internal/cube"
	"github.com/adcube-dev/adcube/internal/cubestore"
	"github.com/adcube-dev/adcube/internal/fallback"
	"github.com/adcube-dev/adcube/internal/logging"
	"github.com/adcube-dev/adcube/internal/metrics"
	"github.com/adcube-dev/adcube/internal/query"
)

func main() {
	os.Exit(run())
}

func run() int {
	rollupDir := flag.String("rollup-dir", "", "directory of persisted cube files")
	queryFile := flag.String("query-file", "", "single JSON file containing one query pattern")
	queryDir := flag.String("query-dir", "", "directory of JSON query files")
	outputDir := flag.String("output-dir", "", "directory to write q<i>.csv result files into")
	fallbackPath := flag.String("fallback-path", "", "path to the DuckDB fallback database")
	flag.Parse()

	cfg, err := config.LoadRunConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *rollupDir != "" {
		cfg.RollupDir = *rollupDir
	}
	if *queryFile != "" {
		cfg.QueryFile = *queryFile
	}
	if *queryDir != "" {
		cfg.QueryDir = *queryDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *fallbackPath != "" {
		cfg.FallbackPath = *fallbackPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logging.Init(logging.DefaultConfig())
	ctx := logging.ContextWithCorrelationID(context.Background(), logging.GenerateCorrelationID())
	log := logging.Ctx(ctx)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error().Err(err).Msg("create output directory")
		return 1
	}

	failed, err := runWorkload(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("run failed at startup")
		return 1
	}
	if failed > 0 {
		log.Error().Int("failed_queries", failed).Msg("one or more queries failed")
		return 1
	}
	return 0
}

func runWorkload(ctx context.Context, cfg *config.RunConfig) (int, error) {
	log := logging.Ctx(ctx)

	store := cubestore.New(cfg.RollupDir)
	if err := checkTimezoneAgreement(store, cfg); err != nil {
		return 0, err
	}

	names := make([]string, 0, len(cube.Family))
	for _, spec := range cube.Family {
		names = append(names, spec.Name)
	}
	if err := store.PreloadAll(names, cfg.PreloadLimitMB); err != nil {
		return 0, err
	}

	fb, err := fallback.OpenReadOnly(cfg.FallbackPath)
	if err != nil {
		return 0, err
	}
	defer fb.Close()

	files, err := discoverQueryFiles(cfg)
	if err != nil {
		return 0, err
	}

	deadline := time.AfterFunc(cfg.WorkloadMax, func() {
		log.Warn().Dur("budget", cfg.WorkloadMax).Msg("run exceeded soft workload budget")
	})
	defer deadline.Stop()

	var failed int
	for i, f := range files {
		if err := runOne(ctx, store, fb, f, i, cfg.OutputDir); err != nil {
			failed++
			log.Error().Int("query_index", i).Str("file", f).Err(err).Msg("query failed")
		}
	}
	return failed, nil
}

// checkTimezoneAgreement enforces spec.md §7 StoreError: the run phase
// refuses to execute if the fallback's pinned timezone disagrees with
// the cube family's.
func checkTimezoneAgreement(store *cubestore.Store, cfg *config.RunConfig) error {
	fbMeta, err := fallback.LoadMeta(cfg.FallbackPath)
	if err != nil {
		return err
	}
	if fbMeta.Timezone != cfg.Timezone {
		return apperr.New(apperr.Store, "fallback timezone "+fbMeta.Timezone+" disagrees with configured timezone "+cfg.Timezone)
	}

	sample, err := store.LoadMeta(cube.Family[0].Name)
	if err != nil {
		return err
	}
	if sample.Timezone != fbMeta.Timezone {
		return apperr.New(apperr.Store, "cube family timezone "+sample.Timezone+" disagrees with fallback timezone "+fbMeta.Timezone)
	}
	return nil
}

func discoverQueryFiles(cfg *config.RunConfig) ([]string, error) {
	if cfg.QueryFile != "" {
		return []string{cfg.QueryFile}, nil
	}
	matches, err := filepath.Glob(filepath.Join(cfg.QueryDir, "*.json"))
	if err != nil {
		return nil, apperr.Wrap(apperr.Config, "glob query dir", err)
	}
	return matches, nil
}

func runOne(ctx context.Context, store *cubestore.Store, fb *fallback.Store, file string, idx int, outputDir string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return apperr.Wrap(apperr.Exec, "read query file "+file, err)
	}

	pattern, err := query.Parse(raw)
	if err != nil {
		return err
	}

	matched := "fallback"
	if cubeName, ok := query.Route(pattern); ok {
		matched = cubeName
	}

	timer := metrics.Timer(metrics.QueryDuration, matched)
	var result *query.Result

	if matched != "fallback" {
		c, loadErr := store.Load(matched)
		if loadErr != nil {
			timer()
			metrics.QueryErrors.WithLabelValues("store").Inc()
			return loadErr
		}
		result, err = query.Execute(c, pattern)
	} else {
		result, err = fb.Execute(ctx, pattern)
	}
	timer()

	if err != nil {
		metrics.QueryErrors.WithLabelValues("exec").Inc()
		return err
	}

	return writeCSV(filepath.Join(outputDir, fmt.Sprintf("q%d.csv", idx)), result)
}

func writeCSV(path string, result *query.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return apperr.Wrap(apperr.Exec, "create output file "+path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(result.Columns); err != nil {
		return apperr.Wrap(apperr.Exec, "write csv header for "+path, err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = v.CSV()
		}
		if err := w.Write(record); err != nil {
			return apperr.Wrap(apperr.Exec, "write csv row for "+path, err)
		}
	}
	w.Flush()
	return w.Error()
}
