// Command prepare runs the offline build phase: it streams the raw CSV
// event files through the cube builder, persists the closed cube family
// to disk, and materializes the DuckDB fallback store from the same
// input set.
//
// Initialization order:
//
//  1. Configuration (internal/config), layered env > file > defaults.
//  2. Logging (internal/logging), console or JSON per config.
//  3. Time-dimension encoder (internal/timedim), pinned to the
//     configured timezone.
//  4. Streaming ingestor (internal/ingest) over --data-dir.
//  5. Cube family builder (internal/cube), folding every batch.
//  6. Cube store (internal/cubestore), persisting the finished family.
//  7. Fallback store (internal/fallback), built from the same files.
//
// Exit code is 0 on success, non-zero on any fatal error, per the CLI
// contract this spec defines.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/config"
	"github.com/adcube-dev/adcube/internal/cube"
	"github.com/adcube-dev/adcube/internal/cubestore"
	"github.com/adcube-dev/adcube/internal/fallback"
	"github.com/adcube-dev/adcube/internal/ingest"
	"github.com/adcube-dev/adcube/internal/logging"
	"github.com/adcube-dev/adcube/internal/metrics"
	"github.com/adcube-dev/adcube/internal/timedim"
)

func main() {
	os.Exit(run())
}

func run() int {
	dataDir := flag.String("data-dir", "", "directory of partitioned CSV event files")
	rollupDir := flag.String("rollup-dir", "", "output directory for cube files")
	flag.Parse()

	cfg, err := config.LoadPrepareConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *rollupDir != "" {
		cfg.RollupDir = *rollupDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logging.Init(logging.DefaultConfig())
	ctx := logging.ContextWithCorrelationID(context.Background(), logging.GenerateCorrelationID())
	log := logging.Ctx(ctx)

	if err := os.MkdirAll(cfg.RollupDir, 0o755); err != nil {
		log.Error().Err(err).Msg("create rollup directory")
		return 1
	}

	deadline := time.AfterFunc(cfg.WallClockMax, func() {
		log.Warn().Dur("budget", cfg.WallClockMax).Msg("prepare exceeded soft wall-clock budget")
	})
	defer deadline.Stop()

	if err := prepare(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("prepare failed")
		return 1
	}
	return 0
}

func prepare(ctx context.Context, cfg *config.PrepareConfig) error {
	log := logging.Ctx(ctx)
	start := time.Now()

	enc, err := timedim.NewEncoder(cfg.Timezone)
	if err != nil {
		return err
	}

	in, err := ingest.New(cfg.DataDir, cfg.BatchSize, enc)
	if err != nil {
		return err
	}
	log.Info().Int("files", len(in.Files())).Msg("discovered input files")

	fb, err := cube.NewFamilyBuilder(cfg.FoldThresh)
	if err != nil {
		return err
	}

	buildTimer := metrics.Timer(metrics.BuildCubeDuration, "family")
	cubes, err := fb.Build(ctx, in, func(err error) bool { return err == io.EOF })
	buildTimer()
	if err != nil {
		return err
	}

	store := cubestore.New(cfg.RollupDir)
	buildTimeUnix := time.Now().Unix()
	for _, c := range cubes {
		if err := store.Save(c, cfg.Timezone, len(in.Files()), buildTimeUnix); err != nil {
			return err
		}
		metrics.CubeKeyCount.WithLabelValues(c.Name).Set(float64(c.Len()))
		log.Info().Str("cube", c.Name).Int("rows", c.Len()).Msg("persisted cube")
	}

	fallbackStore, err := fallback.Open(cfg.FallbackPath, cfg.Threads)
	if err != nil {
		return err
	}
	defer fallbackStore.Close()

	if err := fallbackStore.Build(ctx, in.Files(), cfg.Timezone); err != nil {
		return apperr.Wrap(apperr.Store, "build fallback store", err)
	}

	elapsed := time.Since(start)
	log.Info().
		Str("elapsed", elapsed.String()).
		Str("rollup_dir", cfg.RollupDir).
		Msg("prepare complete")

	if dumped, err := dumpMetrics(cfg.RollupDir); err != nil {
		log.Warn().Err(err).Msg("failed to write metrics snapshot")
	} else {
		log.Debug().Str("bytes", humanize.Bytes(uint64(dumped))).Msg("wrote metrics snapshot")
	}
	return nil
}

// dumpMetrics writes the current Prometheus registry as text (see
// metrics.Gather) alongside the cube family, since this CLI has no HTTP
// exporter.
func dumpMetrics(rollupDir string) (int, error) {
	text, err := metrics.Gather()
	if err != nil {
		return 0, err
	}
	path := rollupDir + "/metrics.prom"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return 0, err
	}
	return len(text), nil
}
