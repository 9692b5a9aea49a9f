// Package fallback implements C5 (fallback store builder) and C9
// (fallback executor): a single physically-clustered table in an
// embedded DuckDB database, and a SQL-generating executor consulted
// only when the router (C7) finds no cube that can answer a query.
//
// Grounded on the teacher's internal/database/database.go connection-
// string and extension-preload pattern, and on
// original_source/src/core/fallback_executor.py's filter/aggregate
// translation (there expressed as Polars lazy-frame expressions; here
// as generated SQL text against DuckDB, the teacher's own embedded
// relational engine).
package fallback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/logging"
)

// Meta is the JSON sidecar recorded alongside the fallback database,
// so the run phase can validate its pinned timezone against the cube
// family's before opening either (spec.md §7 StoreError, §9 "Timezone").
type Meta struct {
	Timezone        string `json:"timezone"`
	SourceFileCount int    `json:"source_file_count"`
}

// rawColumnsClause is the explicit, pinned CSV schema (spec.md §3.1), passed
// to DuckDB's reader so no type sniffing occurs — the same "no
// inference" requirement C2 follows for the cube-building path.
const rawColumnsClause = `{'ts':'BIGINT','type':'VARCHAR','auction_id':'VARCHAR','advertiser_id':'BIGINT','publisher_id':'BIGINT','bid_price':'DOUBLE','user_id':'VARCHAR','total_price':'DOUBLE','country':'VARCHAR'}`

// Store wraps the fallback's DuckDB connection.
type Store struct {
	db   *sql.DB
	path string
}

func metaPath(dbPath string) string { return dbPath + ".meta.json" }

// Open connects to (creating if absent) the DuckDB file at path.
func Open(path string, threads int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, apperr.Wrap(apperr.Store, "create fallback directory", err)
		}
	}
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads)
	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "open fallback database", err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenReadOnly connects to an existing fallback database in read-only
// mode, per spec.md §5's "fallback store is accessed in read-only mode
// from the run phase".
func OpenReadOnly(path string) (*Store, error) {
	connStr := fmt.Sprintf("%s?access_mode=read_only", path)
	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, apperr.Wrap(apperr.Store, "open fallback database read-only", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Build loads files into a single physically-clustered `events` table
// (spec.md §4.5, §6): derived time columns are computed in SQL under
// timezone tz — the same pinned timezone C1 uses — so the fallback and
// cube family agree bit-for-bit near midnight (spec.md §9 "Timezone").
func (s *Store) Build(ctx context.Context, files []string, tz string) error {
	if len(files) == 0 {
		return apperr.New(apperr.Store, "no source files to build fallback from")
	}
	log := logging.Ctx(ctx)

	filesArr := quoteFileList(files)
	tzLit := sqlQuote(tz)

	createSQL := fmt.Sprintf(`
CREATE TABLE events_raw AS
SELECT
  strftime(timezone(%s, to_timestamp(ts / 1000.0)), '%%Y-%%m-%%d')       AS day,
  strftime(timezone(%s, to_timestamp(ts / 1000.0)), '%%Y-%%m-%%d %%H')    AS hour,
  strftime(timezone(%s, to_timestamp(ts / 1000.0)), '%%Y-%%m-%%d %%H:%%M') AS minute,
  printf('%%04d-W%%02d',
         isoyear(timezone(%s, to_timestamp(ts / 1000.0))),
         weekofyear(timezone(%s, to_timestamp(ts / 1000.0)))) AS week,
  type, country, advertiser_id, publisher_id, bid_price, total_price
FROM read_csv(%s, header=true, columns=%s);`,
		tzLit, tzLit, tzLit, tzLit, tzLit, filesArr, rawColumnsClause)

	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return apperr.Wrap(apperr.Store, "load raw events into fallback", err)
	}

	// Physically cluster by (week, country, type): the high-selectivity
	// GROUP BY prefix observed in the workload, for aggregation locality
	// without secondary indexes (spec.md §4.5).
	cluster := `
CREATE TABLE events AS SELECT * FROM events_raw ORDER BY week, country, type;
DROP TABLE events_raw;`
	if _, err := s.db.ExecContext(ctx, cluster); err != nil {
		return apperr.Wrap(apperr.Store, "cluster fallback events table", err)
	}

	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		return apperr.Wrap(apperr.Store, "refresh fallback statistics", err)
	}

	meta := Meta{Timezone: tz, SourceFileCount: len(files)}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.Store, "marshal fallback metadata", err)
	}
	if err := os.WriteFile(metaPath(s.path), b, 0o644); err != nil {
		return apperr.Wrap(apperr.Store, "write fallback metadata", err)
	}

	log.Info().Int("source_files", len(files)).Msg("fallback store built")
	return nil
}

// LoadMeta reads the fallback's sidecar metadata, for comparing its
// pinned timezone against the cube family's at run startup.
func LoadMeta(dbPath string) (Meta, error) {
	b, err := os.ReadFile(metaPath(dbPath))
	if err != nil {
		return Meta{}, apperr.Wrap(apperr.Store, "read fallback metadata", err)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, apperr.Wrap(apperr.Store, "parse fallback metadata", err)
	}
	return m, nil
}

func quoteFileList(files []string) string {
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = sqlQuote(f)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
