// Package cubestore implements C4: cube persistence as single-file
// columnar IPC with LZ4 block compression, one file per cube plus a JSON
// sidecar recording dimension list, measure schema, timezone, source
// file count, build time, and an xxhash64 checksum of the compressed
// body for corruption detection at load time (spec.md §4.4, §6, §7).
//
// The columnar container is Arrow IPC (github.com/apache/arrow-go/v18),
// an indirect dependency of the fallback store's DuckDB driver in the
// teacher's go.mod — promoted here to a direct dependency rather than
// hand-rolling a bespoke binary format, per spec.md §6's "implementations
// MAY choose another columnar container" latitude.
package cubestore

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/adcube-dev/adcube/internal/cube"
)

// measureNames is the fixed partial-aggregate column order, per
// spec.md §3.2. It follows every dimension column in a cube file.
var measureNames = []string{
	"bid_sum", "bid_cnt", "bid_min", "bid_max",
	"tot_sum", "tot_cnt", "tot_min", "tot_max",
	"row_cnt",
}

// buildSchema constructs the Arrow schema for a cube with the given
// dimension columns: one non-nullable UTF-8 field per dimension,
// followed by the nine partial-aggregate measure fields. bid_min,
// bid_max, tot_min and tot_max are nullable (NULL when their count is
// zero); the rest are never null.
func buildSchema(dims []string) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(dims)+len(measureNames))
	for _, d := range dims {
		fields = append(fields, arrow.Field{Name: d, Type: arrow.BinaryTypes.String})
	}
	fields = append(fields,
		arrow.Field{Name: "bid_sum", Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: "bid_cnt", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "bid_min", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		arrow.Field{Name: "bid_max", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		arrow.Field{Name: "tot_sum", Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: "tot_cnt", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "tot_min", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		arrow.Field{Name: "tot_max", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		arrow.Field{Name: "row_cnt", Type: arrow.PrimitiveTypes.Int64},
	)
	return arrow.NewSchema(fields, nil)
}

// Meta is the JSON sidecar recorded alongside every cube file.
type Meta struct {
	Dims            []string `json:"dims"`
	Measures        []string `json:"measures"`
	Timezone        string   `json:"timezone"`
	SourceFileCount int      `json:"source_file_count"`
	BuildTimeUnix   int64    `json:"build_time_unix"`
	RowCount        int      `json:"row_count"`
	Checksum        uint64   `json:"checksum_xxhash64"`
}
