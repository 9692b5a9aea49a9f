package cube

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/event"
	"github.com/adcube-dev/adcube/internal/logging"
)

// Family is the closed set of cubes this system ships (spec.md §3.3).
// Dimension order here is also the column order cube files record.
var Family = []struct {
	Name string
	Dims []string
}{
	{"day_type", []string{"day", "type"}},
	{"hour_type", []string{"hour", "type"}},
	{"minute_type", []string{"minute", "type"}},
	{"week_type", []string{"week", "type"}},
	{"country_type", []string{"country", "type"}},
	{"advertiser_type", []string{"advertiser_id", "type"}},
	{"publisher_type", []string{"publisher_id", "type"}},
	{"day_country_type", []string{"day", "country", "type"}},
	{"day_advertiser_type", []string{"day", "advertiser_id", "type"}},
	{"hour_country_type", []string{"hour", "country", "type"}},
	{"day_publisher_country_type", []string{"day", "publisher_id", "country", "type"}},
}

// batchSource yields successive batches; Next returns an end-of-input
// error once exhausted, which Build recognizes through its eofErr
// callback (internal/ingest.Ingestor returns io.EOF unwrapped).
// Implemented by internal/ingest.Ingestor.
type batchSource interface {
	Next() (*event.Batch, error)
}

// FamilyBuilder folds every cube of the closed family from the same
// batch stream in one pass, parallelizing the per-batch group-by and
// merge across cubes — the data-parallel hot path spec.md §5 explicitly
// permits inside the cube builder.
type FamilyBuilder struct {
	builders []*Builder
}

// NewFamilyBuilder constructs one Builder per cube in Family.
func NewFamilyBuilder(foldThresh int) (*FamilyBuilder, error) {
	fb := &FamilyBuilder{builders: make([]*Builder, len(Family))}
	for i, spec := range Family {
		b, err := NewBuilder(spec.Name, spec.Dims, foldThresh)
		if err != nil {
			return nil, err
		}
		fb.builders[i] = b
	}
	return fb, nil
}

// Build drains src to exhaustion, folding every cube in the family, and
// returns the finalized cubes keyed by name. Any ingest or build error
// aborts the whole family — no partial cube is ever returned (spec.md
// §4.3 failure model).
func (fb *FamilyBuilder) Build(ctx context.Context, src batchSource, eofErr func(error) bool) (map[string]*Cube, error) {
	log := logging.Ctx(ctx)
	var nBatches int

	for {
		batch, err := src.Next()
		if err != nil {
			if eofErr(err) {
				break
			}
			return nil, err
		}
		nBatches++

		g, _ := errgroup.WithContext(ctx)
		for _, b := range fb.builders {
			b := b
			g.Go(func() error { return b.AddBatch(batch) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	log.Info().Int("batches", nBatches).Msg("ingest complete, finishing cube family")

	cubes := make(map[string]*Cube, len(fb.builders))
	g, _ := errgroup.WithContext(ctx)
	results := make([]*Cube, len(fb.builders))
	for i, b := range fb.builders {
		i, b := i, b
		g.Go(func() error {
			c, err := b.Finish()
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, c := range results {
		cubes[c.Name] = c
	}

	if err := validateFamily(cubes); err != nil {
		return nil, err
	}
	return cubes, nil
}

// validateFamily checks the universal invariants of spec.md §8 across
// every cube before the family is accepted as buildable.
func validateFamily(cubes map[string]*Cube) error {
	for _, c := range cubes {
		for _, row := range c.Rows {
			for _, k := range row.Key {
				if k == "" {
					return errKeyCoalesce(c.Name)
				}
			}
			if row.P.BidCnt > row.P.RowCnt {
				return apperr.New(apperr.Build, "bid_cnt exceeds row_cnt in cube "+c.Name)
			}
			if row.P.TotCnt > row.P.RowCnt {
				return apperr.New(apperr.Build, "tot_cnt exceeds row_cnt in cube "+c.Name)
			}
			if row.P.BidCnt > 0 && row.P.BidMin > row.P.BidMax {
				return apperr.New(apperr.Build, "bid_min exceeds bid_max in cube "+c.Name)
			}
			if row.P.TotCnt > 0 && row.P.TotMin > row.P.TotMax {
				return apperr.New(apperr.Build, "tot_min exceeds tot_max in cube "+c.Name)
			}
		}
	}
	return nil
}
