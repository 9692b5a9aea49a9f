package cube

import (
	"github.com/adcube-dev/adcube/internal/event"
	"github.com/adcube-dev/adcube/internal/metrics"
)

// Builder folds a single cube's worth of batches via incremental fold
// with bounded fan-in (spec.md §4.3): a running accumulator plus a FIFO
// of pending per-batch partials, folded into the accumulator once the
// FIFO reaches foldThresh.
type Builder struct {
	name       string
	dims       []string
	getters    []func(b *event.Batch, i int) string
	foldThresh int

	acc     map[string]*Row
	pending []map[string]*Row
}

// NewBuilder constructs a Builder for one cube of the closed family.
func NewBuilder(name string, dims []string, foldThresh int) (*Builder, error) {
	getters := make([]func(b *event.Batch, i int) string, len(dims))
	for i, d := range dims {
		g, ok := columnGetter(d)
		if !ok {
			return nil, errUnknownDim(d)
		}
		getters[i] = g
	}
	if foldThresh <= 0 {
		foldThresh = 20
	}
	return &Builder{
		name:       name,
		dims:       dims,
		getters:    getters,
		foldThresh: foldThresh,
		acc:        make(map[string]*Row),
	}, nil
}

// AddBatch computes this cube's local group-by of b and pushes the
// resulting partial onto the pending FIFO, folding into the accumulator
// once the FIFO reaches the fold threshold.
func (bld *Builder) AddBatch(b *event.Batch) error {
	partial := bld.groupBatch(b)
	metrics.RowsFolded.WithLabelValues(bld.name).Add(float64(b.Len()))
	bld.pending = append(bld.pending, partial)

	if len(bld.pending) >= bld.foldThresh {
		return bld.fold()
	}
	return nil
}

// Finish folds any remaining pending partials and returns the finalized
// cube (spec.md §4.3 termination).
func (bld *Builder) Finish() (*Cube, error) {
	if len(bld.pending) > 0 {
		if err := bld.fold(); err != nil {
			return nil, err
		}
	}
	return &Cube{Name: bld.name, Dims: bld.dims, Rows: bld.acc}, nil
}

// groupBatch performs a local group-by of b on bld.dims, returning one
// partial row per distinct key observed in this batch.
func (bld *Builder) groupBatch(b *event.Batch) map[string]*Row {
	out := make(map[string]*Row)
	key := make([]string, len(bld.getters))

	for i := 0; i < b.Len(); i++ {
		for j, g := range bld.getters {
			key[j] = g(b, i)
		}
		k := joinKey(key)

		row, ok := out[k]
		if !ok {
			keyCopy := make([]string, len(key))
			copy(keyCopy, key)
			p := identity()
			row = &Row{Key: keyCopy, P: p}
			out[k] = row
		}
		row.P.addRow(b.BidPrice[i], b.BidPriceNull[i], b.TotalPrice[i], b.TotalPriceNull[i])
	}
	return out
}

// fold concatenates the pending batch partials (via repeated merge,
// associativity makes this equivalent to a single concat+group-by),
// merges the result into the accumulator by a full outer join with key
// coalesce, and empties the FIFO.
func (bld *Builder) fold() error {
	folded := make(map[string]*Row)
	for _, partial := range bld.pending {
		merged, err := mergeRows(folded, partial, bld.name)
		if err != nil {
			return err
		}
		folded = merged
	}

	merged, err := mergeRows(bld.acc, folded, bld.name)
	if err != nil {
		return err
	}
	bld.acc = merged
	bld.pending = bld.pending[:0]
	return nil
}

// mergeRows performs the full outer join of left and right on the
// dimension key, combining overlapping keys via Combine and coalescing
// the key columns per coalesceKey. This is the operation spec.md §4.3
// singles out as the builder's single most error-prone step.
func mergeRows(left, right map[string]*Row, cubeName string) (map[string]*Row, error) {
	out := make(map[string]*Row, len(left)+len(right))
	for k, row := range left {
		out[k] = row
	}
	for k, row := range right {
		if existing, ok := out[k]; ok {
			key, ok := coalesceKey(existing.Key, row.Key)
			if !ok {
				return nil, errKeyCoalesce(cubeName)
			}
			out[k] = &Row{Key: key, P: Combine(existing.P, row.P)}
		} else {
			if _, ok := coalesceKey(row.Key, row.Key); !ok {
				return nil, errKeyCoalesce(cubeName)
			}
			out[k] = row
		}
	}
	return out, nil
}
