package cube

// Row is one distinct dimension tuple and its partial aggregates.
type Row struct {
	Key []string
	P   Partial
}

// Cube is the finalized, read-only result of folding the event stream
// on an ordered dimension set: a map from dimension tuple to partial
// aggregates (spec.md §3.2).
type Cube struct {
	Name string
	Dims []string
	Rows map[string]*Row
}

// Get returns the row for a dimension tuple, if present.
func (c *Cube) Get(key []string) (*Row, bool) {
	r, ok := c.Rows[joinKey(key)]
	return r, ok
}

// Len returns the number of distinct group tuples in the cube.
func (c *Cube) Len() int { return len(c.Rows) }

// DimIndex returns the position of dim within c.Dims, or -1.
func (c *Cube) DimIndex(dim string) int {
	for i, d := range c.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// HasDims reports whether want is a subset of c.Dims.
func (c *Cube) HasDims(want []string) bool {
	set := make(map[string]struct{}, len(c.Dims))
	for _, d := range c.Dims {
		set[d] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// Regroup re-aggregates c onto a subset of its own dimensions, using the
// combine rules of spec.md §4.3. This is the mechanism that lets a
// coarser cube answer a query whose group_by is a strict subset of the
// cube's own dimensions (spec.md §3.2 invariant 2, §8 property 3), and
// is also how the executor (C8) regroups a cube onto group_by(Q) when it
// isn't an exact dimension match.
func (c *Cube) Regroup(subDims []string) (*Cube, error) {
	idx := make([]int, len(subDims))
	for i, d := range subDims {
		j := c.DimIndex(d)
		if j < 0 {
			return nil, errUnknownDim(d)
		}
		idx[i] = j
	}

	out := &Cube{Name: c.Name, Dims: subDims, Rows: make(map[string]*Row)}
	for _, row := range c.Rows {
		newKey := make([]string, len(idx))
		for i, j := range idx {
			newKey[i] = row.Key[j]
		}
		k := joinKey(newKey)
		if existing, ok := out.Rows[k]; ok {
			existing.P = Combine(existing.P, row.P)
		} else {
			out.Rows[k] = &Row{Key: newKey, P: row.P}
		}
	}
	return out, nil
}
