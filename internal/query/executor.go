package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/cube"
)

// Value is one output cell: either a dimension string or a computed
// aggregate, NULL-aware so CSV emission (an external collaborator, per
// spec.md §1) can render an empty field for NULL.
type Value struct {
	Str     string
	Num     float64
	Numeric bool
	IsNull  bool
}

// CSV renders v the way the output CSV writer expects: NULL as empty.
func (v Value) CSV() string {
	if v.IsNull {
		return ""
	}
	if v.Numeric {
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
	return v.Str
}

// Result is the shaped output of Execute: column headers plus rows, in
// the order columns/rows should be written (spec.md §4.8 Step 5).
type Result struct {
	Columns []string
	Rows    [][]Value
}

type groupRow struct {
	Key []string
	P   cube.Partial
}

// Execute implements C8 against a cube already selected by Route: filter
// rewriting (including derived-column and calendar normalization),
// regroup-if-needed, NULL-correct aggregate computation, ordering, and
// shaping (spec.md §4.8).
func Execute(c *cube.Cube, p *Pattern) (*Result, error) {
	filtered, err := applyFilters(c, p.Filters)
	if err != nil {
		return nil, err
	}

	groups, err := regroup(c, filtered, p.GroupBy)
	if err != nil {
		return nil, err
	}

	rows, err := computeAggregates(groups, p)
	if err != nil {
		return nil, err
	}

	if err := applyOrderBy(rows, p); err != nil {
		return nil, err
	}

	cols := append([]string{}, p.GroupBy...)
	for _, a := range p.Aggregates {
		cols = append(cols, a.Alias())
	}

	return &Result{Columns: cols, Rows: rows}, nil
}

// applyFilters evaluates every filter against every row of c, deriving
// values for derivable columns (day from minute/hour, hour from minute)
// by prefix extraction rather than materializing a rewritten predicate —
// the observable effect is identical to spec.md §4.8 Step 1's
// startswith rewrite, since both the derived value and the prefix match
// operate on the same leading substring of the finer column.
func applyFilters(c *cube.Cube, filters []Filter) ([]*cube.Row, error) {
	out := make([]*cube.Row, 0, len(c.Rows))
	for _, row := range c.Rows {
		ok := true
		for _, f := range filters {
			val, present := deriveValue(c, row, f.Col)
			if !present {
				return nil, apperr.New(apperr.Exec, "filter column not present or derivable: "+f.Col)
			}
			if !matchFilter(val, f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func deriveValue(c *cube.Cube, row *cube.Row, col string) (string, bool) {
	if idx := c.DimIndex(col); idx >= 0 {
		return row.Key[idx], true
	}
	switch col {
	case "day":
		if idx := c.DimIndex("minute"); idx >= 0 {
			return row.Key[idx][:10], true
		}
		if idx := c.DimIndex("hour"); idx >= 0 {
			return row.Key[idx][:10], true
		}
	case "hour":
		if idx := c.DimIndex("minute"); idx >= 0 {
			return row.Key[idx][:13], true
		}
	}
	return "", false
}

func matchFilter(value string, f Filter) bool {
	switch f.Op {
	case OpEq:
		return value == f.Val
	case OpNeq:
		return value != f.Val
	case OpIn:
		for _, v := range f.Vals {
			if v == value {
				return true
			}
		}
		return false
	case OpBetween:
		return compareOrdered(value, f.Lo) >= 0 && compareOrdered(value, f.Hi) <= 0
	case OpGt:
		return compareOrdered(value, f.Val) > 0
	case OpGte:
		return compareOrdered(value, f.Val) >= 0
	case OpLt:
		return compareOrdered(value, f.Val) < 0
	case OpLte:
		return compareOrdered(value, f.Val) <= 0
	default:
		return false
	}
}

// compareOrdered compares two column literals numerically if both parse
// as numbers (so advertiser_id/publisher_id range filters behave
// correctly), falling back to lexicographic comparison — which is
// chronologically correct for day/hour/minute/week per spec.md §3.1.
func compareOrdered(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// regroup re-aggregates filtered rows onto groupBy. If groupBy is
// exactly the cube's own dimension set, each row is already its own
// output group and no merging occurs (spec.md §4.8 Step 2).
func regroup(c *cube.Cube, filtered []*cube.Row, groupBy []string) ([]*groupRow, error) {
	idx := make([]int, len(groupBy))
	for i, g := range groupBy {
		j := c.DimIndex(g)
		if j < 0 {
			return nil, apperr.New(apperr.Exec, "group_by column not present in cube: "+g)
		}
		idx[i] = j
	}

	out := make(map[string]*groupRow)
	order := make([]string, 0, len(filtered))
	for _, row := range filtered {
		key := make([]string, len(idx))
		for i, j := range idx {
			key[i] = row.Key[j]
		}
		k := cube.JoinKey(key)
		if existing, ok := out[k]; ok {
			existing.P = cube.Combine(existing.P, row.P)
		} else {
			out[k] = &groupRow{Key: key, P: row.P}
			order = append(order, k)
		}
	}

	result := make([]*groupRow, 0, len(order))
	for _, k := range order {
		result = append(result, out[k])
	}
	return result, nil
}

// computeAggregates applies spec.md §4.8 Step 3's NULL-correct output
// table to every group.
func computeAggregates(groups []*groupRow, p *Pattern) ([][]Value, error) {
	rows := make([][]Value, 0, len(groups))
	for _, g := range groups {
		row := make([]Value, 0, len(p.GroupBy)+len(p.Aggregates))
		for _, k := range g.Key {
			row = append(row, Value{Str: k})
		}
		for _, agg := range p.Aggregates {
			v, err := computeOne(agg, g.P)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func computeOne(agg Aggregate, p cube.Partial) (Value, error) {
	if agg.Fn == COUNT && agg.Col == "*" {
		return Value{Num: float64(p.RowCnt), Numeric: true}, nil
	}

	sum, cnt, mn, mx, ok := measureOf(p, agg.Col)
	if !ok {
		return Value{}, apperr.New(apperr.Exec, "unknown aggregate column: "+agg.Col)
	}

	switch agg.Fn {
	case SUM:
		if cnt == 0 {
			return Value{IsNull: true, Numeric: true}, nil
		}
		return Value{Num: sum, Numeric: true}, nil
	case AVG:
		if cnt == 0 {
			return Value{IsNull: true, Numeric: true}, nil
		}
		return Value{Num: sum / float64(cnt), Numeric: true}, nil
	case COUNT:
		return Value{Num: float64(cnt), Numeric: true}, nil
	case MIN:
		if cnt == 0 {
			return Value{IsNull: true, Numeric: true}, nil
		}
		return Value{Num: mn, Numeric: true}, nil
	case MAX:
		if cnt == 0 {
			return Value{IsNull: true, Numeric: true}, nil
		}
		return Value{Num: mx, Numeric: true}, nil
	default:
		return Value{}, apperr.New(apperr.Exec, "unknown aggregate function")
	}
}

func measureOf(p cube.Partial, col string) (sum float64, cnt int64, mn float64, mx float64, ok bool) {
	switch col {
	case "bid_price":
		return p.BidSum, p.BidCnt, p.BidMin, p.BidMax, true
	case "total_price":
		return p.TotSum, p.TotCnt, p.TotMin, p.TotMax, true
	default:
		return 0, 0, 0, 0, false
	}
}

// applyOrderBy sorts rows in place per p.OrderBy, NULLs sorting last
// regardless of direction (spec.md §8 scenario 3).
func applyOrderBy(rows [][]Value, p *Pattern) error {
	if len(p.OrderBy) == 0 {
		return nil
	}

	colIndex := make(map[string]int, len(p.GroupBy)+len(p.Aggregates))
	for i, c := range p.GroupBy {
		colIndex[c] = i
	}
	for i, a := range p.Aggregates {
		colIndex[a.Alias()] = len(p.GroupBy) + i
	}

	type key struct {
		idx  int
		desc bool
	}
	var keys []key
	for _, o := range p.OrderBy {
		i, ok := colIndex[o.Col]
		if !ok {
			return apperr.New(apperr.Exec, "order_by column not in output: "+o.Col)
		}
		keys = append(keys, key{i, o.Desc})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		for _, k := range keys {
			va, vb := rows[a][k.idx], rows[b][k.idx]
			if va.IsNull != vb.IsNull {
				return !va.IsNull // non-null sorts before null, both directions
			}
			if va.IsNull && vb.IsNull {
				continue
			}
			var less bool
			if va.Numeric {
				if va.Num == vb.Num {
					continue
				}
				less = va.Num < vb.Num
			} else {
				if va.Str == vb.Str {
					continue
				}
				less = va.Str < vb.Str
			}
			if k.desc {
				return !less
			}
			return less
		}
		return false
	})
	return nil
}
