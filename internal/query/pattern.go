// Package query implements C6 (parser), C7 (router), and C8 (executor):
// normalizing a declarative JSON query into a closed internal pattern,
// routing it to the smallest cube that can answer it exactly, and
// re-aggregating that cube's partials into a NULL-correct result.
//
// Grounded on original_source/src/core/query_router.py (QueryPattern,
// ROLLUP_CATALOG, find_best_rollup) and query_executor.py (apply_filters,
// compute_aggregates, apply_order_by), reworked into a closed tagged
// union with a dense enum switch rather than Python's string dispatch,
// per spec.md §9's explicit design note against reflection-style
// dispatch.
package query

// AggFunc is a closed enum of supported aggregate functions.
type AggFunc int

const (
	SUM AggFunc = iota
	AVG
	COUNT
	MIN
	MAX
)

func (f AggFunc) String() string {
	switch f {
	case SUM:
		return "SUM"
	case AVG:
		return "AVG"
	case COUNT:
		return "COUNT"
	case MIN:
		return "MIN"
	case MAX:
		return "MAX"
	default:
		return "UNKNOWN"
	}
}

// FilterOp is a closed enum of supported filter predicates.
type FilterOp int

const (
	OpEq FilterOp = iota
	OpNeq
	OpIn
	OpBetween
	OpGt
	OpGte
	OpLt
	OpLte
)

func filterOpFromString(s string) (FilterOp, bool) {
	switch s {
	case "eq":
		return OpEq, true
	case "neq":
		return OpNeq, true
	case "in":
		return OpIn, true
	case "between":
		return OpBetween, true
	case "gt":
		return OpGt, true
	case "gte":
		return OpGte, true
	case "lt":
		return OpLt, true
	case "lte":
		return OpLte, true
	default:
		return 0, false
	}
}

// Aggregate is one {fn, col} entry from the select clause. Col is "*"
// only when Fn is COUNT.
type Aggregate struct {
	Fn  AggFunc
	Col string
}

// Alias is the canonical output column name for this aggregate
// (spec.md §4.8 Step 4), including the single stable COUNT(*) alias
// this implementation chooses to resolve spec.md §9's open question.
func (a Aggregate) Alias() string {
	if a.Fn == COUNT && a.Col == "*" {
		return "COUNT(*)"
	}
	return a.Fn.String() + "(" + a.Col + ")"
}

// Filter is one AND-ed where-clause predicate.
type Filter struct {
	Col  string
	Op   FilterOp
	Val  string   // eq, neq, gt, gte, lt, lte
	Vals []string // in
	Lo   string   // between
	Hi   string   // between
}

// OrderBy is one order-by entry; Col is either a group_by column name
// or an aggregate's Alias().
type OrderBy struct {
	Col  string
	Desc bool
}

// Pattern is the closed internal form of a query (spec.md §3.4).
type Pattern struct {
	GroupBy    []string
	Aggregates []Aggregate
	Filters    []Filter
	OrderBy    []OrderBy
}

// FilterCols returns the set of distinct columns referenced in filters.
func (p *Pattern) FilterCols() []string {
	seen := make(map[string]struct{}, len(p.Filters))
	out := make([]string, 0, len(p.Filters))
	for _, f := range p.Filters {
		if _, ok := seen[f.Col]; ok {
			continue
		}
		seen[f.Col] = struct{}{}
		out = append(out, f.Col)
	}
	return out
}
