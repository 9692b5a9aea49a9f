package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adcube-dev/adcube/internal/apperr"
)

type rawFilter struct {
	Col string          `json:"col"`
	Op  string          `json:"op"`
	Val json.RawMessage `json:"val"`
}

type rawOrderBy struct {
	Col string `json:"col"`
	Dir string `json:"dir"`
}

type rawPattern struct {
	Select  []json.RawMessage `json:"select"`
	Where   []rawFilter       `json:"where"`
	OrderBy []rawOrderBy      `json:"order_by"`
}

// Parse maps the JSON query format to the internal Pattern, per
// spec.md §4.6: bare-string select items become group_by columns;
// single-key objects {FN: col} become aggregates; where entries are
// preserved verbatim; order_by direction defaults to ascending.
func Parse(data []byte) (*Pattern, error) {
	var raw rawPattern
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.Wrap(apperr.Exec, "parse query JSON", err)
	}

	p := &Pattern{}

	for _, item := range raw.Select {
		var col string
		if err := json.Unmarshal(item, &col); err == nil {
			p.GroupBy = append(p.GroupBy, col)
			continue
		}

		var agg map[string]string
		if err := json.Unmarshal(item, &agg); err != nil {
			return nil, apperr.New(apperr.Exec, "select item is neither a column name nor an aggregate object")
		}
		if len(agg) != 1 {
			return nil, apperr.New(apperr.Exec, "aggregate select item must have exactly one function key")
		}
		for fn, col := range agg {
			aggFn, ok := aggFuncFromString(fn)
			if !ok {
				return nil, apperr.New(apperr.Exec, "unknown aggregate function: "+fn)
			}
			if aggFn != COUNT && col == "*" {
				return nil, apperr.New(apperr.Exec, fn+"(*) is not supported; only COUNT(*) is")
			}
			p.Aggregates = append(p.Aggregates, Aggregate{Fn: aggFn, Col: col})
		}
	}

	for _, f := range raw.Where {
		filter, err := parseFilter(f)
		if err != nil {
			return nil, err
		}
		p.Filters = append(p.Filters, filter)
	}

	for _, o := range raw.OrderBy {
		p.OrderBy = append(p.OrderBy, OrderBy{
			Col:  o.Col,
			Desc: strings.EqualFold(o.Dir, "desc"),
		})
	}

	return p, nil
}

func aggFuncFromString(s string) (AggFunc, bool) {
	switch strings.ToUpper(s) {
	case "SUM":
		return SUM, true
	case "AVG":
		return AVG, true
	case "COUNT":
		return COUNT, true
	case "MIN":
		return MIN, true
	case "MAX":
		return MAX, true
	default:
		return 0, false
	}
}

func parseFilter(f rawFilter) (Filter, error) {
	op, ok := filterOpFromString(f.Op)
	if !ok {
		return Filter{}, apperr.New(apperr.Exec, "unknown filter op: "+f.Op)
	}

	out := Filter{Col: f.Col, Op: op}

	switch op {
	case OpIn:
		var vals []rawScalar
		if err := json.Unmarshal(f.Val, &vals); err != nil {
			return Filter{}, apperr.Wrap(apperr.Exec, "parse 'in' filter value for "+f.Col, err)
		}
		for _, v := range vals {
			out.Vals = append(out.Vals, v.String())
		}
	case OpBetween:
		var bounds [2]rawScalar
		if err := json.Unmarshal(f.Val, &bounds); err != nil {
			return Filter{}, apperr.Wrap(apperr.Exec, "parse 'between' filter value for "+f.Col, err)
		}
		out.Lo = bounds[0].String()
		out.Hi = bounds[1].String()
	default:
		var v rawScalar
		if err := json.Unmarshal(f.Val, &v); err != nil {
			return Filter{}, apperr.Wrap(apperr.Exec, "parse filter value for "+f.Col, err)
		}
		out.Val = v.String()
	}

	return out, nil
}

// rawScalar accepts either a JSON string or a JSON number and renders it
// as a string, so filter comparisons can operate uniformly on string
// dimension values without carrying separate typed filter variants.
type rawScalar struct {
	s string
}

func (r *rawScalar) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.s = s
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		r.s = formatNumber(f)
		return nil
	}
	return fmt.Errorf("unsupported filter value literal: %s", string(data))
}

func (r rawScalar) String() string { return r.s }

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
