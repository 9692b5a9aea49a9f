package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/adcube-dev/adcube/internal/apperr"
	"github.com/adcube-dev/adcube/internal/query"
)

// numericCols are emitted unquoted in generated predicates; every other
// column is a string/temporal dimension and is quoted (spec.md §4.5).
var numericCols = map[string]bool{
	"advertiser_id": true,
	"publisher_id":  true,
	"bid_price":     true,
	"total_price":   true,
}

// Execute translates p into a single SELECT against the fallback's
// events table and runs it, shaping the result the same way C8 does
// (spec.md §4.5's "equivalent relational query text").
func (s *Store) Execute(ctx context.Context, p *query.Pattern) (*query.Result, error) {
	selectSQL, err := buildSelect(p)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Fallback, "execute fallback query", err)
	}
	defer rows.Close()

	cols := append([]string{}, p.GroupBy...)
	for _, a := range p.Aggregates {
		cols = append(cols, a.Alias())
	}

	scanDest := make([]any, len(cols))
	scanPtrs := make([]any, len(cols))
	for i := range scanDest {
		scanPtrs[i] = &scanDest[i]
	}

	result := &query.Result{Columns: cols}
	nGroupBy := len(p.GroupBy)

	for rows.Next() {
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, apperr.Wrap(apperr.Fallback, "scan fallback row", err)
		}
		row := make([]query.Value, len(cols))
		for i, v := range scanDest {
			if i < nGroupBy {
				row[i] = query.Value{Str: fmt.Sprint(v)}
				continue
			}
			if v == nil {
				row[i] = query.Value{IsNull: true, Numeric: true}
				continue
			}
			row[i] = query.Value{Num: toFloat64(v), Numeric: true}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Fallback, "iterate fallback rows", err)
	}
	return result, nil
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	default:
		var f float64
		fmt.Sscanf(fmt.Sprint(v), "%g", &f)
		return f
	}
}

func buildSelect(p *query.Pattern) (string, error) {
	selectCols := make([]string, 0, len(p.GroupBy)+len(p.Aggregates))
	selectCols = append(selectCols, p.GroupBy...)
	for _, a := range p.Aggregates {
		expr, err := aggExpr(a)
		if err != nil {
			return "", err
		}
		selectCols = append(selectCols, fmt.Sprintf(`%s AS "%s"`, expr, a.Alias()))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectCols, ", "))
	b.WriteString(" FROM events")

	if len(p.Filters) > 0 {
		preds := make([]string, 0, len(p.Filters))
		for _, f := range p.Filters {
			pred, err := filterExpr(f)
			if err != nil {
				return "", err
			}
			preds = append(preds, pred)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(preds, " AND "))
	}

	if len(p.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(p.GroupBy, ", "))
	}

	if len(p.OrderBy) > 0 {
		clauses := make([]string, 0, len(p.OrderBy))
		for _, o := range p.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			clauses = append(clauses, fmt.Sprintf(`"%s" %s NULLS LAST`, o.Col, dir))
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(clauses, ", "))
	}

	return b.String(), nil
}

func aggExpr(a query.Aggregate) (string, error) {
	if a.Fn == query.COUNT && a.Col == "*" {
		return "COUNT(*)", nil
	}
	switch a.Fn {
	case query.SUM:
		return fmt.Sprintf("SUM(%s)", a.Col), nil
	case query.AVG:
		return fmt.Sprintf("AVG(%s)", a.Col), nil
	case query.COUNT:
		return fmt.Sprintf("COUNT(%s)", a.Col), nil
	case query.MIN:
		return fmt.Sprintf("MIN(%s)", a.Col), nil
	case query.MAX:
		return fmt.Sprintf("MAX(%s)", a.Col), nil
	default:
		return "", apperr.New(apperr.Fallback, "unsupported aggregate function")
	}
}

func filterExpr(f query.Filter) (string, error) {
	switch f.Op {
	case query.OpEq:
		return fmt.Sprintf("%s = %s", f.Col, literal(f.Col, f.Val)), nil
	case query.OpNeq:
		return fmt.Sprintf("%s != %s", f.Col, literal(f.Col, f.Val)), nil
	case query.OpGt:
		return fmt.Sprintf("%s > %s", f.Col, literal(f.Col, f.Val)), nil
	case query.OpGte:
		return fmt.Sprintf("%s >= %s", f.Col, literal(f.Col, f.Val)), nil
	case query.OpLt:
		return fmt.Sprintf("%s < %s", f.Col, literal(f.Col, f.Val)), nil
	case query.OpLte:
		return fmt.Sprintf("%s <= %s", f.Col, literal(f.Col, f.Val)), nil
	case query.OpIn:
		lits := make([]string, len(f.Vals))
		for i, v := range f.Vals {
			lits[i] = literal(f.Col, v)
		}
		return fmt.Sprintf("%s IN (%s)", f.Col, strings.Join(lits, ", ")), nil
	case query.OpBetween:
		return fmt.Sprintf("%s BETWEEN %s AND %s", f.Col, literal(f.Col, f.Lo), literal(f.Col, f.Hi)), nil
	default:
		return "", apperr.New(apperr.Fallback, "unsupported filter op")
	}
}

// literal quotes v as a string for string/temporal dimensions, or emits
// it unquoted for the numeric dimensions, per spec.md §4.5.
func literal(col, v string) string {
	if numericCols[col] {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
