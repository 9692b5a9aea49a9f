// Package cube implements C3: folding the event stream into the closed
// family of pre-aggregated cubes, and the partial-aggregate algebra (P)
// that makes coarser cubes re-aggregatable into finer query answers.
//
// Grounded on original_source/src/core/rollup_builder.py's accumulator +
// pending-partials design, translated from Polars group-by/outer-join
// expressions into a plain Go map-based fold.
package cube

import "math"

// Partial is the fixed row of NULL-safe partial aggregates stored per
// group tuple, per spec.md §3.2.
type Partial struct {
	BidSum float64
	BidCnt int64
	BidMin float64
	BidMax float64

	TotSum float64
	TotCnt int64
	TotMin float64
	TotMax float64

	RowCnt int64
}

// identity returns the identity element of Combine: combining any
// Partial with it yields that Partial unchanged. Matches the
// "missing side as 0 / +inf / -inf" combine rules of spec.md §4.3.
func identity() Partial {
	return Partial{
		BidMin: math.Inf(1),
		BidMax: math.Inf(-1),
		TotMin: math.Inf(1),
		TotMax: math.Inf(-1),
	}
}

// addRow folds one raw event row's measures into p in place.
func (p *Partial) addRow(bid float64, bidNull bool, tot float64, totNull bool) {
	p.RowCnt++
	if !bidNull {
		p.BidSum += bid
		p.BidCnt++
		if bid < p.BidMin {
			p.BidMin = bid
		}
		if bid > p.BidMax {
			p.BidMax = bid
		}
	}
	if !totNull {
		p.TotSum += tot
		p.TotCnt++
		if tot < p.TotMin {
			p.TotMin = tot
		}
		if tot > p.TotMax {
			p.TotMax = tot
		}
	}
}

// Combine merges two partials by the pairwise rules of spec.md §4.3:
// sums add (missing side 0), counts add, min/max take the pairwise
// extreme (missing side ±∞). Associative and commutative — any batch
// or merge ordering yields the same result (spec.md §5 ordering
// guarantee).
func Combine(a, b Partial) Partial {
	return Partial{
		BidSum: a.BidSum + b.BidSum,
		BidCnt: a.BidCnt + b.BidCnt,
		BidMin: math.Min(a.BidMin, b.BidMin),
		BidMax: math.Max(a.BidMax, b.BidMax),

		TotSum: a.TotSum + b.TotSum,
		TotCnt: a.TotCnt + b.TotCnt,
		TotMin: math.Min(a.TotMin, b.TotMin),
		TotMax: math.Max(a.TotMax, b.TotMax),

		RowCnt: a.RowCnt + b.RowCnt,
	}
}

// BidMinValue returns (min, ok); ok is false (NULL) when no non-null
// bid_price was observed in the group, per spec.md §3.2.
func (p Partial) BidMinValue() (float64, bool) {
	if p.BidCnt == 0 {
		return 0, false
	}
	return p.BidMin, true
}

// BidMaxValue returns (max, ok); see BidMinValue.
func (p Partial) BidMaxValue() (float64, bool) {
	if p.BidCnt == 0 {
		return 0, false
	}
	return p.BidMax, true
}

// TotMinValue returns (min, ok) for total_price; see BidMinValue.
func (p Partial) TotMinValue() (float64, bool) {
	if p.TotCnt == 0 {
		return 0, false
	}
	return p.TotMin, true
}

// TotMaxValue returns (max, ok) for total_price; see BidMinValue.
func (p Partial) TotMaxValue() (float64, bool) {
	if p.TotCnt == 0 {
		return 0, false
	}
	return p.TotMax, true
}
