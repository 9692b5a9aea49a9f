package query

import (
	"sort"
	"strings"
)

// catalogEntry is static per-cube routing metadata: its dimension set
// and an estimated row (group-tuple) count, used to break ties toward
// the cheapest matching cube.
type catalogEntry struct {
	Dims        []string
	RowEstimate int
}

// Catalog mirrors the closed cube family of spec.md §3.3. Row estimates
// for every cube except day_publisher_country_type are carried over
// unchanged from the reference workload's measured cardinalities;
// day_publisher_country_type did not appear in that source's catalog at
// all (see DESIGN.md) and is assigned an estimate above
// day_advertiser_type's 1,834,876, consistent with spec.md §3.3's note
// that these two cubes dominate both build cost and on-disk footprint.
var Catalog = map[string]catalogEntry{
	"day_type":                   {[]string{"day", "type"}, 1_464},
	"hour_type":                  {[]string{"hour", "type"}, 34_177},
	"minute_type":                {[]string{"minute", "type"}, 527_040},
	"week_type":                  {[]string{"week", "type"}, 212},
	"country_type":               {[]string{"country", "type"}, 48},
	"advertiser_type":            {[]string{"advertiser_id", "type"}, 6_616},
	"publisher_type":             {[]string{"publisher_id", "type"}, 4_456},
	"day_country_type":           {[]string{"day", "country", "type"}, 16_835},
	"day_advertiser_type":        {[]string{"day", "advertiser_id", "type"}, 1_834_876},
	"hour_country_type":          {[]string{"hour", "country", "type"}, 329_480},
	"day_publisher_country_type": {[]string{"day", "publisher_id", "country", "type"}, 2_600_000},
}

// derivableFrom maps a derivable column to the source columns it can be
// recovered from by a string-prefix rule (spec.md §4.7). Week is
// deliberately absent: it carries a different calendar basis and cannot
// be derived from day, hour, or minute.
var derivableFrom = map[string][]string{
	"day":  {"minute", "hour"},
	"hour": {"minute"},
}

func isDerivable(col string) bool {
	_, ok := derivableFrom[col]
	return ok
}

// canDerive reports whether a cube carrying dims can recover col, either
// because col is itself one of dims, or because one of col's derivable
// source columns is.
func canDerive(dims []string, col string) bool {
	if contains(dims, col) {
		return true
	}
	for _, src := range derivableFrom[col] {
		if contains(dims, src) {
			return true
		}
	}
	return false
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Route selects the minimum-cost cube that can answer p exactly, or
// reports no match (fallback), per spec.md §4.7.
//
//  1. must_have = group_by(Q) ∪ (filter_cols(Q) \ derivable)
//  2. candidates: cubes whose dims ⊇ must_have AND which can derive
//     every filter-derivable column in filter_cols(Q).
//  3. pick the candidate with the smallest row-count estimate; ties
//     broken by cube name, stably.
func Route(p *Pattern) (cubeName string, ok bool) {
	mustHave := make(map[string]struct{})
	for _, c := range p.GroupBy {
		mustHave[c] = struct{}{}
	}
	filterCols := p.FilterCols()
	for _, c := range filterCols {
		if !isDerivable(c) {
			mustHave[c] = struct{}{}
		}
	}

	type candidate struct {
		name string
		rows int
	}
	var candidates []candidate

	for name, entry := range Catalog {
		supersetOK := true
		for c := range mustHave {
			if !contains(entry.Dims, c) {
				supersetOK = false
				break
			}
		}
		if !supersetOK {
			continue
		}

		derivableOK := true
		for _, c := range filterCols {
			if isDerivable(c) && !canDerive(entry.Dims, c) {
				derivableOK = false
				break
			}
		}
		if !derivableOK {
			continue
		}

		// Cube dims may be a strict superset of group_by: mustHave already
		// requires every group_by column be present, and the executor
		// regroups the cube onto group_by; nothing further to check.
		candidates = append(candidates, candidate{name, entry.RowEstimate})
	}

	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rows != candidates[j].rows {
			return candidates[i].rows < candidates[j].rows
		}
		return strings.Compare(candidates[i].name, candidates[j].name) < 0
	})

	return candidates[0].name, true
}
