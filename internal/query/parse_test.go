package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGroupByAndAggregate(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["day", {"SUM": "bid_price"}],
		"where": [{"col": "type", "op": "eq", "val": "impression"}]
	}`))
	require.NoError(t, err)
	require.Equal(t, []string{"day"}, p.GroupBy)
	require.Equal(t, []Aggregate{{Fn: SUM, Col: "bid_price"}}, p.Aggregates)
	require.Equal(t, []Filter{{Col: "type", Op: OpEq, Val: "impression"}}, p.Filters)
}

func TestParseCountStar(t *testing.T) {
	p, err := Parse([]byte(`{"select": [{"COUNT": "*"}]}`))
	require.NoError(t, err)
	require.Equal(t, "COUNT(*)", p.Aggregates[0].Alias())
}

func TestParseBetweenFilter(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["publisher_id", {"SUM": "bid_price"}],
		"where": [
			{"col": "type", "op": "eq", "val": "impression"},
			{"col": "country", "op": "eq", "val": "JP"},
			{"col": "day", "op": "between", "val": ["2024-10-20", "2024-10-23"]}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, p.Filters, 3)
	require.Equal(t, OpBetween, p.Filters[2].Op)
	require.Equal(t, "2024-10-20", p.Filters[2].Lo)
	require.Equal(t, "2024-10-23", p.Filters[2].Hi)
}

func TestParseOrderByDefaultsAscending(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["day"],
		"order_by": [{"col": "day"}, {"col": "day", "dir": "desc"}]
	}`))
	require.NoError(t, err)
	require.False(t, p.OrderBy[0].Desc)
	require.True(t, p.OrderBy[1].Desc)
}

func TestParseRejectsUnknownAggregateFunction(t *testing.T) {
	_, err := Parse([]byte(`{"select": [{"MEDIAN": "bid_price"}]}`))
	require.Error(t, err)
}
