package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouteDailyImpressionSpend(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["day", {"SUM": "bid_price"}],
		"where": [{"col": "type", "op": "eq", "val": "impression"}]
	}`))
	require.NoError(t, err)
	name, ok := Route(p)
	require.True(t, ok)
	require.Equal(t, "day_type", name)
}

func TestRoutePublisherRevenueWithDayFilter(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["publisher_id", {"SUM": "bid_price"}],
		"where": [
			{"col": "type", "op": "eq", "val": "impression"},
			{"col": "country", "op": "eq", "val": "JP"},
			{"col": "day", "op": "between", "val": ["2024-10-20", "2024-10-23"]}
		]
	}`))
	require.NoError(t, err)
	name, ok := Route(p)
	require.True(t, ok)
	require.Equal(t, "day_publisher_country_type", name)
}

func TestRouteMinuteGranularityDerivesDayFromMinute(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["minute", {"SUM": "bid_price"}],
		"where": [
			{"col": "type", "op": "eq", "val": "impression"},
			{"col": "day", "op": "eq", "val": "2024-06-01"}
		]
	}`))
	require.NoError(t, err)
	name, ok := Route(p)
	require.True(t, ok)
	require.Equal(t, "minute_type", name)
}

func TestRouteCountStarByAdvertiserAndType(t *testing.T) {
	p, err := Parse([]byte(`{"select": ["advertiser_id", "type", {"COUNT": "*"}]}`))
	require.NoError(t, err)
	name, ok := Route(p)
	require.True(t, ok)
	require.Equal(t, "advertiser_type", name)
}

func TestRouteWeekCannotBeDerivedFromDay(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["day", {"SUM": "bid_price"}],
		"where": [{"col": "week", "op": "eq", "val": "2024-W10"}]
	}`))
	require.NoError(t, err)
	// week is not derivable, so any matching cube must itself carry week;
	// no cube in the closed family carries both day and week, so this
	// must fall back.
	_, ok := Route(p)
	require.False(t, ok)
}

func TestRouteFallsBackWhenNoCubeMatches(t *testing.T) {
	p, err := Parse([]byte(`{"select": ["minute", "publisher_id", "country", {"SUM": "bid_price"}]}`))
	require.NoError(t, err)
	_, ok := Route(p)
	require.False(t, ok)
}

func TestRouteIsIdempotent(t *testing.T) {
	p, err := Parse([]byte(`{
		"select": ["country", {"AVG": "total_price"}],
		"where": [{"col": "type", "op": "eq", "val": "purchase"}]
	}`))
	require.NoError(t, err)
	name1, ok1 := Route(p)
	name2, ok2 := Route(p)
	require.Equal(t, ok1, ok2)
	require.Equal(t, name1, name2)
}
