package fallback

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adcube-dev/adcube/internal/query"
)

func TestBuildSelectQuotesStringFiltersAndAliasesCountStar(t *testing.T) {
	p, err := query.Parse([]byte(`{
		"select": ["day", {"SUM": "bid_price"}, {"COUNT": "*"}],
		"where": [{"col": "type", "op": "eq", "val": "impression"}],
		"order_by": [{"col": "day", "dir": "asc"}]
	}`))
	require.NoError(t, err)

	sql, err := buildSelect(p)
	require.NoError(t, err)
	require.Contains(t, sql, `SUM(bid_price) AS "SUM(bid_price)"`)
	require.Contains(t, sql, `COUNT(*) AS "COUNT(*)"`)
	require.Contains(t, sql, `type = 'impression'`)
	require.Contains(t, sql, "GROUP BY day")
	require.Contains(t, sql, `ORDER BY "day" ASC NULLS LAST`)
}

func TestBuildSelectEmitsNumericFiltersUnquoted(t *testing.T) {
	p, err := query.Parse([]byte(`{
		"select": ["publisher_id", {"SUM": "bid_price"}],
		"where": [{"col": "advertiser_id", "op": "eq", "val": 42}]
	}`))
	require.NoError(t, err)

	sql, err := buildSelect(p)
	require.NoError(t, err)
	require.Contains(t, sql, "advertiser_id = 42")
	require.NotContains(t, sql, "advertiser_id = '42'")
}

func TestBuildSelectBetweenAndIn(t *testing.T) {
	p, err := query.Parse([]byte(`{
		"select": ["day"],
		"where": [
			{"col": "day", "op": "between", "val": ["2024-01-01", "2024-01-31"]},
			{"col": "country", "op": "in", "val": ["US", "DE"]}
		]
	}`))
	require.NoError(t, err)

	sql, err := buildSelect(p)
	require.NoError(t, err)
	require.Contains(t, sql, "day BETWEEN '2024-01-01' AND '2024-01-31'")
	require.Contains(t, sql, "country IN ('US', 'DE')")
}
