package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adcube-dev/adcube/internal/cube"
)

func dayTypeCube() *cube.Cube {
	c := &cube.Cube{Name: "day_type", Dims: []string{"day", "type"}, Rows: make(map[string]*cube.Row)}
	rows := []struct {
		key    []string
		bidSum float64
		bidCnt int64
		bidMin float64
		bidMax float64
		rowCnt int64
	}{
		{[]string{"2024-06-01", "impression"}, 30, 3, 5, 15, 3},
		{[]string{"2024-06-02", "impression"}, 10, 2, 4, 6, 2},
		{[]string{"2024-06-01", "click"}, 0, 0, math.Inf(1), math.Inf(-1), 4}, // all-NULL bid_price bucket
	}
	for _, r := range rows {
		c.Rows[cube.JoinKey(r.key)] = &cube.Row{
			Key: r.key,
			P: cube.Partial{
				BidSum: r.bidSum, BidCnt: r.bidCnt, BidMin: r.bidMin, BidMax: r.bidMax,
				RowCnt: r.rowCnt,
			},
		}
	}
	return c
}

func TestExecuteDailyImpressionSpend(t *testing.T) {
	c := dayTypeCube()
	p, err := Parse([]byte(`{
		"select": ["day", {"SUM": "bid_price"}],
		"where": [{"col": "type", "op": "eq", "val": "impression"}]
	}`))
	require.NoError(t, err)

	res, err := Execute(c, p)
	require.NoError(t, err)
	require.Equal(t, []string{"day", "SUM(bid_price)"}, res.Columns)
	require.Len(t, res.Rows, 2)
}

func TestExecuteAllNullMeasureBucketYieldsNullSum(t *testing.T) {
	c := dayTypeCube()
	p, err := Parse([]byte(`{
		"select": ["type", {"SUM": "bid_price"}, {"COUNT": "*"}],
		"where": [{"col": "type", "op": "eq", "val": "click"}]
	}`))
	require.NoError(t, err)

	res, err := Execute(c, p)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	sumCell := res.Rows[0][1]
	require.True(t, sumCell.IsNull)
	countCell := res.Rows[0][2]
	require.Equal(t, float64(4), countCell.Num)
}

func TestExecuteOrderByDescNullsLast(t *testing.T) {
	c := dayTypeCube()
	p, err := Parse([]byte(`{
		"select": ["type", {"SUM": "bid_price"}],
		"order_by": [{"col": "SUM(bid_price)", "dir": "desc"}]
	}`))
	require.NoError(t, err)

	res, err := Execute(c, p)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	// click's SUM is NULL (all bid_price null) and must sort last even
	// under desc ordering.
	last := res.Rows[len(res.Rows)-1]
	require.True(t, last[1].IsNull)
}

func TestExecuteRegroupsWhenGroupByIsSubsetOfCubeDims(t *testing.T) {
	c := dayTypeCube()
	p, err := Parse([]byte(`{"select": [{"SUM": "bid_price"}]}`))
	require.NoError(t, err)

	res, err := Execute(c, p)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.InDelta(t, 40.0, res.Rows[0][0].Num, 1e-9) // 30 + 10 + 0
}
