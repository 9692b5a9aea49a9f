package cube

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adcube-dev/adcube/internal/event"
)

func mkBatch(days []string, types []event.Type, bid []float64, bidNull []bool) *event.Batch {
	n := len(days)
	b := event.NewBatch(n)
	for i := 0; i < n; i++ {
		b.TS = append(b.TS, int64(i))
		b.Type = append(b.Type, types[i])
		b.AuctionID = append(b.AuctionID, "a")
		b.AdvertiserID = append(b.AdvertiserID, 1)
		b.PublisherID = append(b.PublisherID, 1)
		b.BidPrice = append(b.BidPrice, bid[i])
		b.BidPriceNull = append(b.BidPriceNull, bidNull[i])
		b.UserID = append(b.UserID, "u")
		b.TotalPrice = append(b.TotalPrice, 1.0)
		b.TotalPriceNull = append(b.TotalPriceNull, false)
		b.Country = append(b.Country, "US")
		b.Day = append(b.Day, days[i])
		b.Hour = append(b.Hour, days[i]+" 00")
		b.Minute = append(b.Minute, days[i]+" 00:00")
		b.Week = append(b.Week, "2024-W01")
	}
	return b
}

// TestKeyCoalesceInvariant verifies spec.md §8 property 4: after every
// merge step, no accumulator row has an empty (NULL-surfaced) key
// component, across many fold cycles with overlapping keys.
func TestKeyCoalesceInvariant(t *testing.T) {
	b, err := NewBuilder("day_type", []string{"day", "type"}, 3)
	require.NoError(t, err)

	days := []string{"2024-01-01", "2024-01-02", "2024-01-01"}
	types := []event.Type{event.TypeClick, event.TypeClick, event.TypeImpression}
	bid := []float64{1, 2, 3}
	bidNull := []bool{false, false, false}

	for i := 0; i < 10; i++ {
		require.NoError(t, b.AddBatch(mkBatch(days, types, bid, bidNull)))
	}
	c, err := b.Finish()
	require.NoError(t, err)

	for _, row := range c.Rows {
		for _, k := range row.Key {
			require.NotEmpty(t, k)
		}
	}
	require.Equal(t, 3, c.Len())
}

// TestCombineAssociativeAcrossFoldBoundary checks that folding in small
// batches (threshold crossed mid-stream) gives the same totals as one
// big batch, i.e. batch interleaving doesn't affect the result
// (spec.md §5 ordering guarantee).
func TestCombineAssociativeAcrossFoldBoundary(t *testing.T) {
	days := []string{"2024-01-01"}
	types := []event.Type{event.TypeClick}

	bSmall, err := NewBuilder("day_type", []string{"day", "type"}, 2)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		require.NoError(t, bSmall.AddBatch(mkBatch(days, types, []float64{float64(i)}, []bool{false})))
	}
	small, err := bSmall.Finish()
	require.NoError(t, err)

	bBig, err := NewBuilder("day_type", []string{"day", "type"}, 100)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		require.NoError(t, bBig.AddBatch(mkBatch(days, types, []float64{float64(i)}, []bool{false})))
	}
	big, err := bBig.Finish()
	require.NoError(t, err)

	rowSmall, ok := small.Get([]string{"2024-01-01", "click"})
	require.True(t, ok)
	rowBig, ok := big.Get([]string{"2024-01-01", "click"})
	require.True(t, ok)
	require.Equal(t, rowBig.P, rowSmall.P)
	require.Equal(t, int64(7), rowSmall.P.RowCnt)
	require.InDelta(t, 21.0, rowSmall.P.BidSum, 1e-9) // 0+1+...+6
}

// TestRegroupCoarseningMatchesDirectBuild verifies spec.md §8 property 3:
// regrouping a finer cube onto a dimension subset matches a cube built
// directly on that subset.
func TestRegroupCoarseningMatchesDirectBuild(t *testing.T) {
	days := []string{"2024-01-01", "2024-01-01", "2024-01-02"}
	types := []event.Type{event.TypeClick, event.TypeImpression, event.TypeClick}
	bid := []float64{1, 2, 3}
	bidNull := []bool{false, false, false}

	fine, err := NewBuilder("day_country_type", []string{"day", "country", "type"}, 10)
	require.NoError(t, err)
	require.NoError(t, fine.AddBatch(mkBatch(days, types, bid, bidNull)))
	fineCube, err := fine.Finish()
	require.NoError(t, err)

	coarse, err := NewBuilder("day_type", []string{"day", "type"}, 10)
	require.NoError(t, err)
	require.NoError(t, coarse.AddBatch(mkBatch(days, types, bid, bidNull)))
	coarseCube, err := coarse.Finish()
	require.NoError(t, err)

	regrouped, err := fineCube.Regroup([]string{"day", "type"})
	require.NoError(t, err)

	require.Equal(t, coarseCube.Len(), regrouped.Len())
	for k, row := range coarseCube.Rows {
		other, ok := regrouped.Rows[k]
		require.True(t, ok)
		require.Equal(t, row.P, other.P)
	}
}

func TestNullMeasuresExcludedFromSumAndCount(t *testing.T) {
	days := []string{"2024-01-01", "2024-01-01"}
	types := []event.Type{event.TypeClick, event.TypeClick}
	bid := []float64{5, 0}
	bidNull := []bool{false, true}

	b, err := NewBuilder("day_type", []string{"day", "type"}, 10)
	require.NoError(t, err)
	require.NoError(t, b.AddBatch(mkBatch(days, types, bid, bidNull)))
	c, err := b.Finish()
	require.NoError(t, err)

	row, ok := c.Get([]string{"2024-01-01", "click"})
	require.True(t, ok)
	require.Equal(t, int64(1), row.P.BidCnt)
	require.Equal(t, int64(2), row.P.RowCnt)
	require.InDelta(t, 5.0, row.P.BidSum, 1e-9)

	mn, ok := row.P.BidMinValue()
	require.True(t, ok)
	require.InDelta(t, 5.0, mn, 1e-9)
}
