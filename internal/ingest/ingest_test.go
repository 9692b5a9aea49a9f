package ingest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adcube-dev/adcube/internal/timedim"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestIngestSingleBatch(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"+
		"1717252245000,impression,auc-1,10,20,1.5,user-1,,US\n"+
		"1717252246000,purchase,auc-2,11,21,,user-2,9.99,DE\n")

	enc, err := timedim.NewEncoder("UTC")
	require.NoError(t, err)

	in, err := New(dir, 1024, enc)
	require.NoError(t, err)

	b, err := in.Next()
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	require.Equal(t, "2024-06-01", b.Day[0])
	require.True(t, b.BidPriceNull[1])
	require.False(t, b.TotalPriceNull[1])
	require.Equal(t, 9.99, b.TotalPrice[1])
	require.True(t, b.TotalPriceNull[0])
}

func TestIngestMultipleFilesSortedByPath(t *testing.T) {
	dir := t.TempDir()
	header := "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"
	writeCSV(t, dir, "b.csv", header+"1717252245000,click,auc-b,1,1,1.0,u,1.0,US\n")
	writeCSV(t, dir, "a.csv", header+"1717252245000,click,auc-a,1,1,1.0,u,1.0,US\n")

	enc, err := timedim.NewEncoder("UTC")
	require.NoError(t, err)

	in, err := New(dir, 1024, enc)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, in.Files())

	b, err := in.Next()
	require.NoError(t, err)
	require.Equal(t, []string{"auc-a", "auc-b"}, b.AuctionID)
}

func TestIngestBatchBoundary(t *testing.T) {
	dir := t.TempDir()
	header := "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"
	rows := ""
	for i := 0; i < 5; i++ {
		rows += "1717252245000,click,auc,1,1,1.0,u,1.0,US\n"
	}
	writeCSV(t, dir, "a.csv", header+rows)

	enc, err := timedim.NewEncoder("UTC")
	require.NoError(t, err)

	in, err := New(dir, 2, enc)
	require.NoError(t, err)

	var total int
	for {
		b, err := in.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.LessOrEqual(t, b.Len(), 2)
		total += b.Len()
	}
	require.Equal(t, 5, total)
}

func TestIngestRejectsBadSchema(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", "ts,type,wrong_col\n1,click,x\n")

	enc, err := timedim.NewEncoder("UTC")
	require.NoError(t, err)

	in, err := New(dir, 1024, enc)
	require.NoError(t, err)

	_, err = in.Next()
	require.Error(t, err)
}

func TestIngestRejectsOutOfRangeTimestamp(t *testing.T) {
	dir := t.TempDir()
	header := "ts,type,auction_id,advertiser_id,publisher_id,bid_price,user_id,total_price,country\n"
	writeCSV(t, dir, "a.csv", header+"-5,click,auc,1,1,1.0,u,1.0,US\n")

	enc, err := timedim.NewEncoder("UTC")
	require.NoError(t, err)

	in, err := New(dir, 1024, enc)
	require.NoError(t, err)

	_, err = in.Next()
	require.Error(t, err)
}
