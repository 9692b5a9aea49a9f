package cubestore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adcube-dev/adcube/internal/cube"
)

func sampleCube() *cube.Cube {
	c := &cube.Cube{Name: "day_type", Dims: []string{"day", "type"}, Rows: make(map[string]*cube.Row)}
	rows := []cube.Row{
		{Key: []string{"2024-01-01", "click"}, P: cube.Partial{}},
	}
	for _, r := range rows {
		r := r
		c.Rows[cube.JoinKey(r.Key)] = &r
	}
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	c := sampleCube()
	// give the row a non-trivial, NULL-bearing partial
	row := c.Rows[cube.JoinKey([]string{"2024-01-01", "click"})]
	row.P.BidSum = 10
	row.P.BidCnt = 2
	row.P.BidMin = 3
	row.P.BidMax = 7
	row.P.RowCnt = 5
	// tot_* left at zero count -> NULL min/max on round trip

	require.NoError(t, s.Save(c, "UTC", 3, 1700000000))

	meta, err := s.LoadMeta("day_type")
	require.NoError(t, err)
	require.Equal(t, "UTC", meta.Timezone)
	require.Equal(t, 3, meta.SourceFileCount)
	require.Equal(t, []string{"day", "type"}, meta.Dims)

	loaded, err := s.Load("day_type")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())

	got, ok := loaded.Get([]string{"2024-01-01", "click"})
	require.True(t, ok)
	require.Equal(t, int64(2), got.P.BidCnt)
	require.InDelta(t, 10.0, got.P.BidSum, 1e-9)

	mn, ok := got.P.TotMinValue()
	require.False(t, ok)
	require.Zero(t, mn)

	bmn, ok := got.P.BidMinValue()
	require.True(t, ok)
	require.InDelta(t, 3.0, bmn, 1e-9)
}

func TestLoadIsCachedAndIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Save(sampleCube(), "UTC", 1, 1700000000))

	a, err := s.Load("day_type")
	require.NoError(t, err)
	b, err := s.Load("day_type")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestLoadRejectsCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Save(sampleCube(), "UTC", 1, 1700000000))

	raw, err := os.ReadFile(s.arrowPath("day_type"))
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(s.arrowPath("day_type"), raw, 0o644))

	_, err = s.Load("day_type")
	require.Error(t, err)
}

func TestPreloadAllSkipsOversizedCubes(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Save(sampleCube(), "UTC", 1, 1700000000))

	require.NoError(t, s.PreloadAll([]string{"day_type"}, 0))
	s.mu.RLock()
	_, cached := s.cached["day_type"]
	s.mu.RUnlock()
	require.False(t, cached)

	require.NoError(t, s.PreloadAll([]string{"day_type"}, 1024))
	s.mu.RLock()
	_, cached = s.cached["day_type"]
	s.mu.RUnlock()
	require.True(t, cached)
}
