package timedim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeUTC(t *testing.T) {
	enc, err := NewEncoder("UTC")
	require.NoError(t, err)

	// 2024-06-01T14:30:45Z
	ts := int64(1717252245000)
	dims, err := enc.Encode(ts)
	require.NoError(t, err)

	require.Equal(t, "2024-06-01", dims.Day)
	require.Equal(t, "2024-06-01 14", dims.Hour)
	require.Equal(t, "2024-06-01 14:30", dims.Minute)
	require.Regexp(t, `^2024-W\d{2}$`, dims.Week)
}

func TestEncodeOutOfRange(t *testing.T) {
	enc, err := NewEncoder("UTC")
	require.NoError(t, err)

	_, err = enc.Encode(-1)
	require.Error(t, err)

	_, err = enc.Encode(maxEpochMs + 1)
	require.Error(t, err)
}

func TestLexicographicChronologicalOrder(t *testing.T) {
	enc, err := NewEncoder("UTC")
	require.NoError(t, err)

	earlier, err := enc.Encode(1717252245000) // 2024-06-01
	require.NoError(t, err)
	later, err := enc.Encode(1717252245000 + 3600_000) // +1h
	require.NoError(t, err)

	require.True(t, earlier.Hour < later.Hour)
	require.True(t, earlier.Minute < later.Minute)
}

func TestInvalidTimezone(t *testing.T) {
	_, err := NewEncoder("Not/A_Real_Zone")
	require.Error(t, err)
}
