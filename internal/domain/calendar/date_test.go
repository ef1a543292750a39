package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	d, err := Parse("2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, Date("2025-01-01"), d)

	for _, bad := range []string{"", "2025-1-1", "2025/01/01", "2025-02-30"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, "input %q", bad)
	}
}

func TestAddDays(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		base     Date
		days     int
		expected Date
	}{
		{"2025-01-01", 90, "2025-04-01"},
		{"2025-02-01", 7, "2025-02-08"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2025-12-31", 1, "2026-01-01"},
		{"2025-03-01", -1, "2025-02-28"},
	}

	for _, tc := range testCases {
		got, err := tc.base.AddDays(tc.days)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, got, "%s + %d", tc.base, tc.days)
	}

	_, err := Date("garbage").AddDays(1)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestComparisons(t *testing.T) {
	t.Parallel()

	a := MustParse("2025-01-01")
	b := MustParse("2025-01-02")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.True(t, ExcludedSentinel.After(b))
	assert.True(t, ExcludedSentinel.IsSentinel())
}

func TestFromTimeUsesLocation(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2025-01-01 20:00 UTC is already 2025-01-02 in Tokyo.
	ts := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Date("2025-01-01"), FromTime(ts, nil))
	assert.Equal(t, Date("2025-01-02"), FromTime(ts, tokyo))
}

func TestProviders(t *testing.T) {
	t.Parallel()

	fixed := FixedProvider{Day: "2025-01-01"}
	assert.Equal(t, Date("2025-01-01"), fixed.Today())

	sys := NewSystemProvider(nil)
	sys.now = func() time.Time { return time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC) }
	assert.Equal(t, Date("2030-06-15"), sys.Today())

	_, err := NewSystemProviderForZone("Not/AZone")
	assert.Error(t, err)
}
