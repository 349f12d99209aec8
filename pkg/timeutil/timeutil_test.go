package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("+05:00")
	require.NoError(t, err)
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 5*3600, offset)

	loc, err = LoadLocation("-03:30")
	require.NoError(t, err)
	_, offset = time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -(3*3600 + 30*60), offset)

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestCalendarDaysBetween(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)

	a := time.Date(2025, 3, 10, 18, 59, 0, 0, time.UTC) // 23:59 local
	b := time.Date(2025, 3, 10, 19, 1, 0, 0, time.UTC)  // 00:01 local next day
	assert.Equal(t, 1, CalendarDaysBetween(a, b, loc))
	assert.Equal(t, 0, CalendarDaysBetween(a, b, time.UTC))
	assert.Equal(t, -1, CalendarDaysBetween(b, a, loc))

	assert.True(t, IsSameDay(a, b, time.UTC))
	assert.False(t, IsSameDay(a, b, loc))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), StartOfDay(ts, loc))
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, loc), NextStartOfDay(ts, loc))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	c.Advance(25 * time.Hour)
	assert.Equal(t, start.Add(25*time.Hour), c.Now())
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", FormatRelative(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", FormatRelative(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3d ago", FormatRelative(now.Add(-72*time.Hour), now))
	assert.Equal(t, "in 2h", FormatRelative(now.Add(2*time.Hour), now))
}
