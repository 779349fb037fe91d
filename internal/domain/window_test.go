package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDailyWindow_Bounds(t *testing.T) {
	w := DailyWindow(ts("2024-01-10T15:04:05Z"))

	assert.Equal(t, ts("2024-01-10T00:00:00Z"), w.Start)
	assert.Equal(t, ts("2024-01-10T23:59:59Z"), w.End)
}

func TestDailyWindow_TwoSecondsApartDifferentDays(t *testing.T) {
	late := ts("2024-01-10T23:59:59Z")
	early := ts("2024-01-11T00:00:01Z")

	lateWindow := DailyWindow(late)
	earlyWindow := DailyWindow(early)

	require.NotEqual(t, lateWindow.Start, earlyWindow.Start)
	assert.True(t, lateWindow.Contains(late))
	assert.False(t, lateWindow.Contains(early))
	assert.True(t, earlyWindow.Contains(early))
	assert.False(t, earlyWindow.Contains(late))
}

func TestWeeklyWindow_Bounds(t *testing.T) {
	w := WeeklyWindow(ts("2024-01-10T15:04:05Z"))

	assert.Equal(t, ts("2024-01-03T00:00:00Z"), w.Start)
	// End-of-day at microsecond precision, unlike the daily window's
	// second precision.
	assert.Equal(t, ts("2024-01-10T23:59:59.999999Z"), w.End)
}

func TestWeeklyWindow_TrailingSevenDays(t *testing.T) {
	at := ts("2024-01-10T00:00:00Z")
	w := WeeklyWindow(at)

	sevenDaysOneSecBefore := at.Add(-7*24*time.Hour - time.Second)
	sixDays23hBefore := at.Add(-6*24*time.Hour - 23*time.Hour)

	assert.False(t, w.Contains(sevenDaysOneSecBefore))
	assert.True(t, w.Contains(sixDays23hBefore))
}

func TestWeeklyWindow_IncludesRestOfRequestDay(t *testing.T) {
	// The window runs through end-of-day of the request timestamp, so a
	// redemption later the same day is still inside it.
	w := WeeklyWindow(ts("2024-01-10T08:00:00Z"))

	assert.True(t, w.Contains(ts("2024-01-10T22:00:00Z")))
	assert.True(t, w.Contains(ts("2024-01-10T23:59:59.999999Z")))
	assert.False(t, w.Contains(ts("2024-01-11T00:00:00Z")))
}

func TestWindowContains_InclusiveBounds(t *testing.T) {
	w := Window{Start: ts("2024-01-01T00:00:00Z"), End: ts("2024-01-02T00:00:00Z")}

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End.Add(time.Nanosecond)))
}

func TestQuotaLimitsValidate(t *testing.T) {
	valid := QuotaLimits{GlobalTotal: 2, UserTotal: 1, UserDaily: 1, UserWeekly: 1}
	require.NoError(t, valid.Validate())

	zero := QuotaLimits{}
	require.NoError(t, zero.Validate())

	negative := QuotaLimits{GlobalTotal: 10, UserTotal: -1, UserDaily: 1, UserWeekly: 1}
	assert.ErrorIs(t, negative.Validate(), ErrInvalidLimits)
}
