package localtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("18:30")
	require.NoError(t, err)
	assert.Equal(t, 18*60+30, m)

	m, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, MinutesPerDay, m)

	for _, bad := range []string{"", "7:30", "18:60", "24:01", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestAtKeepsLocalCalendarDate(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	at, err := At("2024-06-01", 23*60+30, loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", Today(at, loc))
	assert.Equal(t, 23*60+30, MinuteOfDay(at, loc))
	// 23:30 EDT is already the next day in UTC.
	assert.Equal(t, "2024-06-02", at.UTC().Format(DateLayout))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(9*60+5))
	assert.Equal(t, "19:30", FormatClock(19*60+30))
}
