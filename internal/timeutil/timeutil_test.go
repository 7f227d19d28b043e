package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"07:30", 7*60 + 30, false},
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{"7:05", 7*60 + 5, false},
		{"12:00", 720, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"-1:30", 0, true},
		{"1230", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "07:30", FormatClock(450))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "19:00", FormatClock(1140))
	assert.Equal(t, "15:12", FormatClock(912))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "7h 12m", FormatMinutes(432))
	assert.Equal(t, "0h 30m", FormatMinutes(30))
	assert.Equal(t, "0h 0m", FormatMinutes(0))
	// fractional minutes are truncated only here
	assert.Equal(t, "1h 30m", FormatMinutes(90.7))
}

func TestDayKeys(t *testing.T) {
	assert.True(t, IsValidDayKey("2025-08-28"))
	assert.False(t, IsValidDayKey("2025-13-28"))
	assert.False(t, IsValidDayKey("2025-8-28"))
	assert.False(t, IsValidDayKey("not-a-day"))

	day := time.Date(2025, 8, 28, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2025-08-28", FormatDayKey(day))

	parsed, err := ParseDayKey("2025-08-28")
	require.NoError(t, err)
	assert.Equal(t, 2025, parsed.Year())
	assert.Equal(t, time.August, parsed.Month())

	_, err = ParseDayKey("2025-02-31")
	assert.Error(t, err)
}
