package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dayKeyLayout = "2006-01-02"

var dayKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseClock converts an "HH:MM" string to a minute-of-day value (0..1439).
func ParseClock(s string) (int, error) {
	hs, ms, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time value: %q", s)
	}
	h, errH := strconv.Atoi(hs)
	m, errM := strconv.Atoi(ms)
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time value: %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders a minute-of-day value as "HH:MM".
func FormatClock(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}

// FormatMinutes renders a duration in minutes as "7h 12m". Fractional
// minutes are truncated here, at display time only.
func FormatMinutes(minutes float64) string {
	total := int(minutes)
	if total < 0 {
		total = -total
	}
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

// FormatDayKey renders a date as a "YYYY-MM-DD" day key.
func FormatDayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// IsValidDayKey reports whether s is a well-formed "YYYY-MM-DD" day key.
func IsValidDayKey(s string) bool {
	if !dayKeyPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(dayKeyLayout, s)
	return err == nil
}

// ParseDayKey parses a "YYYY-MM-DD" day key.
func ParseDayKey(s string) (time.Time, error) {
	t, err := time.Parse(dayKeyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key: %q", s)
	}
	return t, nil
}
