// Package localtime holds restaurant-local calendar helpers. Reservation
// dates are plain YYYY-MM-DD strings and times are minutes since local
// midnight; nothing here shifts a date through UTC.
package localtime

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout of a restaurant-local date.
const DateLayout = "2006-01-02"

// MinutesPerDay bounds a minute-of-day value.
const MinutesPerDay = 24 * 60

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// ParseClock converts "HH:MM" into a minute-of-day. "24:00" is accepted so
// that a closing time can be midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if len(s) != 5 || h < 0 || m < 0 || m > 59 || h*60+m > MinutesPerDay {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders a minute-of-day as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// At returns the instant of date+minute in loc.
func At(date string, minute int, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(minute) * time.Minute), nil
}

// Today returns the restaurant-local calendar date of now.
func Today(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(DateLayout)
}

// MinuteOfDay returns the local minute-of-day of t.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

// Weekday returns the weekday of a YYYY-MM-DD date.
func Weekday(date string) (time.Weekday, error) {
	d, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}
