package domain

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
	// InstantLayout matches the ISO-8601 form the booking API expects (UTC, millisecond precision).
	InstantLayout = "2006-01-02T15:04:05.000Z07:00"
)

// TimeSlot is one bookable unit: a calendar date plus an HH:mm label.
type TimeSlot struct {
	Date time.Time `json:"date"`
	Time string    `json:"time"`
}

// Day truncates t to its calendar date in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// ParseTimeOfDay validates an HH:mm label and returns its hour and minute.
func ParseTimeOfDay(label string) (hour, minute int, err error) {
	if len(label) < 5 {
		return 0, 0, fmt.Errorf("invalid time of day %q", label)
	}
	t, err := time.Parse(TimeOfDayLayout, label[:5])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", label, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Instant combines the slot's date and time of day as wall-clock time in loc.
func (s TimeSlot) Instant(loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(s.Time)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc), nil
}

// FormatInstant renders t the way the booking API expects it.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}
