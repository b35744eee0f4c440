// Package datekey converts calendar dates to the storage keys tasks are
// partitioned by.
package datekey

import (
	"fmt"
	"time"
)

const (
	KeyLayout     = "2006-01-02"
	DisplayLayout = "January 2, 2006"
)

// ToKey returns the zero-padded YYYY-MM-DD key for t in t's own location.
func ToKey(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

func ToDisplay(t time.Time) string {
	return t.Format(DisplayLayout)
}

// Parse is the inverse of ToKey. The result is midnight of that calendar day in loc.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(KeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

func Today(now time.Time) time.Time {
	return StartOfDay(now)
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves by calendar days, so DST transitions never skip or repeat a date.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool {
	return ToKey(a) == ToKey(b)
}
