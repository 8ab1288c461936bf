package clock

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Today returns the current date in the catalog's date format.
func Today() string {
	return time.Now().Format(dateLayout)
}

// ParseDate parses a catalog date (YYYY-MM-DD).
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a valid date: %s", date)
	}
	return t, nil
}

// ValidDate reports whether date is a well-formed catalog date.
func ValidDate(date string) bool {
	_, err := ParseDate(date)
	return err == nil
}

// Passed reports whether a catalog date lies strictly before today.
// A malformed date counts as passed so stale records fall out of listings.
func Passed(date string) bool {
	t, err := ParseDate(date)
	if err != nil {
		return true
	}
	today, _ := ParseDate(Today())
	return t.Before(today)
}
