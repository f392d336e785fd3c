package utils

import "time"

const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in YYYY-MM-DD form as midnight UTC.
func ParseDate(date string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// PreviousDay returns the day before date, or "" if date is not a valid
// calendar date.
func PreviousDay(date string) string {
	t, ok := ParseDate(date)
	if !ok {
		return ""
	}
	return FormatDate(t.AddDate(0, 0, -1))
}

// Weekday returns the weekday of a calendar date, Sunday = 0.
func Weekday(date string) (time.Weekday, bool) {
	t, ok := ParseDate(date)
	if !ok {
		return 0, false
	}
	return t.Weekday(), true
}

func IsValidDate(date string) bool {
	_, ok := ParseDate(date)
	return ok
}
