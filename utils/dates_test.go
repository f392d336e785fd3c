package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPreviousDay(t *testing.T) {
	cases := map[string]string{
		"2024-06-11": "2024-06-10",
		"2024-03-01": "2024-02-29", // leap year
		"2023-03-01": "2023-02-28",
		"2024-01-01": "2023-12-31",
		"not-a-date": "",
		"":           "",
		"2024-6-11":  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, PreviousDay(in), "PreviousDay(%q)", in)
	}
}

func TestWeekday(t *testing.T) {
	wd, ok := Weekday("2024-06-10")
	assert.True(t, ok)
	assert.Equal(t, time.Monday, wd)

	wd, ok = Weekday("2024-06-16")
	assert.True(t, ok)
	assert.Equal(t, time.Sunday, wd)

	_, ok = Weekday("garbage")
	assert.False(t, ok)
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate("2024-02-29"))
	assert.False(t, IsValidDate("2023-02-29"))
	assert.False(t, IsValidDate("2024-06-10T00:00:00Z"))
}
