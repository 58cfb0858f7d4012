package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour int) time.Time {
	return time.Date(2025, 6, 10, hour, 30, 0, 0, time.UTC)
}

func TestWithinWindow(t *testing.T) {
	// Window is 08:00 to midnight.
	assert.False(t, WithinWindow(at(5), 8, 24))
	assert.False(t, WithinWindow(at(7), 8, 24))
	assert.True(t, WithinWindow(at(8), 8, 24))
	assert.True(t, WithinWindow(at(15), 8, 24))
	assert.True(t, WithinWindow(at(23), 8, 24))
	assert.False(t, WithinWindow(time.Date(2025, 6, 11, 0, 5, 0, 0, time.UTC), 8, 24))
}

func TestBookableDate(t *testing.T) {
	now := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)

	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	dayAfter := today.AddDate(0, 0, 2)
	yesterday := today.AddDate(0, 0, -1)

	assert.False(t, BookableDate(now, yesterday))
	assert.False(t, BookableDate(now, today), "same-day booking is closed")
	assert.True(t, BookableDate(now, tomorrow))
	assert.True(t, BookableDate(now, dayAfter))
}
