package security_test

import (
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/security"
	"github.com/stretchr/testify/assert"
)

func hoursUS() security.Hours {
	return security.NewHours(time.UTC, 9*time.Hour+30*time.Minute, 16*time.Hour, "2024-07-04")
}

func TestIsOpen(t *testing.T) {
	h := hoursUS()
	// Monday 2024-01-01 at 10:00 — within session.
	open := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, h.IsOpen(open))

	// Saturday.
	weekend := time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC)
	assert.False(t, h.IsOpen(weekend))

	// Before open.
	early := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	assert.False(t, h.IsOpen(early))

	// Holiday.
	holiday := time.Date(2024, 7, 4, 10, 0, 0, 0, time.UTC)
	assert.False(t, h.IsOpen(holiday))
}

func TestAddTradingDays_SkipsWeekendAndHoliday(t *testing.T) {
	h := hoursUS()
	// Monday 2024-07-01 16:00, +3 trading days should land on Thursday
	// 2024-07-04 being a holiday pushes it to Friday 2024-07-05.
	start := time.Date(2024, 7, 1, 16, 0, 0, 0, time.UTC)
	got := h.AddTradingDays(start, 3, 16*time.Hour)
	want := time.Date(2024, 7, 5, 16, 0, 0, 0, time.UTC)
	assert.True(t, got.Equal(want), "got %v want %v", got, want)
}

func TestNextClose(t *testing.T) {
	h := hoursUS()
	mid := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	got := h.NextClose(mid)
	want := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	assert.True(t, got.Equal(want))

	afterClose := time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)
	got = h.NextClose(afterClose)
	want = time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	assert.True(t, got.Equal(want))
}
