package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpectedSettlement_WeekdayTable(t *testing.T) {
	// Week of 2025-03-10, no holidays nearby.
	tests := []struct {
		name       string
		event      time.Time
		want       time.Time
		wantOffset int
	}{
		{"monday", date(2025, time.March, 10), date(2025, time.March, 11), 1},
		{"tuesday", date(2025, time.March, 11), date(2025, time.March, 12), 1},
		{"wednesday", date(2025, time.March, 12), date(2025, time.March, 13), 1},
		{"thursday", date(2025, time.March, 13), date(2025, time.March, 14), 1},
		{"friday skips weekend", date(2025, time.March, 14), date(2025, time.March, 17), 3},
		{"saturday", date(2025, time.March, 15), date(2025, time.March, 18), 3},
		{"sunday", date(2025, time.March, 16), date(2025, time.March, 18), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpectedSettlement(tt.event)
			assert.Equal(t, tt.want, got.Date)
			assert.Equal(t, tt.wantOffset, got.OffsetDays)
			assert.NotContains(t, got.Note, "holiday")
		})
	}
}

func TestExpectedSettlement_HolidayShift(t *testing.T) {
	// Friday 2025-04-18 + 3 lands on Easter Monday; the settlement rolls
	// to Tuesday and the note records the shift.
	got := ExpectedSettlement(date(2025, time.April, 18))
	assert.Equal(t, date(2025, time.April, 22), got.Date)
	assert.Equal(t, 4, got.OffsetDays)
	assert.Contains(t, got.Note, "holiday")
}

func TestExpectedSettlement_MidweekHolidayShift(t *testing.T) {
	// Wednesday 2025-12-24 + 1 lands on Christmas; the next business day
	// is Monday the 29th.
	got := ExpectedSettlement(date(2025, time.December, 24))
	assert.Equal(t, date(2025, time.December, 29), got.Date)
	assert.Equal(t, 5, got.OffsetDays)
	assert.Contains(t, got.Note, "holiday")
}
