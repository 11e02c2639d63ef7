package calendar

import (
	"fmt"
	"time"
)

// Settlement describes when a card payment is expected to reach the bank
// account. OffsetDays is the final effective offset from the event date and
// Note records whether a holiday pushed the date forward; both are kept for
// audit display.
type Settlement struct {
	Date       time.Time
	Note       string
	OffsetDays int
}

// weekday-dependent base offsets in calendar days.
var settlementOffsets = map[time.Weekday]int{
	time.Monday:    1,
	time.Tuesday:   1,
	time.Wednesday: 1,
	time.Thursday:  1,
	time.Friday:    3,
	time.Saturday:  3,
	time.Sunday:    2,
}

// ExpectedSettlement maps a payment event date to its expected settlement
// date: a fixed weekday-dependent offset, then a roll to the next business
// day if a holiday landed on the result. Pure and total over any date.
func ExpectedSettlement(eventDate time.Time) Settlement {
	eventDate = truncate(eventDate)
	base := settlementOffsets[eventDate.Weekday()]
	date := eventDate.AddDate(0, 0, base)

	note := fmt.Sprintf("base offset +%d days for %s", base, eventDate.Weekday())
	if !IsBusinessDay(date) {
		date = NextBusinessDay(date)
		note += ", shifted past holiday to next business day"
	}

	return Settlement{
		Date:       date,
		OffsetDays: int(date.Sub(eventDate).Hours() / 24),
		Note:       note,
	}
}
