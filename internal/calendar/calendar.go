// Package calendar computes business days under the Italian holiday
// calendar, including the moving Easter date, and maps card-payment event
// dates to expected settlement dates.
package calendar

import "time"

// fixedHolidays lists the national holidays that fall on the same day every
// year, as (day, month) pairs.
var fixedHolidays = []struct {
	Day   int
	Month time.Month
}{
	{1, time.January},   // Capodanno
	{6, time.January},   // Epifania
	{25, time.April},    // Liberazione
	{1, time.May},       // Festa del Lavoro
	{2, time.June},      // Festa della Repubblica
	{15, time.August},   // Ferragosto
	{1, time.November},  // Ognissanti
	{8, time.December},  // Immacolata
	{25, time.December}, // Natale
	{26, time.December}, // Santo Stefano
}

// Easter returns Easter Sunday for the given Gregorian year, computed with
// the Gauss/Meeus congruential algorithm. Integer arithmetic only; valid
// for any Gregorian year.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// Holidays returns the full holiday set for a year, fixed dates plus Easter
// Monday. Easter Sunday itself is omitted since Sundays are never business
// days anyway.
func Holidays(year int) map[time.Time]struct{} {
	set := make(map[time.Time]struct{}, len(fixedHolidays)+1)
	for _, h := range fixedHolidays {
		set[time.Date(year, h.Month, h.Day, 0, 0, 0, 0, time.UTC)] = struct{}{}
	}
	set[Easter(year).AddDate(0, 0, 1)] = struct{}{} // Pasquetta
	return set
}

// truncate drops the time-of-day portion so map lookups work on any input.
func truncate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether d is neither a weekend day nor a holiday.
func IsBusinessDay(d time.Time) bool {
	d = truncate(d)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := Holidays(d.Year())[d]
	return !holiday
}

// NextBusinessDay returns the first business day strictly after d. The
// holiday set is re-derived per date, so year boundaries need no special
// handling.
func NextBusinessDay(d time.Time) time.Time {
	d = truncate(d).AddDate(0, 0, 1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
