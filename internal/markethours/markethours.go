// Package markethours knows when the NSE cash market is open.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// NSE session in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// Calendar is a trading calendar: a daily session window in a location,
// Monday to Friday, minus holidays.
type Calendar struct {
	loc      *time.Location
	open     int // minutes after midnight
	close    int
	holidays map[string]string
}

// NewNSECalendar returns the NSE equity calendar with the built-in holiday list.
func NewNSECalendar() *Calendar {
	c := &Calendar{
		loc:      IST,
		open:     OpenHour*60 + OpenMinute,
		close:    CloseHour*60 + CloseMinute,
		holidays: make(map[string]string, len(nseHolidays2026)),
	}
	for d, name := range nseHolidays2026 {
		c.holidays[d] = name
	}
	return c
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(c.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.Holiday(local)
	return !holiday
}

// IsOpen returns true if t falls within the session on a trading day.
func (c *Calendar) IsOpen(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	local := t.In(c.loc)
	hm := local.Hour()*60 + local.Minute()
	return hm >= c.open && hm < c.close
}

// NextOpen returns the next session open at or after t. If the market is
// open at t, it returns the following session's open.
func (c *Calendar) NextOpen(t time.Time) time.Time {
	local := t.In(c.loc)
	today := c.at(local, c.open)
	if local.Before(today) && c.IsTradingDay(local) {
		return today
	}
	d := local
	for i := 0; i < 30; i++ {
		d = d.AddDate(0, 0, 1)
		if c.IsTradingDay(d) {
			return c.at(d, c.open)
		}
	}
	return c.at(local.AddDate(0, 0, 1), c.open)
}

// Close returns the session close on t's date.
func (c *Calendar) Close(t time.Time) time.Time {
	return c.at(t.In(c.loc), c.close)
}

// Status returns a human-readable market status.
func (c *Calendar) Status(t time.Time) string {
	if c.IsOpen(t) {
		return fmt.Sprintf("Market Open, closes in %s", fmtDur(c.Close(t).Sub(t)))
	}
	next := c.NextOpen(t)
	local := next.In(c.loc)
	return fmt.Sprintf("Market Closed, opens %s %s (%s)",
		local.Weekday().String()[:3], local.Format("15:04"), fmtDur(next.Sub(t)))
}

func (c *Calendar) at(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, c.loc)
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
