// Package calendar lays events out on a month grid.
package calendar

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go-journal-app/internal/data"
)

// DefaultRecentPastLimit caps the recent past list when no limit is configured.
const DefaultRecentPastLimit = 5

// Day is one slot of the grid. Placeholder slots pad the first and last week.
type Day struct {
	Date    time.Time
	InMonth bool
	IsToday bool
	Events  []*data.PathEvent
}

// Number is the day of the month, or 0 for placeholders.
func (d Day) Number() int {
	if !d.InMonth {
		return 0
	}
	return d.Date.Day()
}

// Week is a Monday-first row of seven days.
type Week [7]Day

// Month is the full calendar page model.
type Month struct {
	Year  int
	Month time.Month
	Weeks []Week

	// Events starting in the displayed month, ascending.
	Events []*data.PathEvent

	PrevYear  int
	PrevMonth time.Month
	NextYear  int
	NextMonth time.Month

	Upcoming   []*data.PathEvent
	RecentPast []*data.PathEvent
}

// Title renders as "February 2024".
func (m *Month) Title() string {
	return m.Month.String() + " " + strconv.Itoa(m.Year)
}

// Build places events on the grid of year/month as seen in loc.
// Events outside the month are ignored for the grid but still feed Upcoming
// and RecentPast, which are split around today.
func Build(events []*data.PathEvent, year int, month time.Month, today time.Time, loc *time.Location, recentPastLimit int) *Month {
	if loc == nil {
		loc = time.UTC
	}
	if recentPastLimit <= 0 {
		recentPastLimit = DefaultRecentPastLimit
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0)
	// Normalise out-of-range months such as 13.
	year, month = start.Year(), start.Month()

	sorted := make([]*data.PathEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartsAt.Before(sorted[j].StartsAt) })

	m := &Month{Year: year, Month: month, Events: []*data.PathEvent{}}
	byDay := make(map[int][]*data.PathEvent)
	for _, e := range sorted {
		local := e.StartsAt.In(loc)
		if local.Before(start) || !local.Before(end) {
			continue
		}
		m.Events = append(m.Events, e)
		byDay[local.Day()] = append(byDay[local.Day()], e)
	}

	todayLocal := today.In(loc)
	offset := (int(start.Weekday()) + 6) % 7
	daysInMonth := end.AddDate(0, 0, -1).Day()

	var week Week
	slot := 0
	for i := 0; i < offset; i++ {
		week[slot] = Day{Date: start.AddDate(0, 0, i-offset)}
		slot++
	}
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, loc)
		dayEvents := byDay[d]
		if dayEvents == nil {
			dayEvents = []*data.PathEvent{}
		}
		week[slot] = Day{
			Date:    date,
			InMonth: true,
			IsToday: sameDay(date, todayLocal),
			Events:  dayEvents,
		}
		slot++
		if slot == 7 {
			m.Weeks = append(m.Weeks, week)
			week = Week{}
			slot = 0
		}
	}
	if slot > 0 {
		for i := 0; slot < 7; i++ {
			week[slot] = Day{Date: end.AddDate(0, 0, i)}
			slot++
		}
		m.Weeks = append(m.Weeks, week)
	}

	m.PrevYear, m.PrevMonth = Shift(year, month, -1)
	m.NextYear, m.NextMonth = Shift(year, month, 1)
	m.Upcoming, m.RecentPast = Split(sorted, today, recentPastLimit)
	return m
}

// Shift moves year/month by delta months, wrapping across years.
func Shift(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// Split returns events starting at or after now in ascending order, and the
// most recent limit events before now in descending order.
func Split(events []*data.PathEvent, now time.Time, limit int) (upcoming, past []*data.PathEvent) {
	if limit <= 0 {
		limit = DefaultRecentPastLimit
	}
	if !sort.SliceIsSorted(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) }) {
		sorted := make([]*data.PathEvent, len(events))
		copy(sorted, events)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartsAt.Before(sorted[j].StartsAt) })
		events = sorted
	}
	upcoming = []*data.PathEvent{}
	past = []*data.PathEvent{}
	for _, e := range events {
		if e.StartsAt.Before(now) {
			continue
		}
		upcoming = append(upcoming, e)
	}
	for i := len(events) - 1; i >= 0 && len(past) < limit; i-- {
		if events[i].StartsAt.Before(now) {
			past = append(past, events[i])
		}
	}
	return upcoming, past
}

// ParseYearMonth reads the year and month query values. If either is missing
// or invalid, both fall back to now's year and month.
func ParseYearMonth(yearStr, monthStr string, now time.Time) (int, time.Month) {
	year, errY := strconv.Atoi(strings.TrimSpace(yearStr))
	month, errM := strconv.Atoi(strings.TrimSpace(monthStr))
	if errY != nil || errM != nil || year < 1 || year > 9999 || month < 1 || month > 12 {
		return now.Year(), now.Month()
	}
	return year, time.Month(month)
}

// ParseDate parses a YYYY-MM-DD value as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// OnDay keeps the events whose start falls on the local day of date.
func OnDay(events []*data.PathEvent, date time.Time, loc *time.Location) []*data.PathEvent {
	out := []*data.PathEvent{}
	date = date.In(loc)
	for _, e := range events {
		if sameDay(e.StartsAt.In(loc), date) {
			out = append(out, e)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
