// Package calendar adapts calendar events into the month, week, day and agenda ranges
// of the calendar screen.
package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/splax/cornerstone/internal/domain"
)

// View is a calendar layout.
type View int

const (
	Month View = iota
	Week
	Day
	Agenda
)

// AgendaDays is how far ahead the agenda looks.
const AgendaDays = 30

// Views lists the layouts in cycling order.
var Views = []View{Month, Week, Day, Agenda}

func (v View) String() string {
	switch v {
	case Week:
		return "week"
	case Day:
		return "day"
	case Agenda:
		return "agenda"
	default:
		return "month"
	}
}

// ParseView reads a view name as written by String.
func ParseView(s string) (View, bool) {
	for _, v := range Views {
		if strings.EqualFold(s, v.String()) {
			return v, true
		}
	}
	return Month, false
}

// Next cycles to the following layout.
func (v View) Next() View {
	return Views[(int(v)+1)%len(Views)]
}

// Entry is an event with its display times resolved.
type Entry struct {
	Event domain.CalendarEvent
	Title string
	Start time.Time
	End   time.Time
}

// Map derives the display fields of one event in loc.
func Map(ev domain.CalendarEvent, loc *time.Location) Entry {
	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = "(untitled)"
	}
	end := ev.EndTime
	if end.Before(ev.StartTime) {
		end = ev.StartTime
	}
	return Entry{
		Event: ev,
		Title: title,
		Start: ev.StartTime.In(loc),
		End:   end.In(loc),
	}
}

// MapAll maps a fetched batch, ordered by start.
func MapAll(events []domain.CalendarEvent, loc *time.Location) []Entry {
	out := make([]Entry, len(events))
	for i, ev := range events {
		out[i] = Map(ev, loc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Range is the half-open interval [from, to) shown by view around anchor.
// Weeks start on Monday.
func Range(view View, anchor time.Time) (from, to time.Time) {
	day := startOfDay(anchor)
	switch view {
	case Week:
		offset := (int(day.Weekday()) + 6) % 7
		from = day.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 7)
	case Day:
		return day, day.AddDate(0, 0, 1)
	case Agenda:
		return day, day.AddDate(0, 0, AgendaDays)
	default:
		from = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return from, from.AddDate(0, 1, 0)
	}
}

// Step moves anchor n ranges forward, or back for negative n.
func Step(view View, anchor time.Time, n int) time.Time {
	switch view {
	case Week:
		return anchor.AddDate(0, 0, 7*n)
	case Day:
		return anchor.AddDate(0, 0, n)
	case Agenda:
		return anchor.AddDate(0, 0, AgendaDays*n)
	default:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		return first.AddDate(0, n, 0)
	}
}

// Overlaps reports whether the entry intersects [from, to).
func (e Entry) Overlaps(from, to time.Time) bool {
	if e.End.Equal(e.Start) {
		return !e.Start.Before(from) && e.Start.Before(to)
	}
	return e.Start.Before(to) && e.End.After(from)
}

// InRange keeps the entries that intersect [from, to).
func InRange(entries []Entry, from, to time.Time) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Overlaps(from, to) {
			out = append(out, e)
		}
	}
	return out
}

// Days lists the midnights in [from, to).
func Days(from, to time.Time) []time.Time {
	var days []time.Time
	for d := startOfDay(from); d.Before(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// OnDay keeps the entries touching day.
func OnDay(entries []Entry, day time.Time) []Entry {
	start := startOfDay(day)
	return InRange(entries, start, start.AddDate(0, 0, 1))
}

// Title describes the range for a header, e.g. "March 2026" or "Week of 2 Mar 2026".
func Title(view View, anchor time.Time) string {
	from, to := Range(view, anchor)
	switch view {
	case Week:
		return "Week of " + from.Format("2 Jan 2006")
	case Day:
		return from.Format("Monday 2 January 2006")
	case Agenda:
		return from.Format("2 Jan") + " to " + to.AddDate(0, 0, -1).Format("2 Jan 2006")
	default:
		return from.Format("January 2006")
	}
}
