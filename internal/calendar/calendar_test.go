package calendar

import (
	"testing"
	"time"

	"github.com/splax/cornerstone/internal/domain"
)

func TestMapUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ev := domain.CalendarEvent{
		ID:        "e1",
		StartTime: time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC),
	}
	e := Map(ev, loc)
	if e.Start.Day() != 2 || e.Start.Hour() != 0 || e.Title != "(untitled)" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Event.ID != "e1" {
		t.Fatalf("source event should be kept")
	}
}

func TestMapAllOrdersByStart(t *testing.T) {
	late := domain.CalendarEvent{ID: "late", Title: "b", StartTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	early := domain.CalendarEvent{ID: "early", Title: "a", StartTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	entries := MapAll([]domain.CalendarEvent{late, early}, time.UTC)
	if entries[0].Event.ID != "early" {
		t.Fatalf("expected start order, got %s first", entries[0].Event.ID)
	}
}

func TestRanges(t *testing.T) {
	// Wednesday.
	anchor := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	cases := []struct {
		view     View
		from, to time.Time
	}{
		{Month, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{Week, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},
		{Day, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{Agenda, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		from, to := Range(tc.view, anchor)
		if !from.Equal(tc.from) || !to.Equal(tc.to) {
			t.Fatalf("%s: got %v..%v", tc.view, from, to)
		}
	}
}

func TestStepMonthFromMonthEnd(t *testing.T) {
	anchor := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	next := Step(Month, anchor, 1)
	if next.Month() != time.February {
		t.Fatalf("expected February, got %v", next)
	}
	if prev := Step(Week, anchor, -1); prev.Day() != 24 {
		t.Fatalf("expected a week back, got %v", prev)
	}
}

func TestInRangeOverlap(t *testing.T) {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	spanning := Entry{Start: day.Add(-2 * time.Hour), End: day.Add(time.Hour)}
	instant := Entry{Start: day.Add(5 * time.Hour), End: day.Add(5 * time.Hour)}
	before := Entry{Start: day.Add(-5 * time.Hour), End: day}
	got := OnDay([]Entry{spanning, instant, before}, day)
	if len(got) != 2 {
		t.Fatalf("expected spanning and instant entries, got %d", len(got))
	}
}

func TestParseViewAndCycle(t *testing.T) {
	v, ok := ParseView("Agenda")
	if !ok || v != Agenda || v.Next() != Month {
		t.Fatalf("unexpected view handling: %v %v", v, ok)
	}
	if _, ok := ParseView("year"); ok {
		t.Fatalf("unknown view should not parse")
	}
	if got := len(Days(Range(Week, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)))); got != 7 {
		t.Fatalf("week should have 7 days, got %d", got)
	}
}
