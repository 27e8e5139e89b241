package usecase

import (
	"testing"
	"time"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
)

func TestScheduleAllUnscheduledAssignsConsecutiveDays(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, time.May, 10, 15, 30, 0, 0, time.UTC)

	scheduled := newDraft("s")
	existing := today.AddDate(0, 0, 14)
	scheduled.ScheduledFor = &existing

	library := []domain.Content{
		newDraft("d1"),
		scheduled,
		newDraft("d2"),
		newDraft("d3"),
	}

	assigned := ScheduleAllUnscheduled(library, fixedClock(today))
	if assigned != 3 {
		t.Fatalf("expected 3 assignments, got %d", assigned)
	}

	day := today.Truncate(24 * time.Hour)
	wants := map[string]time.Time{
		"d1": day.AddDate(0, 0, 1),
		"d2": day.AddDate(0, 0, 2),
		"d3": day.AddDate(0, 0, 3),
	}
	for _, item := range library {
		meta := item.Meta()
		want, ok := wants[meta.ID]
		if !ok {
			continue
		}
		if meta.ScheduledFor == nil || !meta.ScheduledFor.Equal(want) {
			t.Fatalf("item %s scheduled for %v, want %v", meta.ID, meta.ScheduledFor, want)
		}
	}

	if !scheduled.ScheduledFor.Equal(existing) {
		t.Fatal("already scheduled item must be untouched")
	}
}

func TestScheduleAllUnscheduledNoOp(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)

	when := today.AddDate(0, 0, 5)
	item := newDraft("d")
	item.ScheduledFor = &when

	assigned := ScheduleAllUnscheduled([]domain.Content{item}, fixedClock(today))
	if assigned != 0 {
		t.Fatalf("expected nothing to schedule, got %d", assigned)
	}

	if ScheduleAllUnscheduled(nil, fixedClock(today)) != 0 {
		t.Fatal("empty library must be a no-op")
	}
}

func TestScheduleAllUnscheduledIsDeterministic(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)

	build := func() []domain.Content {
		return []domain.Content{newDraft("d1"), newDraft("d2")}
	}

	first := build()
	second := build()
	ScheduleAllUnscheduled(first, fixedClock(today))
	ScheduleAllUnscheduled(second, fixedClock(today))

	for i := range first {
		a, b := first[i].Meta().ScheduledFor, second[i].Meta().ScheduledFor
		if a == nil || b == nil || !a.Equal(*b) {
			t.Fatalf("same input must yield same assignment: %v vs %v", a, b)
		}
	}
}
