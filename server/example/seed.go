package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/schedule"
	"github.com/cyp0633/libnebula/server/storage"
	"github.com/samber/mo"
)

type sampleEvent struct {
	name     string
	location string
	start    time.Time
	length   time.Duration
	rule     mo.Option[recurrence.Rule]
}

// seedRealm fills realmID with a handful of recurring and one-off events
// around now, plus a few tasks.
func seedRealm(ctx context.Context, svc *schedule.Service, realmID string, now time.Time) error {
	day := now.Truncate(24 * time.Hour)

	events := []sampleEvent{
		{"Team standup", "Room A", day.Add(9 * time.Hour), 15 * time.Minute,
			mo.Some(recurrence.Weekly(1, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday))},
		{"Sprint review", "Room B", day.Add(14 * time.Hour), time.Hour,
			mo.Some(recurrence.Weekly(2, time.Friday).WithCount(10))},
		{"Pay rent", "", day.Add(8 * time.Hour), 0,
			mo.Some(recurrence.MonthlyDay(1, 1))},
		{"Board meeting", "HQ", day.Add(10 * time.Hour), 2 * time.Hour,
			mo.Some(recurrence.MonthlyWeekday(1, time.Thursday, -1).WithEndDate(day.AddDate(1, 0, 0)))},
		{"Gym", "Fitness Center", day.Add(18 * time.Hour), 90 * time.Minute,
			mo.Some(recurrence.Daily(2))},
		{"Dentist", "Medical Center", day.AddDate(0, 0, 3).Add(11 * time.Hour), 45 * time.Minute,
			mo.None[recurrence.Rule]()},
	}
	for _, s := range events {
		ev := &storage.Event{
			RealmID:   realmID,
			Name:      s.name,
			Location:  s.location,
			CreatedBy: "seed",
			Start:     s.start,
		}
		if s.length > 0 {
			ev.End = mo.Some(s.start.Add(s.length))
		}
		if err := svc.CreateEvent(ctx, ev, s.rule); err != nil {
			return fmt.Errorf("seed event %q: %w", s.name, err)
		}
	}

	tasks := []*storage.Task{
		{
			Title:      "Write quarterly report",
			Priority:   mo.Some(storage.PriorityImportant),
			DueDate:    mo.Some(day.AddDate(0, 0, 7)),
			PlannedFor: mo.Some(day.AddDate(0, 0, 5).Add(9 * time.Hour)),
		},
		{
			Title:     "Renew passport",
			Priority:  mo.Some(storage.PriorityDesirable),
			StartDate: mo.Some(day.AddDate(0, 0, 1)),
		},
		{
			Title:      "Clean garage",
			Priority:   mo.Some(storage.PriorityDiscardable),
			PlannedFor: mo.Some(day.AddDate(0, 0, 6).Add(10 * time.Hour)),
		},
	}
	for _, t := range tasks {
		t.RealmID = realmID
		t.CreatedBy = "seed"
		if err := svc.CreateTask(ctx, t); err != nil {
			return fmt.Errorf("seed task %q: %w", t.Title, err)
		}
	}
	return nil
}
