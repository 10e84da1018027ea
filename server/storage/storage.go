package storage

import (
	"context"
	"time"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/samber/mo"
)

// Storage connects the schedule service with your backend store (e.g. a
// database). Please use the error types provided.
type Storage interface {
	// FetchEvents returns the realm's events that have an occurrence starting
	// in r (see Event.Overlaps). Returning extra recurring events is allowed;
	// the schedule simply finds no occurrences for them.
	FetchEvents(ctx context.Context, realmID string, r TimeRange) ([]Event, error)
	// FetchTasks returns the realm's tasks with a planned, due or start date inside r.
	FetchTasks(ctx context.Context, realmID string, r TimeRange) ([]Task, error)
	// GetEvent finds a single event of a realm.
	GetEvent(ctx context.Context, realmID, eventID string) (*Event, error)
	// CreateEvent stores a new event. The store assigns ID when it is empty
	// and sets CreatedAt and UpdatedAt.
	CreateEvent(ctx context.Context, event *Event) error
	// DeleteEvent removes an event.
	DeleteEvent(ctx context.Context, realmID, eventID string) error
	// CreateTask stores a new task. The store assigns ID when it is empty and
	// sets UpdatedAt.
	CreateTask(ctx context.Context, task *Task) error
}

// TimeRange is a query range, inclusive at both ends.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds included.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Event is a calendar event owned by a realm.
type Event struct {
	ID          string               `json:"id"`
	RealmID     string               `json:"realm_id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Location    string               `json:"location,omitempty"`
	CreatedBy   string               `json:"created_by"`
	Start       time.Time            `json:"start_time"`
	End         mo.Option[time.Time] `json:"end_time"`
	// Recurrence holds the packed recurrence rule; absent means the event
	// happens once.
	Recurrence mo.Option[uint64] `json:"recurrence"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// IsRecurring reports whether the event carries a recurrence rule.
func (e Event) IsRecurring() bool {
	return e.Recurrence.IsPresent()
}

// Duration returns End - Start when the event has an end time.
func (e Event) Duration() mo.Option[time.Duration] {
	end, ok := e.End.Get()
	if !ok {
		return mo.None[time.Duration]()
	}
	return mo.Some(end.Sub(e.Start))
}

// Priority ranks a task.
type Priority uint8

const (
	PriorityDiscardable Priority = iota
	PriorityDesirable
	PriorityImportant
)

// String provides a human-readable representation of the Priority.
func (p Priority) String() string {
	switch p {
	case PriorityDiscardable:
		return "discardable"
	case PriorityDesirable:
		return "desirable"
	case PriorityImportant:
		return "important"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p <= PriorityImportant
}

// Task is a realm to-do item. Tasks never recur.
type Task struct {
	ID          string               `json:"id"`
	RealmID     string               `json:"realm_id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	CreatedBy   string               `json:"created_by"`
	Priority    mo.Option[Priority]  `json:"priority"`
	DueDate     mo.Option[time.Time] `json:"due_date"`
	StartDate   mo.Option[time.Time] `json:"start_date"`
	PlannedFor  mo.Option[time.Time] `json:"planned_for"`
	Completed   bool                 `json:"completed"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// InRange reports whether any of the task's planned, due or start dates lies
// within r.
func (t Task) InRange(r TimeRange) bool {
	for _, d := range []mo.Option[time.Time]{t.PlannedFor, t.DueDate, t.StartDate} {
		if v, ok := d.Get(); ok && r.Contains(v) {
			return true
		}
	}
	return false
}

// Overlaps reports whether a store should return e for r, following the
// FetchEvents contract: an occurrence of e starts inside r. An event whose
// rule does not decode counts as a one-off, as it does for the schedule.
func (e Event) Overlaps(r TimeRange) bool {
	if packed, ok := e.Recurrence.Get(); ok {
		if rule, ok := recurrence.DecodeOption(packed).Get(); ok {
			return recurrence.HasOccurrenceInRange(rule, e.Start, 0, r.Start, r.End)
		}
	}
	return r.Contains(e.Start)
}
