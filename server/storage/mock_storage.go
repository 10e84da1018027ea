package storage

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

// FetchEvents implements the Storage interface
func (m *MockStorage) FetchEvents(ctx context.Context, realmID string, r TimeRange) ([]Event, error) {
	args := m.Called(ctx, realmID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

// FetchTasks implements the Storage interface
func (m *MockStorage) FetchTasks(ctx context.Context, realmID string, r TimeRange) ([]Task, error) {
	args := m.Called(ctx, realmID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Task), args.Error(1)
}

func (m *MockStorage) GetEvent(ctx context.Context, realmID, eventID string) (*Event, error) {
	args := m.Called(ctx, realmID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	event := args.Get(0).(*Event)
	if event == nil {
		return nil, args.Error(1)
	}
	return event, args.Error(1)
}

func (m *MockStorage) CreateEvent(ctx context.Context, event *Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStorage) DeleteEvent(ctx context.Context, realmID, eventID string) error {
	args := m.Called(ctx, realmID, eventID)
	return args.Error(0)
}

func (m *MockStorage) CreateTask(ctx context.Context, task *Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockEvent creates a test event lasting duration. A zero duration leaves
// the end time absent.
func NewMockEvent(realmID, id, name string, start time.Time, duration time.Duration) Event {
	event := Event{
		ID:         id,
		RealmID:    realmID,
		Name:       name,
		CreatedBy:  "mock-user",
		Start:      start,
		End:        mo.None[time.Time](),
		Recurrence: mo.None[uint64](),
		CreatedAt:  start,
		UpdatedAt:  start,
	}
	if duration > 0 {
		event.End = mo.Some(start.Add(duration))
	}
	return event
}

// NewMockRecurringEvent creates a test event carrying a packed recurrence rule.
func NewMockRecurringEvent(realmID, id, name string, start time.Time, duration time.Duration, packed uint64) Event {
	event := NewMockEvent(realmID, id, name, start, duration)
	event.Recurrence = mo.Some(packed)
	return event
}

// NewMockTask creates a test task planned for the given time.
func NewMockTask(realmID, id, title string, plannedFor time.Time) Task {
	return Task{
		ID:         id,
		RealmID:    realmID,
		Title:      title,
		CreatedBy:  "mock-user",
		Priority:   mo.Some(PriorityDesirable),
		PlannedFor: mo.Some(plannedFor),
		UpdatedAt:  plannedFor,
	}
}

// --- Convenience methods for setting up common test scenarios ---

// SetupRealm makes FetchEvents and FetchTasks return the given rows for
// realmID, whatever the range. Earlier expectations for the realm are replaced.
func (m *MockStorage) SetupRealm(realmID string, events []Event, tasks []Task) {
	m.ExpectedCalls = removeMatchingCalls(m.ExpectedCalls, "FetchEvents", realmID)
	m.ExpectedCalls = removeMatchingCalls(m.ExpectedCalls, "FetchTasks", realmID)

	m.On("FetchEvents", mock.Anything, realmID, mock.Anything).Return(events, nil)
	m.On("FetchTasks", mock.Anything, realmID, mock.Anything).Return(tasks, nil)
}

// Helper to remove existing mock calls that match a method and realm argument
func removeMatchingCalls(calls []*mock.Call, method string, realmID string) []*mock.Call {
	result := make([]*mock.Call, 0, len(calls))
	for _, call := range calls {
		if call.Method == method && len(call.Arguments) > 1 && call.Arguments[1] == realmID {
			continue
		}
		result = append(result, call)
	}
	return result
}
