// memory based implementation for testing purposes
package memory

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cyp0633/libnebula/server/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu     sync.RWMutex
	events map[string]map[string]*storage.Event // key: realmID, eventID
	tasks  map[string]map[string]*storage.Task  // key: realmID, taskID

	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUID generator used for rows created
// without an ID.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithClock sets the time source for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		events: make(map[string]map[string]*storage.Event),
		tasks:  make(map[string]map[string]*storage.Task),
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Event operations

func (s *Store) FetchEvents(_ context.Context, realmID string, r storage.TimeRange) ([]storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []storage.Event
	for _, ev := range s.events[realmID] {
		if ev.Overlaps(r) {
			events = append(events, *ev)
		}
	}
	// Map iteration order is random; keep the result stable for event indexes.
	slices.SortFunc(events, func(a, b storage.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	s.logger.Debug("fetched events", "realm", realmID, "count", len(events))
	return events, nil
}

func (s *Store) GetEvent(_ context.Context, realmID, eventID string) (*storage.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[realmID][eventID]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}

	out := *ev
	return &out, nil
}

func (s *Store) CreateEvent(_ context.Context, event *storage.Event) error {
	if event.RealmID == "" {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "event has no realm",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = s.newID()
	}
	realm := s.events[event.RealmID]
	if realm == nil {
		realm = make(map[string]*storage.Event)
		s.events[event.RealmID] = realm
	}
	if _, exists := realm[event.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "event already exists",
		}
	}

	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	stored := *event
	realm[event.ID] = &stored

	return nil
}

func (s *Store) DeleteEvent(_ context.Context, realmID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[realmID][eventID]; !exists {
		return &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "event not found",
		}
	}

	delete(s.events[realmID], eventID)
	return nil
}

// Task operations

func (s *Store) FetchTasks(_ context.Context, realmID string, r storage.TimeRange) ([]storage.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []storage.Task
	for _, task := range s.tasks[realmID] {
		if task.InRange(r) {
			tasks = append(tasks, *task)
		}
	}
	slices.SortFunc(tasks, func(a, b storage.Task) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return tasks, nil
}

func (s *Store) CreateTask(_ context.Context, task *storage.Task) error {
	if task.RealmID == "" {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "task has no realm",
		}
	}
	if p, ok := task.Priority.Get(); ok && !p.Valid() {
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "unknown task priority",
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = s.newID()
	}
	realm := s.tasks[task.RealmID]
	if realm == nil {
		realm = make(map[string]*storage.Task)
		s.tasks[task.RealmID] = realm
	}
	if _, exists := realm[task.ID]; exists {
		return &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "task already exists",
		}
	}

	task.UpdatedAt = s.now()
	stored := *task
	realm[task.ID] = &stored

	return nil
}
