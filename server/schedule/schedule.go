// Package schedule merges a realm's events, expanded through their recurrence
// rules, with its tasks for a time window.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/storage"
	"github.com/samber/mo"
)

// ErrInvalidWindow is returned when a window ends before it starts.
var ErrInvalidWindow = errors.New("window ends before it starts")

// EventView is a stored event together with its decoded recurrence rule.
// Rule is absent for one-off events and for events whose stored rule could
// not be decoded.
type EventView struct {
	storage.Event
	Rule mo.Option[recurrence.Rule] `json:"rule"`
}

// Occurrence is one instance of an event. EventIndex is the position of the
// event in the accompanying event list.
type Occurrence struct {
	EventIndex int                  `json:"event_index"`
	Start      time.Time            `json:"occurrence_start"`
	End        mo.Option[time.Time] `json:"occurrence_end"`
}

// EventOccurrences lists events and their occurrences inside a window.
type EventOccurrences struct {
	Events      []EventView  `json:"events"`
	Occurrences []Occurrence `json:"occurrences"`
}

// Schedule is everything a realm has going on inside a window.
type Schedule struct {
	EventOccurrences
	Tasks []storage.Task `json:"tasks"`
}

// Service answers schedule queries against a store.
type Service struct {
	store      storage.Storage
	engine     *recurrence.Engine
	ownsEngine bool
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A default engine built by New logs through it too.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEngine makes the service expand rules with e. The caller keeps
// ownership and closes it.
func WithEngine(e *recurrence.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// New creates a service reading from store.
func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngine(recurrence.WithLogger(s.logger))
		s.ownsEngine = true
	}
	return s
}

// Close releases the engine if New created it.
func (s *Service) Close() {
	if s.ownsEngine {
		s.engine.Close()
	}
}

// GetSchedule returns the realm's events, their occurrences and its tasks
// inside w.
func (s *Service) GetSchedule(ctx context.Context, realmID string, w recurrence.Window) (*Schedule, error) {
	if w.IsEmpty() {
		return nil, ErrInvalidWindow
	}
	r := storage.TimeRange{Start: w.Start, End: w.End}

	events, err := s.store.FetchEvents(ctx, realmID, r)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	tasks, err := s.store.FetchTasks(ctx, realmID, r)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sched := s.Build(events, tasks, w)
	s.logger.Debug("built schedule",
		"realm", realmID,
		"events", len(sched.Events),
		"occurrences", len(sched.Occurrences),
		"tasks", len(sched.Tasks))
	return sched, nil
}

// GetOccurrences is GetSchedule without tasks.
func (s *Service) GetOccurrences(ctx context.Context, realmID string, w recurrence.Window) (*EventOccurrences, error) {
	if w.IsEmpty() {
		return nil, ErrInvalidWindow
	}
	events, err := s.store.FetchEvents(ctx, realmID, storage.TimeRange{Start: w.Start, End: w.End})
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	occ := s.expand(events, w)
	return &occ, nil
}

// Build assembles a schedule from already fetched rows. Tasks without a
// planned, due or start date inside w are dropped; events are kept in order
// so that occurrence indexes point into the event list.
func (s *Service) Build(events []storage.Event, tasks []storage.Task, w recurrence.Window) *Schedule {
	sched := &Schedule{
		EventOccurrences: s.expand(events, w),
		Tasks:            make([]storage.Task, 0, len(tasks)),
	}
	r := storage.TimeRange{Start: w.Start, End: w.End}
	for _, t := range tasks {
		if t.InRange(r) {
			sched.Tasks = append(sched.Tasks, t)
		}
	}
	return sched
}

func (s *Service) expand(events []storage.Event, w recurrence.Window) EventOccurrences {
	out := EventOccurrences{
		Events:      make([]EventView, 0, len(events)),
		Occurrences: make([]Occurrence, 0, len(events)),
	}

	for i, ev := range events {
		view := s.view(ev)
		out.Events = append(out.Events, view)

		var starts []time.Time
		if rule, ok := view.Rule.Get(); ok {
			starts = s.engine.Expand(rule, ev.Start, w)
		} else if w.Contains(ev.Start) {
			starts = []time.Time{ev.Start}
		}

		duration := ev.Duration()
		for _, start := range starts {
			out.Occurrences = append(out.Occurrences, Occurrence{
				EventIndex: i,
				Start:      start,
				End:        endAt(start, duration),
			})
		}
	}

	// Occurrences were appended event by event, so a stable sort breaks ties
	// by event index.
	slices.SortStableFunc(out.Occurrences, func(a, b Occurrence) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

func endAt(start time.Time, d mo.Option[time.Duration]) mo.Option[time.Time] {
	if v, ok := d.Get(); ok {
		return mo.Some(start.Add(v))
	}
	return mo.None[time.Time]()
}

// view decodes the event's stored rule. An undecodable rule is logged and the
// event is treated as happening once.
func (s *Service) view(ev storage.Event) EventView {
	view := EventView{Event: ev, Rule: mo.None[recurrence.Rule]()}
	packed, ok := ev.Recurrence.Get()
	if !ok {
		return view
	}
	rule, err := recurrence.Decode(packed)
	if err != nil {
		s.logger.Warn("undecodable recurrence rule, treating event as one-off",
			"realm", ev.RealmID,
			"event", ev.ID,
			"recurrence", packed,
			"error", err)
		return view
	}
	view.Rule = mo.Some(rule)
	return view
}

// NextOccurrence returns the first occurrence of the event that starts
// strictly after after. EventIndex is always 0.
func (s *Service) NextOccurrence(ctx context.Context, realmID, eventID string, after time.Time) (mo.Option[Occurrence], error) {
	ev, err := s.store.GetEvent(ctx, realmID, eventID)
	if err != nil {
		return mo.None[Occurrence](), fmt.Errorf("get event: %w", err)
	}

	var next mo.Option[time.Time]
	if rule, ok := s.view(*ev).Rule.Get(); ok {
		next = recurrence.NextOccurrenceAfter(rule, ev.Start, after)
	} else if ev.Start.After(after) {
		next = mo.Some(ev.Start)
	}

	start, ok := next.Get()
	if !ok {
		return mo.None[Occurrence](), nil
	}
	return mo.Some(Occurrence{
		Start: start,
		End:   endAt(start, ev.Duration()),
	}), nil
}

// CreateEvent encodes rule into ev and stores it. An absent rule stores a
// one-off event. A rule outside the encodable range fails with a
// *recurrence.EncodeError before the store is touched.
func (s *Service) CreateEvent(ctx context.Context, ev *storage.Event, rule mo.Option[recurrence.Rule]) error {
	ev.Recurrence = mo.None[uint64]()
	if r, ok := rule.Get(); ok {
		packed, err := recurrence.Encode(r)
		if err != nil {
			return err
		}
		ev.Recurrence = mo.Some(packed)
	}
	if end, ok := ev.End.Get(); ok && end.Before(ev.Start) {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "event ends before it starts"}
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "realm", ev.RealmID, "event", ev.ID, "recurring", ev.IsRecurring())
	return nil
}

// CreateTask stores a task.
func (s *Service) CreateTask(ctx context.Context, t *storage.Task) error {
	if err := s.store.CreateTask(ctx, t); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("task created", "realm", t.RealmID, "task", t.ID)
	return nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, realmID, eventID string) error {
	if err := s.store.DeleteEvent(ctx, realmID, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
