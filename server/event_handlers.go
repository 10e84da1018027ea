package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/schedule"
	"github.com/cyp0633/libnebula/server/storage"
	"github.com/gorilla/mux"
	"github.com/samber/mo"
)

const maxBodyBytes = 1 << 20

// eventRequest is the body of POST realms/{realm}/events. The rule is given
// either as a JSON object or as RRULE text, never both.
type eventRequest struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Location    string                     `json:"location"`
	StartTime   time.Time                  `json:"start_time"`
	EndTime     mo.Option[time.Time]       `json:"end_time"`
	Recurrence  mo.Option[recurrence.Rule] `json:"recurrence"`
	RRule       string                     `json:"rrule"`
}

func (req eventRequest) rule() (mo.Option[recurrence.Rule], error) {
	if req.RRule == "" {
		return req.Recurrence, nil
	}
	if req.Recurrence.IsPresent() {
		return mo.None[recurrence.Rule](), errors.New("give either recurrence or rrule, not both")
	}
	rule, err := recurrence.ParseRRule(req.RRule)
	if err != nil {
		return mo.None[recurrence.Rule](), err
	}
	return mo.Some(rule), nil
}

// taskRequest is the body of POST realms/{realm}/tasks.
type taskRequest struct {
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Priority    mo.Option[storage.Priority] `json:"priority"`
	DueDate     mo.Option[time.Time]        `json:"due_date"`
	StartDate   mo.Option[time.Time]        `json:"start_date"`
	PlannedFor  mo.Option[time.Time]        `json:"planned_for"`
	Completed   bool                        `json:"completed"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.StartTime.IsZero() {
		s.writeError(w, http.StatusBadRequest, "start_time is required")
		return
	}
	rule, err := req.rule()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev := &storage.Event{
		RealmID:     realmID(r),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		CreatedBy:   createdBy(r),
		Start:       req.StartTime,
		End:         req.EndTime,
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if err := s.schedule.CreateEvent(ctx, ev, rule); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, schedule.EventView{Event: *ev, Rule: rule})
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if err := s.schedule.DeleteEvent(ctx, realmID(r), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nextOccurrence answers with the event's first occurrence after the "after"
// parameter (default now), or 204 when the series has ended.
func (s *Server) nextOccurrence(w http.ResponseWriter, r *http.Request) {
	after := s.now()
	if v := r.URL.Query().Get("after"); v != "" {
		t, err := parseTimeParam(v, "after")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		after = t
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	next, err := s.schedule.NextOccurrence(ctx, realmID(r), mux.Vars(r)["id"], after)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	occ, ok := next.Get()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, occ)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if p, ok := req.Priority.Get(); ok && !p.Valid() {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid priority %d", p))
		return
	}

	task := &storage.Task{
		RealmID:     realmID(r),
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   createdBy(r),
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		StartDate:   req.StartDate,
		PlannedFor:  req.PlannedFor,
		Completed:   req.Completed,
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if err := s.schedule.CreateTask(ctx, task); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, task)
}
