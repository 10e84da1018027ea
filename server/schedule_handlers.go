package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cyp0633/libnebula/internal/xcal"
	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/schedule"
)

// parseWindow reads the required start and end query parameters (RFC 3339).
func parseWindow(r *http.Request) (recurrence.Window, error) {
	q := r.URL.Query()
	start, err := parseTimeParam(q.Get("start"), "start")
	if err != nil {
		return recurrence.Window{}, err
	}
	end, err := parseTimeParam(q.Get("end"), "end")
	if err != nil {
		return recurrence.Window{}, err
	}
	return recurrence.NewWindow(start, end), nil
}

func parseTimeParam(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("missing %s parameter", name)
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return t, nil
}

// loadSchedule runs GetSchedule for the request's realm and window. On
// failure the response has been written and ok is false.
func (s *Server) loadSchedule(w http.ResponseWriter, r *http.Request) (sched *schedule.Schedule, ok bool) {
	win, err := parseWindow(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	sched, err = s.schedule.GetSchedule(ctx, realmID(r), win)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sched, true
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	sched, ok := s.loadSchedule(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sched)
}

func (s *Server) getScheduleICS(w http.ResponseWriter, r *http.Request) {
	sched, ok := s.loadSchedule(w, r)
	if !ok {
		return
	}

	// Encode first so an encoder error can still become a proper response.
	var buf bytes.Buffer
	if err := sched.WriteICS(&buf, s.prodID, s.now()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) getScheduleXML(w http.ResponseWriter, r *http.Request) {
	sched, ok := s.loadSchedule(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := xcal.Write(&buf, sched.Calendar(s.prodID, s.now())); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set(headerContentType, mimeTypeXML)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) getOccurrences(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	occ, err := s.schedule.GetOccurrences(ctx, realmID(r), win)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, occ)
}
