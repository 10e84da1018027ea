package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cyp0633/libnebula/server/auth"
	"github.com/cyp0633/libnebula/server/schedule"
	"github.com/gorilla/mux"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"

	// MIME types
	mimeTypeJSON     = "application/json; charset=utf-8"
	mimeTypeCalendar = "text/calendar; charset=utf-8"
	mimeTypeXML      = "application/xml; charset=utf-8"

	// DefaultPrefix is used when New is given an empty prefix.
	DefaultPrefix = "/api/"
	// DefaultTimeout bounds every request's work against the store.
	DefaultTimeout = 10 * time.Second

	anonymous = "anonymous"
)

// Server serves realm schedules over HTTP.
type Server struct {
	router    *mux.Router
	schedule  *schedule.Service
	auth      auth.Authenticator
	authRealm string
	prefix    string
	timeout   time.Duration
	now       func() time.Time
	prodID    string
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for request and error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuthenticator requires HTTP Basic authentication and realm membership
// on every route. httpRealm is sent in WWW-Authenticate.
func WithAuthenticator(a auth.Authenticator, httpRealm string) Option {
	return func(s *Server) {
		s.auth = a
		s.authRealm = httpRealm
	}
}

// WithTimeout bounds each request's store work. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now, which supplies the default "after" of the next
// occurrence route and DTSTAMP of exports.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithProductID sets the PRODID of exported calendars.
func WithProductID(prodID string) Option {
	return func(s *Server) {
		s.prodID = prodID
	}
}

// New creates a server answering under prefix.
func New(svc *schedule.Service, prefix string, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("schedule service is required")
	}

	// Ensure prefix starts and ends with a slash for consistent routing
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	s := &Server{
		router:   mux.NewRouter(),
		schedule: svc,
		prefix:   prefix,
		timeout:  DefaultTimeout,
		now:      time.Now,
		prodID:   schedule.ProductID,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "no such route")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	api := s.router
	if p := strings.TrimSuffix(s.prefix, "/"); p != "" {
		api = s.router.PathPrefix(p).Subrouter()
	}
	api.Use(s.logRequests)
	if s.auth != nil {
		api.Use(auth.Middleware(s.auth, s.authRealm))
	}

	realm := api.PathPrefix("/realms/{realm}").Subrouter()
	if s.auth != nil {
		realm.Use(auth.RequireRealmAccess(s.auth, realmID, s.writeError))
	}

	realm.HandleFunc("/schedule", s.getSchedule).Methods(http.MethodGet)
	realm.HandleFunc("/schedule.ics", s.getScheduleICS).Methods(http.MethodGet)
	realm.HandleFunc("/schedule.xml", s.getScheduleXML).Methods(http.MethodGet)
	realm.HandleFunc("/occurrences", s.getOccurrences).Methods(http.MethodGet)
	realm.HandleFunc("/events", s.createEvent).Methods(http.MethodPost)
	realm.HandleFunc("/events/{id}", s.deleteEvent).Methods(http.MethodDelete)
	realm.HandleFunc("/events/{id}/next", s.nextOccurrence).Methods(http.MethodGet)
	realm.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Prefix returns the normalized path prefix the server answers under.
func (s *Server) Prefix() string {
	return s.prefix
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func realmID(r *http.Request) string {
	return mux.Vars(r)["realm"]
}

// createdBy names the caller for new rows.
func createdBy(r *http.Request) string {
	if p := auth.GetPrincipalFromContext(r.Context()); p != nil {
		return p.ID
	}
	return anonymous
}
