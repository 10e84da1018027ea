// Package client is a Go client for the schedule HTTP API served by package
// server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cyp0633/libnebula/internal/httpclient"
	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/schedule"
	"github.com/cyp0633/libnebula/server/storage"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// ScheduleClient defines the schedule API operations
type ScheduleClient interface {
	GetSchedule(ctx context.Context, realmID string, w recurrence.Window) (*schedule.Schedule, error)
	GetOccurrences(ctx context.Context, realmID string, w recurrence.Window) (*schedule.EventOccurrences, error)
	// GetCalendar fetches the window as an iCalendar object.
	GetCalendar(ctx context.Context, realmID string, w recurrence.Window) (*ical.Calendar, error)
	CreateEvent(ctx context.Context, realmID string, ev EventInput) (*schedule.EventView, error)
	DeleteEvent(ctx context.Context, realmID, eventID string) error
	// NextOccurrence returns none when the event has no occurrence after after.
	NextOccurrence(ctx context.Context, realmID, eventID string, after time.Time) (mo.Option[schedule.Occurrence], error)
	CreateTask(ctx context.Context, realmID string, t TaskInput) (*storage.Task, error)
}

// EventInput describes an event to create. Set at most one of Rule and RRule.
type EventInput struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	Location    string                     `json:"location,omitempty"`
	Start       time.Time                  `json:"start_time"`
	End         mo.Option[time.Time]       `json:"end_time"`
	Rule        mo.Option[recurrence.Rule] `json:"recurrence"`
	RRule       string                     `json:"rrule,omitempty"`
}

// TaskInput describes a task to create.
type TaskInput struct {
	Title       string                      `json:"title"`
	Description string                      `json:"description,omitempty"`
	Priority    mo.Option[storage.Priority] `json:"priority"`
	DueDate     mo.Option[time.Time]        `json:"due_date"`
	StartDate   mo.Option[time.Time]        `json:"start_date"`
	PlannedFor  mo.Option[time.Time]        `json:"planned_for"`
	Completed   bool                        `json:"completed"`
}

// APIError is an error response from the server.
type APIError struct {
	StatusCode int    `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("schedule API: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type scheduleClient struct {
	httpClient httpclient.HttpClientWrapper
}

// NewScheduleClient creates a client on top of an HTTP wrapper whose base URL
// is the server's prefix.
func NewScheduleClient(httpClient httpclient.HttpClientWrapper) ScheduleClient {
	return &scheduleClient{httpClient: httpClient}
}

type options struct {
	httpClient *http.Client
	username   string
	password   string
	logger     *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithBasicAuth sends credentials with every request.
func WithBasicAuth(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a client for the API at baseURL, e.g. "http://localhost:8080/api/".
func New(baseURL string, opts ...Option) (ScheduleClient, error) {
	o := options{
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Path == "" || base.Path[len(base.Path)-1] != '/' {
		base.Path += "/"
	}

	httpClient := o.httpClient
	if o.username != "" {
		c := *httpClient
		c.Transport = httpclient.NewBasicAuthTransport(o.username, o.password, httpClient.Transport, o.logger)
		httpClient = &c
	}

	wrapper, err := httpclient.NewHttpClientWrapper(httpClient, *base, o.logger)
	if err != nil {
		return nil, err
	}
	return NewScheduleClient(wrapper), nil
}

func realmPath(realmID string, elems ...string) string {
	p := "realms/" + url.PathEscape(realmID)
	for _, e := range elems {
		p += "/" + url.PathEscape(e)
	}
	return p
}

func windowQuery(w recurrence.Window) string {
	q := url.Values{}
	q.Set("start", w.Start.Format(time.RFC3339))
	q.Set("end", w.End.Format(time.RFC3339))
	return "?" + q.Encode()
}

// do sends a request and checks the status. in, when non-nil, is sent as
// JSON; out, when non-nil, receives the JSON response.
func (c *scheduleClient) do(ctx context.Context, method, path string, in any, want int, out any) (*httpclient.Response, error) {
	var body io.Reader
	header := http.Header{}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(ctx, method, path, body, header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, decodeError(resp)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func decodeError(resp *httpclient.Response) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(resp.Body, apiErr); err != nil || apiErr.Message == "" {
		// Not one of ours, e.g. the 401 of the authentication layer.
		apiErr.Message = string(bytes.TrimSpace(resp.Body))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

func (c *scheduleClient) GetSchedule(ctx context.Context, realmID string, w recurrence.Window) (*schedule.Schedule, error) {
	var sched schedule.Schedule
	if _, err := c.do(ctx, http.MethodGet, realmPath(realmID, "schedule")+windowQuery(w), nil, http.StatusOK, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

func (c *scheduleClient) GetOccurrences(ctx context.Context, realmID string, w recurrence.Window) (*schedule.EventOccurrences, error) {
	var occ schedule.EventOccurrences
	if _, err := c.do(ctx, http.MethodGet, realmPath(realmID, "occurrences")+windowQuery(w), nil, http.StatusOK, &occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

func (c *scheduleClient) GetCalendar(ctx context.Context, realmID string, w recurrence.Window) (*ical.Calendar, error) {
	resp, err := c.do(ctx, http.MethodGet, realmPath(realmID, "schedule.ics")+windowQuery(w), nil, http.StatusOK, nil)
	if err != nil {
		return nil, err
	}
	cal, err := ical.NewDecoder(bytes.NewReader(resp.Body)).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}
	return cal, nil
}

func (c *scheduleClient) CreateEvent(ctx context.Context, realmID string, ev EventInput) (*schedule.EventView, error) {
	var view schedule.EventView
	if _, err := c.do(ctx, http.MethodPost, realmPath(realmID, "events"), ev, http.StatusCreated, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *scheduleClient) DeleteEvent(ctx context.Context, realmID, eventID string) error {
	_, err := c.do(ctx, http.MethodDelete, realmPath(realmID, "events", eventID), nil, http.StatusNoContent, nil)
	return err
}

func (c *scheduleClient) NextOccurrence(ctx context.Context, realmID, eventID string, after time.Time) (mo.Option[schedule.Occurrence], error) {
	path := realmPath(realmID, "events", eventID, "next") + "?" + url.Values{"after": {after.Format(time.RFC3339)}}.Encode()
	resp, err := c.httpClient.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return mo.None[schedule.Occurrence](), err
	}

	switch resp.StatusCode {
	case http.StatusNoContent:
		return mo.None[schedule.Occurrence](), nil
	case http.StatusOK:
		var occ schedule.Occurrence
		if err := json.Unmarshal(resp.Body, &occ); err != nil {
			return mo.None[schedule.Occurrence](), fmt.Errorf("decode response: %w", err)
		}
		return mo.Some(occ), nil
	}
	return mo.None[schedule.Occurrence](), decodeError(resp)
}

func (c *scheduleClient) CreateTask(ctx context.Context, realmID string, t TaskInput) (*storage.Task, error) {
	var task storage.Task
	if _, err := c.do(ctx, http.MethodPost, realmPath(realmID, "tasks"), t, http.StatusCreated, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
