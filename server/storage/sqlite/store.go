// Package sqlite stores realm events and tasks in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
//
// Times are kept as Unix milliseconds. Each event also records the name of
// its location so recurring events expand in the zone they were created in.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/libnebula/server/storage"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Config configures the database.
type Config struct {
	// Path is the database file. ":memory:" opens a private in-memory database.
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Store implements storage.Storage on top of SQLite.
type Store struct {
	db     *sql.DB
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithClock sets the time source for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens (creating if needed) the database and applies migrations.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{
		db:     db,
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.logger.Info("sqlite store opened", "path", path)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const eventColumns = `id, realm_id, name, description, location, created_by, start_ms, end_ms, tz, recurrence, created_ms, updated_ms`

func (s *Store) FetchEvents(ctx context.Context, realmID string, r storage.TimeRange) ([]storage.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE realm_id = ?
		   AND ((start_ms BETWEEN ? AND ?) OR (recurrence IS NOT NULL AND start_ms < ?))
		 ORDER BY start_ms, id`,
		realmID, r.Start.UnixMilli(), r.End.UnixMilli(), r.Start.UnixMilli(),
	)
	if err != nil {
		return nil, unavailable("query events", err)
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, unavailable("scan event", err)
		}
		// The query cannot see whether a recurring series reaches r.
		if ev.Overlaps(r) {
			events = append(events, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query events", err)
	}
	return events, nil
}

func (s *Store) GetEvent(ctx context.Context, realmID, eventID string) (*storage.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE realm_id = ? AND id = ?`, realmID, eventID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	if err != nil {
		return nil, unavailable("get event", err)
	}
	return &ev, nil
}

func (s *Store) CreateEvent(ctx context.Context, event *storage.Event) error {
	if event.RealmID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "event has no realm"}
	}
	if event.ID == "" {
		event.ID = s.newID()
	}
	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now

	var recurrence any
	if packed, ok := event.Recurrence.Get(); ok {
		recurrence = int64(packed)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(`+eventColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		event.ID, event.RealmID, event.Name, nullStr(event.Description), nullStr(event.Location),
		event.CreatedBy, event.Start.UnixMilli(), nullTime(event.End), event.Start.Location().String(),
		recurrence, now.UnixMilli(), now.UnixMilli(),
	)
	if isConstraint(err) {
		return &storage.Error{Type: storage.ErrAlreadyExists, Message: "event already exists", Err: err}
	}
	if err != nil {
		return unavailable("insert event", err)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, realmID, eventID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE realm_id = ? AND id = ?`, realmID, eventID)
	if err != nil {
		return unavailable("delete event", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "event not found"}
	}
	return nil
}

const taskColumns = `id, realm_id, title, description, created_by, priority, due_ms, start_ms, planned_ms, completed, updated_ms`

func (s *Store) FetchTasks(ctx context.Context, realmID string, r storage.TimeRange) ([]storage.Task, error) {
	lo, hi := r.Start.UnixMilli(), r.End.UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE realm_id = ?
		   AND ((planned_ms BETWEEN ? AND ?) OR (due_ms BETWEEN ? AND ?) OR (start_ms BETWEEN ? AND ?))
		 ORDER BY id`,
		realmID, lo, hi, lo, hi, lo, hi,
	)
	if err != nil {
		return nil, unavailable("query tasks", err)
	}
	defer rows.Close()

	var tasks []storage.Task
	for rows.Next() {
		var (
			t                   storage.Task
			description         sql.NullString
			priority            sql.NullInt64
			due, start, planned sql.NullInt64
			completed           bool
			updated             int64
		)
		if err := rows.Scan(&t.ID, &t.RealmID, &t.Title, &description, &t.CreatedBy, &priority,
			&due, &start, &planned, &completed, &updated); err != nil {
			return nil, unavailable("scan task", err)
		}
		t.Description = description.String
		if priority.Valid {
			t.Priority = mo.Some(storage.Priority(priority.Int64))
		}
		t.DueDate = optionalTime(due, time.UTC)
		t.StartDate = optionalTime(start, time.UTC)
		t.PlannedFor = optionalTime(planned, time.UTC)
		t.Completed = completed
		t.UpdatedAt = time.UnixMilli(updated).UTC()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query tasks", err)
	}
	return tasks, nil
}

func (s *Store) CreateTask(ctx context.Context, task *storage.Task) error {
	if task.RealmID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "task has no realm"}
	}
	var priority any
	if p, ok := task.Priority.Get(); ok {
		if !p.Valid() {
			return &storage.Error{Type: storage.ErrInvalidInput, Message: "unknown task priority"}
		}
		priority = int64(p)
	}
	if task.ID == "" {
		task.ID = s.newID()
	}
	task.UpdatedAt = s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(`+taskColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		task.ID, task.RealmID, task.Title, nullStr(task.Description), task.CreatedBy, priority,
		nullTime(task.DueDate), nullTime(task.StartDate), nullTime(task.PlannedFor),
		task.Completed, task.UpdatedAt.UnixMilli(),
	)
	if isConstraint(err) {
		return &storage.Error{Type: storage.ErrAlreadyExists, Message: "task already exists", Err: err}
	}
	if err != nil {
		return unavailable("insert task", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (storage.Event, error) {
	var (
		ev                    storage.Event
		description, location sql.NullString
		start                 int64
		end                   sql.NullInt64
		tz                    string
		recurrence            sql.NullInt64
		created, updated      int64
	)
	if err := row.Scan(&ev.ID, &ev.RealmID, &ev.Name, &description, &location, &ev.CreatedBy,
		&start, &end, &tz, &recurrence, &created, &updated); err != nil {
		return storage.Event{}, err
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	ev.Description = description.String
	ev.Location = location.String
	ev.Start = time.UnixMilli(start).In(loc)
	ev.End = optionalTime(end, loc)
	if recurrence.Valid {
		ev.Recurrence = mo.Some(uint64(recurrence.Int64))
	}
	ev.CreatedAt = time.UnixMilli(created).In(loc)
	ev.UpdatedAt = time.UnixMilli(updated).In(loc)
	return ev, nil
}

func optionalTime(v sql.NullInt64, loc *time.Location) mo.Option[time.Time] {
	if !v.Valid {
		return mo.None[time.Time]()
	}
	return mo.Some(time.UnixMilli(v.Int64).In(loc))
}

func nullTime(v mo.Option[time.Time]) any {
	t, ok := v.Get()
	if !ok {
		return nil
	}
	return t.UnixMilli()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func unavailable(op string, err error) error {
	return &storage.Error{Type: storage.ErrUnavailable, Message: op, Err: err}
}
