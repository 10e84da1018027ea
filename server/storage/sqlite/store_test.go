package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cyp0633/libnebula/recurrence"
	"github.com/cyp0633/libnebula/server/storage"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june = storage.TimeRange{
	Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
}

func mustEncode(t *testing.T, r recurrence.Rule) uint64 {
	t.Helper()
	packed, err := recurrence.Encode(r)
	require.NoError(t, err)
	return packed
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	n := 0
	s, err := Open(context.Background(), Config{Path: ":memory:"},
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{Path: "  "})
	assert.Error(t, err)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "nebula.db")
	s, err := Open(context.Background(), Config{Path: path, BusyTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are idempotent.
	s, err = Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestEventRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}

	ev := storage.NewMockRecurringEvent("realm", "", "Standup", time.Date(2024, 3, 25, 9, 30, 0, 0, berlin), 15*time.Minute, 1<<2)
	ev.Description = "daily sync"
	require.NoError(t, s.CreateEvent(ctx, &ev))
	assert.Equal(t, "id-1", ev.ID)

	got, err := s.GetEvent(ctx, "realm", "id-1")
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Name)
	assert.Equal(t, "daily sync", got.Description)
	assert.Empty(t, got.Location)
	assert.True(t, got.Start.Equal(ev.Start))
	assert.Equal(t, "Europe/Berlin", got.Start.Location().String())
	end, ok := got.End.Get()
	require.True(t, ok)
	assert.True(t, end.Equal(ev.Start.Add(15*time.Minute)))
	assert.Equal(t, ev.Recurrence, got.Recurrence)
	assert.True(t, got.CreatedAt.Equal(ev.CreatedAt))

	err = s.CreateEvent(ctx, &ev)
	assert.True(t, storage.IsType(err, storage.ErrAlreadyExists))

	_, err = s.GetEvent(ctx, "other", "id-1")
	assert.True(t, storage.IsNotFound(err))

	require.NoError(t, s.DeleteEvent(ctx, "realm", "id-1"))
	assert.True(t, storage.IsNotFound(s.DeleteEvent(ctx, "realm", "id-1")))
}

func TestFetchEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	events := []storage.Event{
		storage.NewMockEvent("realm", "b", "in june", june.Start.Add(48*time.Hour), time.Hour),
		storage.NewMockEvent("realm", "a", "in june too", june.Start.Add(48*time.Hour), 0),
		storage.NewMockEvent("realm", "c", "may", june.Start.AddDate(0, 0, -5), time.Hour),
		storage.NewMockRecurringEvent("realm", "d", "weekly since may", june.Start.AddDate(0, -1, 0), time.Hour, 1<<2),
		storage.NewMockEvent("realm", "e", "july", june.End.Add(time.Hour), time.Hour),
		storage.NewMockRecurringEvent("realm", "g", "ended in may", june.Start.AddDate(0, -1, 0), time.Hour,
			mustEncode(t, recurrence.Daily(1).WithCount(3))),
		storage.NewMockEvent("other", "f", "other realm", june.Start.Add(time.Hour), time.Hour),
	}
	for i := range events {
		require.NoError(t, s.CreateEvent(ctx, &events[i]))
	}

	got, err := s.FetchEvents(ctx, "realm", june)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, ev := range got {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"d", "a", "b"}, ids)
	assert.True(t, got[1].End.IsAbsent())
	assert.True(t, got[1].Recurrence.IsAbsent())
}

func TestTasks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	planned := storage.NewMockTask("realm", "", "planned", june.Start.Add(time.Hour))
	planned.Priority = mo.Some(storage.PriorityImportant)
	require.NoError(t, s.CreateTask(ctx, &planned))
	assert.Equal(t, "id-1", planned.ID)

	due := storage.Task{ID: "due", RealmID: "realm", Title: "due", DueDate: mo.Some(june.End), Completed: true}
	require.NoError(t, s.CreateTask(ctx, &due))

	late := storage.NewMockTask("realm", "late", "august", june.End.AddDate(0, 2, 0))
	require.NoError(t, s.CreateTask(ctx, &late))

	assert.True(t, storage.IsType(s.CreateTask(ctx, &due), storage.ErrAlreadyExists))

	bad := storage.Task{RealmID: "realm", Priority: mo.Some(storage.Priority(7))}
	assert.True(t, storage.IsType(s.CreateTask(ctx, &bad), storage.ErrInvalidInput))

	got, err := s.FetchTasks(ctx, "realm", june)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "due", got[0].ID)
	assert.True(t, got[0].Completed)
	assert.True(t, got[0].Priority.IsAbsent())
	assert.True(t, got[0].PlannedFor.IsAbsent())

	assert.Equal(t, "id-1", got[1].ID)
	assert.Equal(t, mo.Some(storage.PriorityImportant), got[1].Priority)
	p, ok := got[1].PlannedFor.Get()
	require.True(t, ok)
	assert.True(t, p.Equal(june.Start.Add(time.Hour)))
}
