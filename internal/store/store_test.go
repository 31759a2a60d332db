package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/mailextract/internal/ai"
	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/store"
	"github.com/nhle/mailextract/internal/testutil"
)

var (
	_ store.Store            = (*store.SQLiteStore)(nil)
	_ extract.Sink           = (*store.SQLiteStore)(nil)
	_ extract.CategorySource = (*store.SQLiteStore)(nil)
)

type generatorFunc func(context.Context) string

func (f generatorFunc) Generate(ctx context.Context, _ ai.Request) (string, error) {
	return f(ctx), nil
}

func TestMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailextract.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.NoError(t, s.AddCategory(context.Background(), "Work"))
	require.NoError(t, s.Close())

	// Reopening applies nothing twice and keeps data.
	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, err = s.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, 2, v)

	names, err := s.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Work"}, names)
}

func TestCategories(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	names, err := s.Categories(ctx)
	require.NoError(t, err)
	require.NotNil(t, names)
	require.Empty(t, names)

	for _, name := range []string{"Work", " Family ", "Travel"} {
		require.NoError(t, s.AddCategory(ctx, name))
	}

	names, err = s.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Work", "Family", "Travel"}, names)

	require.ErrorIs(t, s.AddCategory(ctx, "work"), store.ErrDuplicate)
	require.Error(t, s.AddCategory(ctx, "   "))

	require.NoError(t, s.RemoveCategory(ctx, "family"))
	require.ErrorIs(t, s.RemoveCategory(ctx, "Family"), store.ErrNotFound)

	require.NoError(t, s.AddCategory(ctx, "Home"))
	names, err = s.Categories(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Work", "Travel", "Home"}, names)
}

func TestEvents(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first := model.EventRecord{
		Summary:      "Budget review",
		StartDate:    "20260310T150000",
		EndDate:      "20260310T160000",
		Attendees:    []string{"ann@example.com", "bob@example.com"},
		Description:  "Quarterly numbers.",
		Category:     "Work",
		CalendarName: "Work",
	}
	second := model.EventRecord{
		Summary:     "Offsite",
		StartDate:   "20260315T000000",
		EndDate:     "20260317T000000",
		ForceAllDay: true,
		Attendees:   []string{},
	}
	require.NoError(t, s.CreateEvent(ctx, first))
	require.NoError(t, s.CreateEvent(ctx, second))

	events, err := s.ListEvents(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, second, events[0].EventRecord)
	require.Equal(t, first, events[1].EventRecord)
	require.NotEmpty(t, events[0].ID)
	require.False(t, events[0].CreatedAt.IsZero())

	page, err := s.ListEvents(ctx, store.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "Budget review", page[0].Summary)

	rest, err := s.ListEvents(ctx, store.ListFilter{Offset: 1})
	require.NoError(t, err)
	require.Len(t, rest, 1)

	require.Error(t, s.CreateEvent(ctx, model.EventRecord{Summary: "No start"}))
	require.Error(t, s.CreateEvent(ctx, model.EventRecord{StartDate: "20260310T150000"}))
}

func TestTasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	rec := model.TaskRecord{
		Summary:     "Send slides",
		DueDate:     "20260227T000000",
		ForceAllDay: true,
		Category:    "Work",
	}
	require.NoError(t, s.CreateTask(ctx, rec))
	require.Error(t, s.CreateTask(ctx, model.TaskRecord{}))

	tasks, err := s.ListTasks(ctx, store.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, rec, tasks[0].TaskRecord)
}

func TestContacts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateContact(ctx, model.ContactRecord{
		FirstName: "Ann",
		Email:     "ann@example.com",
	}, "Personal"))

	// Same email, different case: merged into the existing entry.
	require.NoError(t, s.CreateContact(ctx, model.ContactRecord{
		LastName: "Lee",
		Email:    "ANN@example.com",
		Company:  "Acme",
	}, "Personal"))

	// Same email in another book is a separate contact.
	require.NoError(t, s.CreateContact(ctx, model.ContactRecord{
		FirstName: "Ann",
		Email:     "ann@example.com",
	}, "Work"))

	// Contacts without an email are never merged.
	require.NoError(t, s.CreateContact(ctx, model.ContactRecord{Phone: "+1 555 0100"}, "Personal"))
	require.NoError(t, s.CreateContact(ctx, model.ContactRecord{Phone: "+1 555 0100"}, "Personal"))

	require.Error(t, s.CreateContact(ctx, model.ContactRecord{}, "Personal"))

	personal, err := s.ListContacts(ctx, "Personal")
	require.NoError(t, err)
	require.Len(t, personal, 3)

	var ann *store.StoredContact
	for i := range personal {
		if personal[i].Email != "" {
			ann = &personal[i]
		}
	}
	require.NotNil(t, ann)
	require.Equal(t, model.ContactRecord{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "ann@example.com",
		Company:   "Acme",
	}, ann.ContactRecord)

	work, err := s.ListContacts(ctx, "Work")
	require.NoError(t, err)
	require.Len(t, work, 1)
}

func TestCommitThroughExtractor(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	gen := generatorFunc(func(context.Context) string {
		return `{"summary":"Budget review","startDate":"2026-03-10T15:00:00"}`
	})
	ex := extract.New(gen, extract.Settings{
		AttendeeSource: model.AttendeesNone,
		CalendarName:   "Work",
	})

	res, err := ex.Run(ctx, model.ExtractionRequest{
		Kind:      model.KindEvent,
		EmailBody: "See you then.",
	})
	require.NoError(t, err)
	require.NoError(t, ex.Commit(ctx, s, res))

	events, err := s.ListEvents(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, *res.Event, events[0].EventRecord)
}
