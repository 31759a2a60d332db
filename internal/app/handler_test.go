package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/mailextract/internal/ai"
	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/store"
	"github.com/nhle/mailextract/internal/testutil"
)

var testNow = time.Date(2026, time.February, 20, 9, 30, 0, 0, time.UTC)

type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	out := g.responses[0]
	g.responses = g.responses[1:]
	return out, nil
}

type recordingDrafts struct {
	original model.Message
	body     string
	calls    int
}

func (d *recordingDrafts) SaveDraft(_ context.Context, original model.Message, body string) error {
	d.original = original
	d.body = body
	d.calls++
	return nil
}

func testMessage() model.Message {
	return model.Message{
		MessageID: "abc123@example.com",
		Subject:   "Budget review",
		From:      "Ann Lee <ann@example.com>",
		To:        []string{"bob@example.com"},
		Date:      testNow,
		Body:      "Can we go over the budget on March 10 at 3pm?",
	}
}

func newTestHandler(t *testing.T, gen ai.Generator, opts ...HandlerOption) (*Handler, *store.SQLiteStore) {
	t.Helper()

	s := testutil.NewTestStore(t)
	ex := extract.New(gen, extract.Settings{
		Host:           "http://localhost:11434",
		Model:          "llama3",
		CalendarName:   "Work",
		AttendeeSource: model.AttendeesFromModel,
		AddressBook:    "personal",
	},
		extract.WithClock(func() time.Time { return testNow }),
		extract.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	opts = append([]HandlerOption{
		WithCategories(s),
		WithHandlerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewHandler(ex, opts...), s
}

func TestHandler_RunEvent(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGenerator{responses: []string{
		`{"title":"Budget review","start":"2026-03-10T15:00:00","category":"work",` +
			`"attendees":["ann@example.com","bob@example.com"]}`,
	}}

	var labels []string
	progress := func(ctx context.Context, label string, job func(context.Context) error) error {
		labels = append(labels, label)
		return job(ctx)
	}

	h, s := newTestHandler(t, gen, WithProgress(progress), WithAISummary(true))
	h.sink = s
	require.NoError(t, s.AddCategory(ctx, "Work"))
	require.NoError(t, s.AddCategory(ctx, "Personal"))

	res, err := h.Run(ctx, Action{Kind: model.KindEvent, Message: testMessage()})
	require.NoError(t, err)
	require.Equal(t, extract.StateCommitted, res.State())
	require.Equal(t, "Work", res.Event.Category)
	require.Equal(t, []string{"Extracting event"}, labels)

	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], `"Work", "Personal"`)
	require.Contains(t, gen.prompts[0], "Known participant addresses: Ann Lee <ann@example.com>, bob@example.com")

	events, err := s.ListEvents(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Budget review", events[0].Summary)
	require.Equal(t, "20260310T150000", events[0].StartDate)
}

func TestHandler_DryRun(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGenerator{responses: []string{`{"summary":"Send slides","dueDate":"2026-02-27"}`}}

	h, s := newTestHandler(t, gen)
	require.False(t, h.Committed())

	res, err := h.Run(ctx, Action{Kind: model.KindTask, Message: testMessage()})
	require.NoError(t, err)
	require.Equal(t, extract.StatePostProcessed, res.State())
	require.Equal(t, "20260227T000000", res.Task.DueDate)

	tasks, err := s.ListTasks(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestHandler_RunReplySavesDraft(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGenerator{responses: []string{`{"reply":"March 10 works for me."}`}}
	drafts := &recordingDrafts{}

	h, s := newTestHandler(t, gen, WithDrafts(drafts))
	h.sink = s

	res, err := h.Run(ctx, Action{Kind: model.KindReply, Message: testMessage(), SaveDraft: true})
	require.NoError(t, err)
	require.Equal(t, "March 10 works for me.", res.Text)
	require.Equal(t, extract.StateCommitted, res.State())
	require.Equal(t, 1, drafts.calls)
	require.Equal(t, "March 10 works for me.", drafts.body)
	require.Equal(t, "abc123@example.com", drafts.original.MessageID)
}

func TestHandler_RunReplyWithoutMailbox(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"reply":"ok"}`}}
	h, s := newTestHandler(t, gen)
	h.sink = s

	_, err := h.Run(context.Background(), Action{Kind: model.KindReply, Message: testMessage(), SaveDraft: true})
	require.ErrorContains(t, err, "no mailbox configured")
}

func TestHandler_RunRejectsMultiItemKinds(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedGenerator{})

	for _, kind := range []model.TaskKind{model.KindAnalysis, model.KindArrayEvent} {
		_, err := h.Run(context.Background(), Action{Kind: kind, Message: testMessage()})
		require.Error(t, err)
	}
}

func TestHandler_RunModelFailure(t *testing.T) {
	gen := &scriptedGenerator{err: &ai.UpstreamError{StatusCode: 500, Body: "model not loaded"}}
	h, _ := newTestHandler(t, gen)

	_, err := h.Run(context.Background(), Action{Kind: model.KindEvent, Message: testMessage()})
	require.Error(t, err)
	require.Equal(t, ClassConnection, Classify(err))

	gen = &scriptedGenerator{responses: []string{"I could not find an event, sorry."}}
	h, _ = newTestHandler(t, gen)

	_, err = h.Run(context.Background(), Action{Kind: model.KindEvent, Message: testMessage()})
	require.Error(t, err)
	require.Equal(t, ClassInvalidOutput, Classify(err))
}

func TestHandler_Analyze(t *testing.T) {
	ctx := context.Background()
	gen := &scriptedGenerator{responses: []string{
		`{"summary":"Kickoff planning.","events":[{"preview":"Kickoff on 2026-03-02 at 9am"}],` +
			`"contacts":[{"preview":"Ann Lee, Acme"}]}`,
		`[{"summary":"Kickoff","startDate":"2026-03-02T09:00:00"}]`,
		`[{"firstName":"Ann","lastName":"Lee","email":"ann@example.com","company":"Acme"}]`,
	}}

	var labels []string
	progress := func(ctx context.Context, label string, job func(context.Context) error) error {
		labels = append(labels, label)
		return job(ctx)
	}

	h, s := newTestHandler(t, gen, WithProgress(progress))
	h.sink = s

	selectAll := extract.SelectorFunc(func(_ context.Context, a *model.Analysis) (extract.Selection, error) {
		require.Equal(t, []string{"Analyzing message"}, labels)
		return extract.Selection{Events: []int{0}, Contacts: []int{0}}, nil
	})

	analysis, results, err := h.Analyze(ctx, testMessage(), selectAll)
	require.NoError(t, err)
	require.Equal(t, "Kickoff planning.", analysis.Summary)
	require.Len(t, results, 2)
	for _, res := range results {
		require.Equal(t, extract.StateCommitted, res.State())
	}
	require.Equal(t, []string{"Analyzing message", "Extracting selected items"}, labels)

	events, err := s.ListEvents(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "20260302T090000", events[0].StartDate)

	contacts, err := s.ListContacts(ctx, "personal")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "Acme", contacts[0].Company)
}

func TestHandler_AnalyzeNoCandidates(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"summary":"Just a newsletter."}`}}
	h, _ := newTestHandler(t, gen)

	called := false
	sel := extract.SelectorFunc(func(context.Context, *model.Analysis) (extract.Selection, error) {
		called = true
		return extract.Selection{}, nil
	})

	analysis, results, err := h.Analyze(context.Background(), testMessage(), sel)
	require.NoError(t, err)
	require.Equal(t, "Just a newsletter.", analysis.Summary)
	require.Empty(t, results)
	require.False(t, called)
	require.Len(t, gen.prompts, 1)
}

func TestHandler_AnalyzeEmptySelection(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"summary":"Planning.","tasks":[{"preview":"Send slides"}]}`,
	}}

	var labels []string
	progress := func(ctx context.Context, label string, job func(context.Context) error) error {
		labels = append(labels, label)
		return job(ctx)
	}
	h, _ := newTestHandler(t, gen, WithProgress(progress))

	sel := extract.SelectorFunc(func(context.Context, *model.Analysis) (extract.Selection, error) {
		return extract.Selection{}, nil
	})

	_, results, err := h.Analyze(context.Background(), testMessage(), sel)
	require.NoError(t, err)
	require.Empty(t, results)
	require.Equal(t, []string{"Analyzing message"}, labels)
	require.Len(t, gen.prompts, 1)
}

func TestHandler_AnalyzeSelectionAborted(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"summary":"Planning.","tasks":[{"preview":"Send slides"}]}`,
	}}
	h, _ := newTestHandler(t, gen)

	sel := extract.SelectorFunc(func(context.Context, *model.Analysis) (extract.Selection, error) {
		return extract.Selection{}, extract.ErrSessionCancelled
	})

	_, results, err := h.Analyze(context.Background(), testMessage(), sel)
	require.ErrorIs(t, err, extract.ErrSessionCancelled)
	require.Empty(t, results)
	require.Equal(t, ClassCanceled, Classify(err))
	require.Len(t, gen.prompts, 1)
}
