package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/mailextract/internal/model"
)

var now = time.Date(2026, time.February, 20, 9, 30, 0, 0, time.UTC)

func request(kind model.TaskKind, hints model.TaskHints) model.ExtractionRequest {
	return model.NewRequest(model.Message{
		Subject: "Team Meeting",
		From:    "Ana Lima <ana@example.com>",
		To:      []string{"bo@example.com"},
		Date:    time.Date(2026, time.February, 18, 14, 0, 0, 0, time.UTC),
		Body:    "Team meeting March 10, 2026 at 3pm in room 4.",
	}, kind, hints)
}

func TestBuild_EveryKind(t *testing.T) {
	b := New(now)

	for _, kind := range model.AllKinds {
		t.Run(string(kind), func(t *testing.T) {
			hints := model.TaskHints{
				Candidates: []model.CandidateItem{{Preview: "Team meeting on March 10"}},
				Selected:   []int{0},
			}
			got, err := b.Build(request(kind, hints))
			require.NoError(t, err)
			require.Contains(t, got, "JSON")
			require.Contains(t, got, "02/20/2026")
			require.Contains(t, got, "Subject: Team Meeting")
			require.Contains(t, got, "From: Ana Lima <ana@example.com>")
			require.Contains(t, got, "To: bo@example.com")
			require.Contains(t, got, "Team meeting March 10, 2026 at 3pm")
		})
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	_, err := New(now).Build(request("poem", model.TaskHints{}))
	require.Error(t, err)
}

func TestEvent_Categories(t *testing.T) {
	b := New(now)

	without := b.Event(request(model.KindEvent, model.TaskHints{}))
	require.NotContains(t, without, "Choose \"category\"")

	with := b.Event(request(model.KindEvent, model.TaskHints{
		Categories: []string{"Work", "Work/Meetings", "Personal"},
	}))
	require.Contains(t, with, `Choose "category" from this list: "Work", "Work/Meetings", "Personal".`)
	require.Contains(t, with, "most specific")
	require.Contains(t, with, `Use "" if no category fits.`)
}

func TestEvent_Hints(t *testing.T) {
	b := New(now)

	got := b.Event(request(model.KindEvent, model.TaskHints{
		Attendees: []string{"ana@example.com", "bo@example.com"},
		AISummary: true,
	}))
	require.Contains(t, got, "Known participant addresses: ana@example.com, bo@example.com")
	require.Contains(t, got, "narrative summary of the event")
	require.Contains(t, got, `"startDate"`)
	require.Contains(t, got, `"forceAllDay"`)

	plain := b.Event(request(model.KindEvent, model.TaskHints{}))
	require.Contains(t, plain, `Set "description" to "".`)
}

func TestTask_Fields(t *testing.T) {
	got := New(now).Task(request(model.KindTask, model.TaskHints{}))
	require.Contains(t, got, `"dueDate"`)
	require.Contains(t, got, `"initialDate"`)
	require.NotContains(t, got, `"attendees"`)
}

func TestReplyAndSummary(t *testing.T) {
	b := New(now)

	reply := b.Reply(request(model.KindReply, model.TaskHints{}))
	require.Contains(t, reply, `{"body": string}`)
	require.NotContains(t, reply, "startDate")

	summary := b.ForwardSummary(request(model.KindForwardSummary, model.TaskHints{}))
	require.Contains(t, summary, `{"summary": string}`)
	require.NotContains(t, summary, "startDate")
}

func TestContact_Fields(t *testing.T) {
	got := New(now).Contact(request(model.KindContact, model.TaskHints{}))
	for _, field := range []string{"firstName", "lastName", "email", "phone", "company", "title", "website"} {
		require.Contains(t, got, `"`+field+`"`)
	}
	require.Contains(t, got, "optional")
}

func TestAnalysis_PreservesYears(t *testing.T) {
	got := New(now).Analysis(request(model.KindAnalysis, model.TaskHints{}))
	require.Contains(t, got, "exactly as written in the email, including its year")
	require.Contains(t, got, `"events": [{"preview": string}]`)
	require.Contains(t, got, `"tasks": [{"preview": string}]`)
	require.Contains(t, got, `"contacts": [{"preview": string}]`)
}

func TestArrayExtraction_SelectedOnly(t *testing.T) {
	hints := model.TaskHints{
		Candidates: []model.CandidateItem{
			{Preview: "Kickoff on 2023-05-02"},
			{Preview: "Retro on 2023-05-09"},
			{Preview: "Offsite in June 2023"},
		},
		Selected:   []int{2, 0},
		Categories: []string{"Work"},
	}

	got := New(now).ArrayExtraction(request(model.KindArrayEvent, hints))
	require.Contains(t, got, "1. Offsite in June 2023\n2. Kickoff on 2023-05-02\n")
	require.NotContains(t, got, "Retro on 2023-05-09")
	require.Contains(t, got, "Return exactly 2 item(s)")
	require.Contains(t, got, `"events": [`)
	require.Contains(t, got, "including its year")
	require.Contains(t, got, `Choose "category"`)
}

func TestArrayExtraction_Contacts(t *testing.T) {
	hints := model.TaskHints{
		Candidates: []model.CandidateItem{{Preview: "Ana Lima, Acme"}},
		Selected:   []int{0},
		Categories: []string{"Work"},
	}

	got := New(now).ArrayExtraction(request(model.KindArrayContact, hints))
	require.Contains(t, got, `"contacts": [`)
	require.Contains(t, got, `"firstName"`)
	require.NotContains(t, got, `Choose "category"`)
	require.NotContains(t, got, `"startDate"`)
}
