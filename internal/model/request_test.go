package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTaskKind(t *testing.T) {
	for _, k := range AllKinds {
		got, err := ParseTaskKind(string(k))
		require.NoError(t, err)
		require.Equal(t, k, got)
	}

	_, err := ParseTaskKind("meeting")
	require.Error(t, err)
}

func TestTaskKind_IsArray(t *testing.T) {
	require.True(t, KindArrayEvent.IsArray())
	require.True(t, KindArrayContact.IsArray())
	require.False(t, KindEvent.IsArray())
	require.False(t, KindAnalysis.IsArray())
}

func TestNewRequest_CopiesRecipients(t *testing.T) {
	msg := Message{
		Subject: "Budget review",
		From:    "ann@example.com",
		To:      []string{"bob@example.com"},
		Date:    time.Date(2026, time.February, 20, 9, 30, 0, 0, time.UTC),
		Body:    "See you Tuesday.",
	}

	req := NewRequest(msg, KindEvent, TaskHints{AISummary: true})
	msg.To[0] = "mallory@example.com"

	require.Equal(t, []string{"bob@example.com"}, req.Recipients)
	require.Equal(t, "ann@example.com", req.Author)
	require.Equal(t, "See you Tuesday.", req.EmailBody)
	require.Equal(t, KindEvent, req.Kind)
	require.True(t, req.Hints.AISummary)
}

func TestSelectedCandidates(t *testing.T) {
	req := ExtractionRequest{Hints: TaskHints{
		Candidates: []CandidateItem{{Preview: "a"}, {Preview: "b"}, {Preview: "c"}},
		Selected:   []int{2, 7, -1, 0},
	}}

	got := req.SelectedCandidates()
	require.Equal(t, []CandidateItem{{Preview: "c"}, {Preview: "a"}}, got)

	require.Nil(t, ExtractionRequest{}.SelectedCandidates())
}

func TestContactRecord(t *testing.T) {
	require.True(t, ContactRecord{}.IsEmpty())
	require.Equal(t, "Ann Lee", ContactRecord{FirstName: "Ann", LastName: "Lee"}.DisplayName())
	require.Equal(t, "Lee", ContactRecord{LastName: "Lee"}.DisplayName())
	require.Equal(t, "ann@example.com", ContactRecord{Email: "ann@example.com"}.DisplayName())
}

func TestAnalysis(t *testing.T) {
	var nilAnalysis *Analysis
	require.True(t, nilAnalysis.IsEmpty())
	require.Nil(t, nilAnalysis.Candidates(KindArrayEvent))

	a := &Analysis{Tasks: []CandidateItem{{Preview: "Send slides"}}}
	require.False(t, a.IsEmpty())
	require.Len(t, a.Candidates(KindArrayTask), 1)
	require.Nil(t, a.Candidates(KindEvent))
}
