package model

import (
	"fmt"
	"time"
)

// TaskKind identifies which extraction a request asks for.
type TaskKind string

const (
	KindEvent          TaskKind = "event"
	KindTask           TaskKind = "task"
	KindReply          TaskKind = "reply"
	KindForwardSummary TaskKind = "forward-summary"
	KindContact        TaskKind = "contact"
	KindAnalysis       TaskKind = "analysis"
	KindArrayEvent     TaskKind = "array-event"
	KindArrayTask      TaskKind = "array-task"
	KindArrayContact   TaskKind = "array-contact"
)

// AllKinds lists every supported task kind in display order.
var AllKinds = []TaskKind{
	KindEvent, KindTask, KindReply, KindForwardSummary, KindContact,
	KindAnalysis, KindArrayEvent, KindArrayTask, KindArrayContact,
}

// ParseTaskKind converts a user-supplied name into a TaskKind.
func ParseTaskKind(s string) (TaskKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown task kind %q", s)
}

// IsArray reports whether the kind is a Stage-2 array re-extraction.
func (k TaskKind) IsArray() bool {
	switch k {
	case KindArrayEvent, KindArrayTask, KindArrayContact:
		return true
	}
	return false
}

// Message is a single email as handed over by the message source.
type Message struct {
	// UID is the mailbox identifier when the message came from IMAP.
	UID uint32

	// MessageID is the RFC 5322 Message-ID without angle brackets.
	MessageID string

	Subject string
	From    string
	To      []string
	Date    time.Time
	Body    string
}

// TaskHints carries optional, kind-specific context for a request.
type TaskHints struct {
	// Attendees are address hints offered to the model for events.
	Attendees []string

	// Categories is the ordered list of allowed category names.
	Categories []string

	// AISummary asks the model to write the record description itself.
	AISummary bool

	// Candidates are the Stage-1 previews for an array re-extraction.
	Candidates []CandidateItem

	// Selected holds indices into Candidates chosen by the user.
	Selected []int
}

// ExtractionRequest is the immutable input of one extraction action.
type ExtractionRequest struct {
	EmailBody  string
	Subject    string
	Author     string
	Recipients []string
	SentAt     time.Time
	Kind       TaskKind
	Hints      TaskHints
}

// NewRequest builds a request for kind from a fetched message.
func NewRequest(msg Message, kind TaskKind, hints TaskHints) ExtractionRequest {
	recipients := make([]string, len(msg.To))
	copy(recipients, msg.To)

	return ExtractionRequest{
		EmailBody:  msg.Body,
		Subject:    msg.Subject,
		Author:     msg.From,
		Recipients: recipients,
		SentAt:     msg.Date,
		Kind:       kind,
		Hints:      hints,
	}
}

// SelectedCandidates returns the candidates picked by the user, in the
// order of Hints.Selected. Out-of-range indices are ignored.
func (r ExtractionRequest) SelectedCandidates() []CandidateItem {
	if len(r.Hints.Selected) == 0 {
		return nil
	}
	out := make([]CandidateItem, 0, len(r.Hints.Selected))
	for _, i := range r.Hints.Selected {
		if i < 0 || i >= len(r.Hints.Candidates) {
			continue
		}
		out = append(out, r.Hints.Candidates[i])
	}
	return out
}
