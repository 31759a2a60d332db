package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nhle/mailextract/internal/model"
)

var (
	// ErrSessionCancelled is returned once a session has been cancelled.
	ErrSessionCancelled = errors.New("analysis session cancelled")

	// ErrSessionUsed is returned when a finished session is reused.
	ErrSessionUsed = errors.New("analysis session already used")
)

// SessionState is the state of a two-stage analysis.
type SessionState int

const (
	// AwaitingSelection waits, without a time limit, for the user to pick
	// which Stage-1 candidates to extract.
	AwaitingSelection SessionState = iota
	Extracting
	Done
	Cancelled
)

func (s SessionState) String() string {
	switch s {
	case AwaitingSelection:
		return "awaiting_selection"
	case Extracting:
		return "extracting"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Selection holds indices into the analysis candidate lists.
type Selection struct {
	Events   []int
	Tasks    []int
	Contacts []int
}

// IsEmpty reports whether nothing was selected.
func (s Selection) IsEmpty() bool {
	return len(s.Events) == 0 && len(s.Tasks) == 0 && len(s.Contacts) == 0
}

// Selector asks the user which candidates to extract.
type Selector interface {
	Select(ctx context.Context, analysis *model.Analysis) (Selection, error)
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(ctx context.Context, analysis *model.Analysis) (Selection, error)

// Select calls f.
func (f SelectorFunc) Select(ctx context.Context, analysis *model.Analysis) (Selection, error) {
	return f(ctx, analysis)
}

// Session is a two-stage analysis: Stage 1 has run and the session holds
// its result until the user selects candidates or cancels. A session is
// used at most once.
type Session struct {
	ex *Extractor

	mu       sync.Mutex
	state    SessionState
	req      model.ExtractionRequest
	analysis *model.Analysis
	done     chan struct{}
	once     sync.Once
}

// Analyze runs Stage 1 for req and returns a session awaiting selection.
func (e *Extractor) Analyze(ctx context.Context, req model.ExtractionRequest) (*Session, error) {
	req.Kind = model.KindAnalysis

	res, err := e.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Session{
		ex:       e,
		state:    AwaitingSelection,
		req:      req,
		analysis: res.Analysis,
		done:     make(chan struct{}),
	}, nil
}

// State returns the session's current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Analysis returns the Stage-1 result, or nil once the session ended.
func (s *Session) Analysis() *model.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// Done is closed when the session is finished or cancelled.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel abandons a session awaiting selection. Stage-1 state is dropped
// and cannot be resumed. Cancelling a finished session has no effect.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingSelection {
		return
	}
	s.state = Cancelled
	s.discard()
}

// discard drops Stage-1 data and closes done. Callers hold mu.
func (s *Session) discard() {
	s.analysis = nil
	s.req = model.ExtractionRequest{}
	s.once.Do(func() { close(s.done) })
}

// Await hands the analysis to sel and runs Stage 2 for the selection.
// There is no time limit on the selection; it ends when sel returns, when
// Cancel is called or when ctx is done, the last two cancelling the
// session. An empty selection finishes the session with no results.
func (s *Session) Await(ctx context.Context, sel Selector) ([]*Result, error) {
	selection, err := s.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	return s.Extract(ctx, selection)
}

// Select hands the analysis to sel and waits for its answer without
// running Stage 2. If the session is cancelled or ctx is done first, the
// context given to sel is cancelled and the session ends.
func (s *Session) Select(ctx context.Context, sel Selector) (Selection, error) {
	analysis := s.Analysis()
	if analysis == nil {
		return Selection{}, s.stateErr()
	}

	selCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type answer struct {
		selection Selection
		err       error
	}
	answers := make(chan answer, 1)
	go func() {
		selection, err := sel.Select(selCtx, analysis)
		answers <- answer{selection, err}
	}()

	select {
	case <-s.done:
		return Selection{}, s.stateErr()
	case <-ctx.Done():
		s.Cancel()
		return Selection{}, fmt.Errorf("awaiting selection: %w", ctx.Err())
	case a := <-answers:
		if a.err != nil {
			s.Cancel()
			return Selection{}, fmt.Errorf("awaiting selection: %w", a.err)
		}
		return a.selection, nil
	}
}

// Extract runs Stage 2 for each kind with a selection: events, then tasks,
// then contacts. The session is done afterwards whatever the outcome.
func (s *Session) Extract(ctx context.Context, sel Selection) ([]*Result, error) {
	s.mu.Lock()
	if s.state != AwaitingSelection {
		s.mu.Unlock()
		return nil, s.stateErr()
	}
	s.state = Extracting
	req, analysis := s.req, s.analysis
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = Done
		s.discard()
		s.mu.Unlock()
	}()

	passes := []struct {
		kind       model.TaskKind
		candidates []model.CandidateItem
		indices    []int
	}{
		{model.KindArrayEvent, analysis.Events, sel.Events},
		{model.KindArrayTask, analysis.Tasks, sel.Tasks},
		{model.KindArrayContact, analysis.Contacts, sel.Contacts},
	}

	var results []*Result
	for _, p := range passes {
		if len(p.indices) == 0 {
			continue
		}

		stage2 := req
		stage2.Kind = p.kind
		stage2.Hints.Candidates = slices.Clone(p.candidates)
		stage2.Hints.Selected = slices.Clone(p.indices)

		res, err := s.ex.Run(ctx, stage2)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Session) stateErr() error {
	if s.State() == Cancelled {
		return ErrSessionCancelled
	}
	return ErrSessionUsed
}
