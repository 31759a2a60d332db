package extract

import (
	"log/slog"

	"github.com/nhle/mailextract/internal/model"
)

// State is a step of one extraction action.
type State int

const (
	StateIdle State = iota
	StatePromptBuilt
	StateModelCalled
	StateResponseExtracted
	StatePostProcessed
	StateCommitted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StatePromptBuilt:       "prompt_built",
	StateModelCalled:       "model_called",
	StateResponseExtracted: "response_extracted",
	StatePostProcessed:     "post_processed",
	StateCommitted:         "committed",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed
}

// TransitionFunc observes state changes of an action.
type TransitionFunc func(kind model.TaskKind, from, to State)

// machine walks one action through its states. Transitions only move one
// step forward, or to Failed from any non-terminal state.
type machine struct {
	kind    model.TaskKind
	state   State
	logger  *slog.Logger
	observe TransitionFunc
}

func newMachine(kind model.TaskKind, logger *slog.Logger, observe TransitionFunc) *machine {
	return &machine{kind: kind, state: StateIdle, logger: logger, observe: observe}
}

func (m *machine) advance(to State) {
	if m.state.Terminal() || to != m.state+1 || to == StateFailed {
		m.logger.Error("invalid extraction transition",
			"kind", m.kind, "from", m.state, "to", to)
		return
	}
	m.move(to)
}

// fail moves to Failed and returns err unchanged.
func (m *machine) fail(err error) error {
	if m.state.Terminal() {
		return err
	}
	m.logger.Debug("extraction failed", "kind", m.kind, "state", m.state, "error", err)
	m.move(StateFailed)
	return err
}

func (m *machine) move(to State) {
	from := m.state
	m.state = to
	m.logger.Debug("extraction state", "kind", m.kind, "from", from, "to", to)
	if m.observe != nil {
		m.observe(m.kind, from, to)
	}
}
