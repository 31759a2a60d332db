// Package progress shows a spinner while a blocking job runs and lets the
// user cancel it from the keyboard.
package progress

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailextract/internal/keys"
	"github.com/nhle/mailextract/internal/theme"
	"github.com/nhle/mailextract/internal/ui"
)

// Job is the work run under the spinner. It must return once ctx is done.
type Job func(ctx context.Context) error

// jobDoneMsg is sent when the job returns.
type jobDoneMsg struct {
	err error
}

// Model is the Bubble Tea model of the spinner view.
type Model struct {
	label     string
	spinner   spinner.Model
	help      help.Model
	keys      *keys.KeyMap
	ctx       context.Context
	cancel    context.CancelFunc
	job       Job
	err       error
	done      bool
	cancelled bool
}

// New creates a spinner model that runs job with ctx. cancel is called
// when the user presses a cancel key.
func New(ctx context.Context, cancel context.CancelFunc, label string, job Job) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.SpinnerStyle

	return Model{
		label:   label,
		spinner: sp,
		help:    help.New(),
		keys:    keys.DefaultKeyMap(),
		ctx:     ctx,
		cancel:  cancel,
		job:     job,
	}
}

// Init starts the spinner and the job.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runJob())
}

func (m Model) runJob() tea.Cmd {
	ctx, job := m.ctx, m.job
	return func() tea.Msg {
		return jobDoneMsg{err: job(ctx)}
	}
}

// Update handles messages for the spinner view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case jobDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		// The job sees the cancellation and reports back through jobDoneMsg.
		if key.Matches(msg, m.keys.Cancel) && !m.cancelled {
			m.cancelled = true
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner line.
func (m Model) View() string {
	if m.done {
		return ""
	}
	if m.cancelled {
		return fmt.Sprintf("%s %s\n", m.spinner.View(), theme.HelpStyle.Render("cancelling..."))
	}
	return fmt.Sprintf("%s %s  %s\n", m.spinner.View(), m.label, m.help.View(m.keys))
}

// Err returns the job's error once it has finished.
func (m Model) Err() error {
	return m.err
}

// Cancelled reports whether the user asked to cancel.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Run executes job, showing a spinner labelled label on out when both in
// and out are terminals. Otherwise the job runs silently.
func Run(ctx context.Context, in io.Reader, out io.Writer, label string, job Job) error {
	if !ui.IsTerminal(in) || !ui.IsTerminal(out) {
		return job(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, cancel, label, job), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running progress view: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return fmt.Errorf("running progress view: unexpected model %T", final)
	}
	return m.Err()
}
