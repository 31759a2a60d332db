package progress

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestModel_JobDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobErr := errors.New("boom")
	m := New(ctx, cancel, "Extracting event", func(context.Context) error { return jobErr })
	require.Contains(t, m.View(), "Extracting event")

	next, cmd := m.Update(jobDoneMsg{err: jobErr})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())

	final := next.(Model)
	require.ErrorIs(t, final.Err(), jobErr)
	require.Empty(t, final.View())
}

func TestModel_RunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := false
	m := New(ctx, cancel, "Working", func(context.Context) error {
		ran = true
		return nil
	})

	msg := m.runJob()()
	require.True(t, ran)
	require.Equal(t, jobDoneMsg{}, msg)
}

func TestModel_CancelKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want bool
	}{
		{name: "ctrl+c", key: tea.KeyMsg{Type: tea.KeyCtrlC}, want: true},
		{name: "esc", key: tea.KeyMsg{Type: tea.KeyEsc}, want: true},
		{name: "other key", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			m := New(ctx, cancel, "Working", func(context.Context) error { return nil })
			next, cmd := m.Update(tt.key)
			require.Nil(t, cmd)

			final := next.(Model)
			require.Equal(t, tt.want, final.Cancelled())
			require.Equal(t, tt.want, ctx.Err() != nil)
			if tt.want {
				require.Contains(t, final.View(), "cancelling")
			}
		})
	}
}

func TestRun_WithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	jobErr := errors.New("model down")

	err := Run(context.Background(), nil, &out, "Extracting", func(context.Context) error { return jobErr })
	require.ErrorIs(t, err, jobErr)
	require.Empty(t, out.String())

	err = Run(context.Background(), nil, &out, "Extracting", func(context.Context) error { return nil })
	require.NoError(t, err)
}
