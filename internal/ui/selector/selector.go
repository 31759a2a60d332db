// Package selector asks the user which of the detected items to extract.
package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/ui"
)

const untitled = "(untitled)"

// Form is an extract.Selector backed by a huh multi-select form.
type Form struct {
	in         io.Reader
	out        io.Writer
	accessible bool
}

// New creates a form selector reading from in and drawing on out. Input
// that is not a terminal switches the form to accessible mode.
func New(in io.Reader, out io.Writer) *Form {
	return &Form{
		in:         in,
		out:        out,
		accessible: !ui.IsTerminal(in),
	}
}

// Select shows one multi-select per kind with candidates. Aborting the
// form cancels the session.
func (f *Form) Select(ctx context.Context, analysis *model.Analysis) (extract.Selection, error) {
	var sel extract.Selection

	fields := Fields(analysis, &sel)
	if len(fields) == 0 {
		return sel, nil
	}

	form := huh.NewForm(huh.NewGroup(fields...)).
		WithInput(f.in).
		WithOutput(f.out).
		WithAccessible(f.accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return extract.Selection{}, fmt.Errorf("selecting items: %w", extract.ErrSessionCancelled)
		}
		return extract.Selection{}, fmt.Errorf("selecting items: %w", err)
	}

	return sel, nil
}

// Fields builds the form fields for analysis, binding each multi-select
// to the matching slice of sel. Kinds without candidates get no field.
func Fields(analysis *model.Analysis, sel *extract.Selection) []huh.Field {
	if analysis.IsEmpty() {
		return nil
	}

	var fields []huh.Field
	if analysis.Summary != "" {
		fields = append(fields, huh.NewNote().
			Title("Summary").
			Description(analysis.Summary))
	}

	groups := []struct {
		title string
		items []model.CandidateItem
		value *[]int
	}{
		{title: "Events", items: analysis.Events, value: &sel.Events},
		{title: "Tasks", items: analysis.Tasks, value: &sel.Tasks},
		{title: "Contacts", items: analysis.Contacts, value: &sel.Contacts},
	}
	for _, g := range groups {
		if len(g.items) == 0 {
			continue
		}
		fields = append(fields, huh.NewMultiSelect[int]().
			Title(g.title).
			Options(Options(g.items)...).
			Value(g.value))
	}

	return fields
}

// Options turns candidates into form options keyed by their index.
func Options(items []model.CandidateItem) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(items))
	for i, item := range items {
		label := strings.TrimSpace(item.Preview)
		if label == "" {
			label = untitled
		}
		opts = append(opts, huh.NewOption(label, i))
	}
	return opts
}

// All selects every candidate without asking. It is used when no
// terminal is available or the user asked for everything up front.
func All(_ context.Context, analysis *model.Analysis) (extract.Selection, error) {
	var sel extract.Selection
	if analysis == nil {
		return sel, nil
	}
	sel.Events = indices(len(analysis.Events))
	sel.Tasks = indices(len(analysis.Tasks))
	sel.Contacts = indices(len(analysis.Contacts))
	return sel, nil
}

func indices(n int) []int {
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
