package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/source"
	"github.com/nhle/mailextract/internal/theme"
)

// Format selects how results are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user-supplied output format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// resultView is the serialized shape of one result.
type resultView struct {
	Kind     model.TaskKind       `json:"kind" yaml:"kind"`
	State    string               `json:"state" yaml:"state"`
	Event    *model.EventRecord   `json:"event,omitempty" yaml:"event,omitempty"`
	Task     *model.TaskRecord    `json:"task,omitempty" yaml:"task,omitempty"`
	Contact  *model.ContactRecord `json:"contact,omitempty" yaml:"contact,omitempty"`
	Analysis *model.Analysis      `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Array    *model.ArrayResult   `json:"array,omitempty" yaml:"array,omitempty"`
	Text     string               `json:"text,omitempty" yaml:"text,omitempty"`
}

func viewOf(res *extract.Result) resultView {
	return resultView{
		Kind:     res.Kind,
		State:    res.State().String(),
		Event:    res.Event,
		Task:     res.Task,
		Contact:  res.Contact,
		Analysis: res.Analysis,
		Array:    res.Array,
		Text:     res.Text,
	}
}

// RenderResults writes results to w. A single result is encoded as an
// object, several as a list.
func RenderResults(w io.Writer, format Format, results []*extract.Result) error {
	if format == FormatText {
		var sb strings.Builder
		for i, res := range results {
			if i > 0 {
				sb.WriteString("\n")
			}
			writeResultText(&sb, res)
		}
		return write(w, sb.String())
	}

	views := make([]resultView, 0, len(results))
	for _, res := range results {
		views = append(views, viewOf(res))
	}
	if len(views) == 1 {
		return encode(w, format, views[0])
	}
	return encode(w, format, views)
}

// RenderReport writes the outcome of the two-stage flow: the Stage-1
// analysis followed by the records extracted for the selection.
func RenderReport(w io.Writer, format Format, analysis *model.Analysis, results []*extract.Result) error {
	if format == FormatText {
		var sb strings.Builder
		if analysis != nil {
			writeAnalysis(&sb, analysis)
		}
		for _, res := range results {
			sb.WriteString("\n")
			writeResultText(&sb, res)
		}
		return write(w, sb.String())
	}

	report := struct {
		Analysis *model.Analysis `json:"analysis" yaml:"analysis"`
		Results  []resultView    `json:"results" yaml:"results"`
	}{
		Analysis: analysis,
		Results:  make([]resultView, 0, len(results)),
	}
	for _, res := range results {
		report.Results = append(report.Results, viewOf(res))
	}
	return encode(w, format, report)
}

// RenderEnvelopes writes an inbox listing to w.
func RenderEnvelopes(w io.Writer, format Format, envelopes []source.Envelope) error {
	if format != FormatText {
		if envelopes == nil {
			envelopes = []source.Envelope{}
		}
		return encode(w, format, envelopes)
	}

	if len(envelopes) == 0 {
		return write(w, theme.HelpStyle.Render("No messages.")+"\n")
	}

	var sb strings.Builder
	for _, env := range envelopes {
		marker := "*"
		if env.Seen {
			marker = " "
		}
		line := fmt.Sprintf("%s %-8d %s  %-30.30s  %s",
			marker, env.UID, env.Date.Format("2006-01-02 15:04"), env.From, env.Subject)
		if env.Seen {
			line = theme.HelpStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return write(w, sb.String())
}

// RenderCategories writes the category list to w.
func RenderCategories(w io.Writer, format Format, categories []string) error {
	if format != FormatText {
		if categories == nil {
			categories = []string{}
		}
		return encode(w, format, categories)
	}

	if len(categories) == 0 {
		return write(w, theme.HelpStyle.Render("No categories.")+"\n")
	}

	var sb strings.Builder
	for i, name := range categories {
		fmt.Fprintf(&sb, "%2d. %s\n", i+1, theme.CategoryStyle.Render(name))
	}
	return write(w, sb.String())
}

func encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func write(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// --- text rendering ---

type row struct {
	label string
	value string
}

func writeResultText(sb *strings.Builder, res *extract.Result) {
	switch {
	case res.Event != nil:
		writeRecord(sb, "Event", eventRows(*res.Event))
	case res.Task != nil:
		writeRecord(sb, "Task", taskRows(*res.Task))
	case res.Contact != nil:
		writeRecord(sb, "Contact", contactRows(*res.Contact))
	case res.Analysis != nil:
		writeAnalysis(sb, res.Analysis)
	case res.Array != nil:
		writeArray(sb, res.Array)
	default:
		title := "Reply"
		if res.Kind == model.KindForwardSummary {
			title = "Summary"
		}
		sb.WriteString(theme.HeaderStyle.Render(title))
		sb.WriteString("\n")
		sb.WriteString(res.Text)
		sb.WriteString("\n")
	}
}

func writeRecord(sb *strings.Builder, title string, rows []row) {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		lines = append(lines, theme.LabelStyle.Render(r.label)+r.value)
	}

	sb.WriteString(theme.HeaderStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(theme.RecordStyle.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n")
}

func eventRows(rec model.EventRecord) []row {
	return []row{
		{"Summary", rec.Summary},
		{"Start", styledDate(rec.StartDate)},
		{"End", styledDate(rec.EndDate)},
		{"All day", yesNo(rec.ForceAllDay)},
		{"Attendees", strings.Join(rec.Attendees, ", ")},
		{"Category", styledCategory(rec.Category)},
		{"Calendar", rec.CalendarName},
		{"Notes", rec.Description},
	}
}

func taskRows(rec model.TaskRecord) []row {
	return []row{
		{"Summary", rec.Summary},
		{"Due", styledDate(rec.DueDate)},
		{"Start", styledDate(rec.InitialDate)},
		{"All day", yesNo(rec.ForceAllDay)},
		{"Category", styledCategory(rec.Category)},
		{"Calendar", rec.CalendarName},
		{"Notes", rec.Description},
	}
}

func contactRows(rec model.ContactRecord) []row {
	return []row{
		{"Name", strings.TrimSpace(rec.FirstName + " " + rec.LastName)},
		{"Email", rec.Email},
		{"Phone", rec.Phone},
		{"Company", rec.Company},
		{"Title", rec.Title},
		{"Website", rec.Website},
	}
}

func writeAnalysis(sb *strings.Builder, a *model.Analysis) {
	sb.WriteString(theme.HeaderStyle.Render("Analysis"))
	sb.WriteString("\n")
	if a.Summary != "" {
		sb.WriteString(a.Summary)
		sb.WriteString("\n")
	}
	for _, g := range []struct {
		title string
		items []model.CandidateItem
	}{
		{"Events", a.Events},
		{"Tasks", a.Tasks},
		{"Contacts", a.Contacts},
	} {
		if len(g.items) == 0 {
			continue
		}
		sb.WriteString(theme.LabelStyle.Render(g.title))
		sb.WriteString("\n")
		for i, item := range g.items {
			fmt.Fprintf(sb, "  %d. %s\n", i+1, item.Preview)
		}
	}
}

func writeArray(sb *strings.Builder, r *model.ArrayResult) {
	if r.Len() == 0 {
		sb.WriteString(theme.HelpStyle.Render("No items could be extracted."))
		sb.WriteString("\n")
		return
	}
	for _, rec := range r.Events {
		writeRecord(sb, "Event", eventRows(rec))
	}
	for _, rec := range r.Tasks {
		writeRecord(sb, "Task", taskRows(rec))
	}
	for _, rec := range r.Contacts {
		writeRecord(sb, "Contact", contactRows(rec))
	}
	if r.Repaired {
		sb.WriteString(theme.NoticeStyle(theme.LevelWarning).Render("Response was truncated; some items may be missing."))
		sb.WriteString("\n")
	}
}

func styledDate(s string) string {
	if s == "" {
		return ""
	}
	return theme.DateStyle.Render(s)
}

func styledCategory(s string) string {
	if s == "" {
		return ""
	}
	return theme.CategoryStyle.Render(s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
