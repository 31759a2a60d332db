package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailextract/internal/caldate"
	"github.com/nhle/mailextract/internal/jsonextract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/schema"
)

// finish controls the differences between the single-item and the array
// flows when records are finished.
type finish struct {
	// advanceYears moves past years into the current one. Only the
	// single-item flow sets it; array items keep the email's years.
	advanceYears bool

	// title replaces a missing summary.
	title string
}

// eventRecord finishes one event.
func (e *Extractor) eventRecord(
	req model.ExtractionRequest,
	obj map[string]any,
	now time.Time,
	opts finish,
) (model.EventRecord, error) {
	f, err := decodeEvent(obj)
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("event: %w: %v", ErrInvalidRecord, err)
	}

	summary := strings.TrimSpace(f.Summary)
	if summary == "" {
		summary = strings.TrimSpace(opts.title)
	}
	if summary == "" {
		return model.EventRecord{}, fmt.Errorf("event has no title: %w", ErrEmptyResult)
	}

	start := e.date("startDate", f.StartDate)
	end := e.date("endDate", f.EndDate)
	if start == "" {
		return model.EventRecord{}, fmt.Errorf("event has no start date: %w", ErrEmptyResult)
	}

	if opts.advanceYears {
		start, end = advanceRange(start, end, now)
	}
	if end != "" && end < start {
		e.logger.Warn("dropping end date before start", "start", start, "end", end)
		end = ""
	}

	allDay := !caldate.HasTime(f.StartDate)
	if f.ForceAllDay != nil {
		allDay = *f.ForceAllDay
	}
	if allDay && end != "" && !caldate.SameDay(start, end) {
		end = caldate.AddDays(end, 1)
	}

	rec := model.EventRecord{
		Summary:      summary,
		StartDate:    start,
		EndDate:      end,
		ForceAllDay:  allDay,
		Attendees:    e.attendees(req, f.Attendees),
		Description:  e.description(req, f.Description),
		Category:     matchCategory(f.Category, req.Hints.Categories),
		CalendarName: e.settings.CalendarName,
	}
	if err := validate(schema.Event, rec); err != nil {
		return model.EventRecord{}, fmt.Errorf("event: %w", err)
	}
	return rec, nil
}

// taskRecord finishes one task.
func (e *Extractor) taskRecord(
	req model.ExtractionRequest,
	obj map[string]any,
	now time.Time,
	opts finish,
) (model.TaskRecord, error) {
	f, err := decodeTask(obj)
	if err != nil {
		return model.TaskRecord{}, fmt.Errorf("task: %w: %v", ErrInvalidRecord, err)
	}

	summary := strings.TrimSpace(f.Summary)
	if summary == "" {
		summary = strings.TrimSpace(opts.title)
	}
	if summary == "" {
		return model.TaskRecord{}, fmt.Errorf("task has no title: %w", ErrEmptyResult)
	}

	due := e.date("dueDate", f.DueDate)
	initial := e.date("initialDate", f.InitialDate)
	if opts.advanceYears {
		due = caldate.AdvanceYear(due, now)
		initial = caldate.AdvanceYear(initial, now)
	}

	allDay := !caldate.HasTime(f.DueDate) && !caldate.HasTime(f.InitialDate)
	if f.ForceAllDay != nil {
		allDay = *f.ForceAllDay
	}

	if due == "" && e.settings.DueDateRequired {
		due = caldate.AddDays(caldate.Today(now), e.settings.DueDateOffsetDays)
		if f.ForceAllDay == nil {
			allDay = true
		}
		e.logger.Debug("applied fallback due date", "due", due)
	}

	rec := model.TaskRecord{
		Summary:      summary,
		DueDate:      due,
		InitialDate:  initial,
		ForceAllDay:  allDay,
		Description:  e.description(req, f.Description),
		Category:     matchCategory(f.Category, req.Hints.Categories),
		CalendarName: e.settings.CalendarName,
	}
	if err := validate(schema.Task, rec); err != nil {
		return model.TaskRecord{}, fmt.Errorf("task: %w", err)
	}
	return rec, nil
}

// contactRecord finishes one contact. Only field names are reconciled.
func (e *Extractor) contactRecord(obj map[string]any) (model.ContactRecord, error) {
	f, err := decodeContact(obj)
	if err != nil {
		return model.ContactRecord{}, fmt.Errorf("contact: %w: %v", ErrInvalidRecord, err)
	}

	first, last := strings.TrimSpace(f.FirstName), strings.TrimSpace(f.LastName)
	if first == "" && last == "" {
		first, last = splitName(f.FullName)
	}

	email := ""
	if raw := strings.TrimSpace(f.Email); raw != "" {
		if addr, err := mail.ParseAddress(raw); err == nil {
			email = addr.Address
		} else {
			e.logger.Warn("dropping unparseable contact email", "value", raw)
		}
	}

	rec := model.ContactRecord{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     strings.TrimSpace(f.Phone),
		Company:   strings.TrimSpace(f.Company),
		Title:     strings.TrimSpace(f.Title),
		Website:   strings.TrimSpace(f.Website),
	}
	if rec.IsEmpty() {
		return model.ContactRecord{}, fmt.Errorf("contact: %w", ErrEmptyResult)
	}
	if err := validate(schema.Contact, rec); err != nil {
		return model.ContactRecord{}, fmt.Errorf("contact: %w", err)
	}
	return rec, nil
}

// analysis builds the Stage-1 overview. Dates are passed through untouched.
func (e *Extractor) analysis(obj map[string]any) (*model.Analysis, error) {
	m, _ := analysisFieldSet.coalesce(obj)

	summary, _ := flattenScalar(m["summary"]).(string)
	events, skippedEvents := decodeCandidates(m["events"])
	tasks, skippedTasks := decodeCandidates(m["tasks"])
	contacts, skippedContacts := decodeCandidates(m["contacts"])

	if skipped := skippedEvents + skippedTasks + skippedContacts; skipped > 0 {
		e.logger.Warn("skipped analysis items without a preview", "count", skipped)
	}

	a := &model.Analysis{
		Summary:  strings.TrimSpace(summary),
		Events:   events,
		Tasks:    tasks,
		Contacts: contacts,
	}
	if a.IsEmpty() {
		return nil, fmt.Errorf("analysis: %w", ErrEmptyResult)
	}
	if err := validate(schema.Analysis, a); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	return a, nil
}

// runArray handles a Stage-2 re-extraction. A response that cannot be
// recovered yields an empty collection instead of an error.
func (e *Extractor) runArray(req model.ExtractionRequest, raw string, now time.Time, res *Result) error {
	out := &model.ArrayResult{Kind: req.Kind}
	res.Array = out

	var doc any
	payload, err := jsonextract.ExtractArray(raw)
	if err == nil {
		err = json.Unmarshal([]byte(payload), &doc)
	}
	if err != nil {
		fixed, ok := jsonextract.Repair(raw)
		if !ok {
			e.logger.Warn("array response could not be repaired, returning no items",
				"kind", req.Kind, "error", err)
			res.machine.advance(StateResponseExtracted)
			return nil
		}
		if err := json.Unmarshal([]byte(fixed), &doc); err != nil {
			e.logger.Warn("repaired array response is not valid JSON, returning no items",
				"kind", req.Kind, "error", err)
			res.machine.advance(StateResponseExtracted)
			return nil
		}
		e.logger.Info("repaired array response", "kind", req.Kind, "error", err)
		out.Repaired = true
	}
	res.machine.advance(StateResponseExtracted)

	selected := req.SelectedCandidates()
	items := arrayItems(doc, req.Kind)

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			e.logger.Warn("skipping array item that is not an object", "kind", req.Kind, "index", i)
			continue
		}

		// Each record falls back to the preview the user picked.
		opts := finish{}
		if i < len(selected) {
			opts.title = selected[i].Preview
		}

		var err error
		switch req.Kind {
		case model.KindArrayEvent:
			var rec model.EventRecord
			if rec, err = e.eventRecord(req, obj, now, opts); err == nil {
				out.Events = append(out.Events, rec)
			}
		case model.KindArrayTask:
			var rec model.TaskRecord
			if rec, err = e.taskRecord(req, obj, now, opts); err == nil {
				out.Tasks = append(out.Tasks, rec)
			}
		case model.KindArrayContact:
			var rec model.ContactRecord
			if rec, err = e.contactRecord(obj); err == nil {
				out.Contacts = append(out.Contacts, rec)
			}
		}
		if err != nil {
			e.logger.Warn("skipping array item", "kind", req.Kind, "index", i, "error", err)
		}
	}
	return nil
}

// arrayItems finds the item list in an array response, which may be a
// bare array or an object keyed by the record kind.
func arrayItems(doc any, kind model.TaskKind) []any {
	switch val := doc.(type) {
	case []any:
		return val
	case map[string]any:
		key := "events"
		switch kind {
		case model.KindArrayTask:
			key = "tasks"
		case model.KindArrayContact:
			key = "contacts"
		}
		lower := make(map[string]any, len(val))
		for k, v := range val {
			lower[strings.ToLower(k)] = v
		}
		for _, alias := range arrayKeys[key] {
			if list, ok := lower[strings.ToLower(alias)].([]any); ok {
				return list
			}
		}
		// A single record without a container.
		return []any{val}
	}
	return nil
}

// date normalizes a raw model date, dropping it when it is not a real
// calendar timestamp afterwards.
func (e *Extractor) date(field, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ts := caldate.Normalize(raw)
	if !caldate.Valid(ts) {
		e.logger.Warn("dropping unparseable date", "field", field, "value", raw)
		return ""
	}
	return ts
}

// advanceRange moves start into the reference year and shifts end by the
// same number of years, keeping the event's duration.
func advanceRange(start, end string, now time.Time) (string, string) {
	advanced := caldate.AdvanceYear(start, now)
	if advanced == start {
		return start, caldate.AdvanceYear(end, now)
	}
	if end == "" {
		return advanced, ""
	}

	from, err1 := caldate.Parse(start)
	to, err2 := caldate.Parse(advanced)
	endTime, err3 := caldate.Parse(end)
	if err := errors.Join(err1, err2, err3); err != nil {
		return advanced, caldate.AdvanceYear(end, now)
	}
	return advanced, caldate.Format(endTime.AddDate(to.Year()-from.Year(), 0, 0))
}

// attendees resolves the attendee list according to the configured source.
func (e *Extractor) attendees(req model.ExtractionRequest, fromModel []string) []string {
	var raw []string
	switch e.settings.AttendeeSource {
	case model.AttendeesFromOnly:
		raw = []string{req.Author}
	case model.AttendeesToOnly:
		raw = req.Recipients
	case model.AttendeesStatic:
		raw = e.settings.StaticAttendees
	case model.AttendeesNone:
		raw = nil
	default:
		raw = fromModel
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, a := range raw {
		addr := bareAddress(a)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	return out
}

// description returns the model's narrative when one was requested and
// given, otherwise the email body, optionally headed by From and Subject.
func (e *Extractor) description(req model.ExtractionRequest, fromModel string) string {
	if req.Hints.AISummary {
		if s := strings.TrimSpace(fromModel); s != "" {
			return s
		}
	}

	body := strings.TrimSpace(req.EmailBody)
	if !e.settings.IncludeHeaders {
		return body
	}

	var sb strings.Builder
	if req.Author != "" {
		sb.WriteString("From: ")
		sb.WriteString(req.Author)
		sb.WriteString("\n")
	}
	if req.Subject != "" {
		sb.WriteString("Subject: ")
		sb.WriteString(req.Subject)
		sb.WriteString("\n")
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(body)
	return sb.String()
}

// matchCategory returns the allowed category equal to got, ignoring case.
// Without an allowed list the model's answer is kept as is.
func matchCategory(got string, allowed []string) string {
	got = strings.TrimSpace(got)
	if len(allowed) == 0 || got == "" {
		return got
	}
	for _, c := range allowed {
		if strings.EqualFold(c, got) {
			return c
		}
	}
	return ""
}

// bareAddress reduces "Name <addr>" to addr. Text that does not parse as
// an address is kept trimmed, unless it is empty.
func bareAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr.Address
	}
	return s
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
