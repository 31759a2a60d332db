// Package prompt composes the instructions sent to the model for each
// extraction kind.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/mailextract/internal/caldate"
	"github.com/nhle/mailextract/internal/model"
)

// sentLayout is how the email's own date is shown to the model.
const sentLayout = "Monday, January 2, 2006 15:04"

const jsonOnly = "Respond with ONLY a valid JSON object. " +
	"Do not wrap it in Markdown, do not add any text before or after it, " +
	"and do not explain your answer.\n"

const dateRules = `Date rules:
- Write dates with a time as YYYY-MM-DDTHH:MM:SS in the email's local time.
- Write dates without a time as YYYY-MM-DD and set "forceAllDay" to true.
- Resolve relative dates ("tomorrow", "next Friday") against today's date.
- If the email gives no year, use the next occurrence on or after today's date.
`

const eventFields = `{
  "summary": string,       // short title of the event
  "startDate": string,     // start date and time
  "endDate": string,       // end date and time, "" if unknown
  "forceAllDay": boolean,  // true when no time of day is given
  "attendees": [string],   // email addresses of the participants
  "description": string,
  "category": string
}`

const taskFields = `{
  "summary": string,       // short imperative title of the task
  "dueDate": string,       // deadline, "" if none is given
  "initialDate": string,   // when work can start, "" if not given
  "forceAllDay": boolean,  // true when no time of day is given
  "description": string,
  "category": string
}`

const contactFields = `{
  "firstName": string,
  "lastName": string,
  "email": string,
  "phone": string,
  "company": string,
  "title": string,         // job title
  "website": string
}`

// Builder renders prompts relative to a fixed current date.
type Builder struct {
	// Now is the reference "today" given to the model. It comes from the
	// clock at the time of the action, never from the email's sent date.
	Now time.Time
}

// New returns a Builder anchored at now.
func New(now time.Time) *Builder {
	return &Builder{Now: now}
}

// Build dispatches on req.Kind.
func (b *Builder) Build(req model.ExtractionRequest) (string, error) {
	switch req.Kind {
	case model.KindEvent:
		return b.Event(req), nil
	case model.KindTask:
		return b.Task(req), nil
	case model.KindReply:
		return b.Reply(req), nil
	case model.KindForwardSummary:
		return b.ForwardSummary(req), nil
	case model.KindContact:
		return b.Contact(req), nil
	case model.KindAnalysis:
		return b.Analysis(req), nil
	case model.KindArrayEvent, model.KindArrayTask, model.KindArrayContact:
		return b.ArrayExtraction(req), nil
	default:
		return "", fmt.Errorf("building prompt: unknown task kind %q", req.Kind)
	}
}

// Event asks for a single calendar event.
func (b *Builder) Event(req model.ExtractionRequest) string {
	var sb strings.Builder

	sb.WriteString("Extract the calendar event described in the email below.\n\n")
	b.writeToday(&sb)
	sb.WriteString(dateRules)
	sb.WriteString("\n")

	if len(req.Hints.Attendees) > 0 {
		sb.WriteString("Known participant addresses: ")
		sb.WriteString(strings.Join(req.Hints.Attendees, ", "))
		sb.WriteString("\n\n")
	}
	writeDescriptionRule(&sb, req.Hints.AISummary, "event")
	writeCategories(&sb, req.Hints.Categories)

	sb.WriteString("Return this JSON structure:\n")
	sb.WriteString(eventFields)
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnly)
	sb.WriteString("\n")
	writeEmail(&sb, req)

	return sb.String()
}

// Task asks for a single to-do item.
func (b *Builder) Task(req model.ExtractionRequest) string {
	var sb strings.Builder

	sb.WriteString("Extract the task or action item the recipient has to ")
	sb.WriteString("complete from the email below.\n\n")
	b.writeToday(&sb)
	sb.WriteString(dateRules)
	sb.WriteString("\n")

	writeDescriptionRule(&sb, req.Hints.AISummary, "task")
	writeCategories(&sb, req.Hints.Categories)

	sb.WriteString("Return this JSON structure:\n")
	sb.WriteString(taskFields)
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnly)
	sb.WriteString("\n")
	writeEmail(&sb, req)

	return sb.String()
}

// Reply asks for a reply draft.
func (b *Builder) Reply(req model.ExtractionRequest) string {
	var sb strings.Builder

	sb.WriteString("Write a reply to the email below on behalf of its recipient. ")
	sb.WriteString("Answer every question it asks, keep the tone of the original ")
	sb.WriteString("and do not invent facts or commitments.\n\n")
	b.writeToday(&sb)
	sb.WriteString("\n")

	sb.WriteString("Return this JSON structure:\n")
	sb.WriteString(`{"body": string}`)
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnly)
	sb.WriteString("\n")
	writeEmail(&sb, req)

	return sb.String()
}

// ForwardSummary asks for a summary to put on top of a forwarded email.
func (b *Builder) ForwardSummary(req model.ExtractionRequest) string {
	var sb strings.Builder

	sb.WriteString("Summarize the email below for someone it is being forwarded to. ")
	sb.WriteString("Cover the main topic, decisions, requests and deadlines ")
	sb.WriteString("in a few sentences.\n\n")
	b.writeToday(&sb)
	sb.WriteString("\n")

	sb.WriteString("Return this JSON structure:\n")
	sb.WriteString(`{"summary": string}`)
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnly)
	sb.WriteString("\n")
	writeEmail(&sb, req)

	return sb.String()
}

// Contact asks for the sender's contact details, usually from a signature.
func (b *Builder) Contact(req model.ExtractionRequest) string {
	var sb strings.Builder

	sb.WriteString("Extract the contact details of the person who wrote the email ")
	sb.WriteString("below, using its signature and headers.\n\n")
	b.writeToday(&sb)
	sb.WriteString("Every field is optional. Use \"\" for anything the email ")
	sb.WriteString("does not state.\n\n")

	sb.WriteString("Return this JSON structure:\n")
	sb.WriteString(contactFields)
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnly)
	sb.WriteString("\n")
	writeEmail(&sb, req)

	return sb.String()
}

// Analysis asks for an overview of the email plus previews of every event,
// task and contact it mentions.
func (b *Builder) Analysis(req model.ExtractionRequest) string {
	var sb strings.Builder

	sb.WriteString("Analyze the email below. Write a short summary and list every ")
	sb.WriteString("calendar event, task and contact it mentions.\n\n")
	b.writeToday(&sb)
	sb.WriteString("IMPORTANT: keep every date exactly as written in the email, ")
	sb.WriteString("including its year. Do not recalculate dates relative to ")
	sb.WriteString("today and do not move past dates into the future.\n\n")

	sb.WriteString("Each preview is one line a person can recognise the item by, ")
	sb.WriteString("with its date when the email gives one. Use empty arrays when ")
	sb.WriteString("nothing of a kind is mentioned.\n\n")

	sb.WriteString("Return this JSON structure:\n")
	sb.WriteString(`{
  "summary": string,
  "events": [{"preview": string}],
  "tasks": [{"preview": string}],
  "contacts": [{"preview": string}]
}`)
	sb.WriteString("\n\n")
	sb.WriteString(jsonOnly)
	sb.WriteString("\n")
	writeEmail(&sb, req)

	return sb.String()
}

// ArrayExtraction asks for full records for the previews the user selected
// after an analysis, one record per preview and in the same order.
func (b *Builder) ArrayExtraction(req model.ExtractionRequest) string {
	var (
		sb     strings.Builder
		noun   string
		key    string
		fields string
	)
	switch req.Kind {
	case model.KindArrayTask:
		noun, key, fields = "task", "tasks", taskFields
	case model.KindArrayContact:
		noun, key, fields = "contact", "contacts", contactFields
	default:
		noun, key, fields = "calendar event", "events", eventFields
	}

	selected := req.SelectedCandidates()

	sb.WriteString(fmt.Sprintf(
		"The email below was analyzed earlier. Extract a complete %s record ", noun,
	))
	sb.WriteString("for each of the following items, in this order:\n")
	for i, item := range selected {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Preview))
	}
	sb.WriteString("\n")

	b.writeToday(&sb)
	if key != "contacts" {
		sb.WriteString("IMPORTANT: keep every date exactly as written in the email, ")
		sb.WriteString("including its year.\n")
		sb.WriteString("Write dates with a time as YYYY-MM-DDTHH:MM:SS and dates ")
		sb.WriteString("without a time as YYYY-MM-DD with \"forceAllDay\" set to true.\n\n")
		writeCategories(&sb, req.Hints.Categories)
	}

	sb.WriteString(fmt.Sprintf(
		"Return exactly %d item(s) in this JSON structure:\n", len(selected),
	))
	sb.WriteString(fmt.Sprintf("{\n  %q: [\n", key))
	sb.WriteString(indent(fields, "    "))
	sb.WriteString("\n  ]\n}\n\n")
	sb.WriteString(jsonOnly)
	sb.WriteString("\n")
	writeEmail(&sb, req)

	return sb.String()
}

func (b *Builder) writeToday(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf(
		"Today's date is %s (%s).\n",
		caldate.ReferenceDate(b.Now), b.Now.Weekday(),
	))
}

func writeDescriptionRule(sb *strings.Builder, aiSummary bool, noun string) {
	if aiSummary {
		sb.WriteString(fmt.Sprintf(
			"Set \"description\" to a short narrative summary of the %s, "+
				"written for someone who has not read the email.\n\n", noun,
		))
		return
	}
	sb.WriteString("Set \"description\" to \"\".\n\n")
}

// writeCategories appends the category-selection rule. Nothing is written
// when no categories are configured.
func writeCategories(sb *strings.Builder, categories []string) {
	if len(categories) == 0 {
		return
	}

	quoted := make([]string, len(categories))
	for i, c := range categories {
		quoted[i] = fmt.Sprintf("%q", c)
	}

	sb.WriteString("Choose \"category\" from this list: ")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(".\n")
	sb.WriteString("Prefer the most specific category that matches. Fall back ")
	sb.WriteString("to a generic category only if nothing specific applies. ")
	sb.WriteString("Use \"\" if no category fits.\n\n")
}

func writeEmail(sb *strings.Builder, req model.ExtractionRequest) {
	sb.WriteString("Email:\n")
	if req.Subject != "" {
		sb.WriteString(fmt.Sprintf("Subject: %s\n", req.Subject))
	}
	if req.Author != "" {
		sb.WriteString(fmt.Sprintf("From: %s\n", req.Author))
	}
	if len(req.Recipients) > 0 {
		sb.WriteString(fmt.Sprintf("To: %s\n", strings.Join(req.Recipients, ", ")))
	}
	if !req.SentAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Date: %s\n", req.SentAt.Format(sentLayout)))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(req.EmailBody))
	sb.WriteString("\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
