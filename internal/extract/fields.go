package extract

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/nhle/mailextract/internal/model"
)

// field maps one canonical key to the names models use for it. Aliases
// are matched case-insensitively, in order; the canonical name is always
// tried first.
type field struct {
	name    string
	aliases []string
	list    bool
}

// fieldSet is the alias table of one record shape.
type fieldSet []field

var (
	eventFieldSet = fieldSet{
		{name: "summary", aliases: []string{"title", "name", "subject", "event", "eventName"}},
		{name: "startDate", aliases: []string{"start", "start_date", "dtstart", "startDateTime", "startTime", "start_time", "date", "when"}},
		{name: "endDate", aliases: []string{"end", "end_date", "dtend", "endDateTime", "endTime", "end_time"}},
		{name: "forceAllDay", aliases: []string{"allDay", "all_day", "isAllDay", "allday", "force_all_day"}},
		{name: "attendees", aliases: []string{"participants", "invitees", "guests", "attendee"}, list: true},
		{name: "description", aliases: []string{"details", "notes", "body"}},
		{name: "category", aliases: []string{"categories", "label"}},
	}

	taskFieldSet = fieldSet{
		{name: "summary", aliases: []string{"title", "name", "task", "subject", "action"}},
		{name: "dueDate", aliases: []string{"due", "due_date", "deadline", "dueDateTime", "date", "dtdue"}},
		{name: "initialDate", aliases: []string{"initial_date", "startDate", "start", "start_date", "dtstart"}},
		{name: "forceAllDay", aliases: []string{"allDay", "all_day", "isAllDay", "allday", "force_all_day"}},
		{name: "description", aliases: []string{"details", "notes", "body"}},
		{name: "category", aliases: []string{"categories", "label"}},
	}

	contactFieldSet = fieldSet{
		{name: "firstName", aliases: []string{"first_name", "givenName", "given_name", "first", "firstname"}},
		{name: "lastName", aliases: []string{"last_name", "familyName", "family_name", "surname", "last", "lastname"}},
		{name: "fullName", aliases: []string{"name", "full_name", "displayName", "display_name"}},
		{name: "email", aliases: []string{"emailAddress", "email_address", "mail", "e-mail"}},
		{name: "phone", aliases: []string{"phoneNumber", "phone_number", "telephone", "mobile", "tel", "cell"}},
		{name: "company", aliases: []string{"organization", "organisation", "org", "employer", "companyName"}},
		{name: "title", aliases: []string{"jobTitle", "job_title", "position", "role"}},
		{name: "website", aliases: []string{"url", "homepage", "web", "site"}},
	}

	// previewFieldSet names the one line a candidate is shown by.
	previewFieldSet = fieldSet{
		{name: "preview", aliases: []string{"title", "name", "summary", "description", "text"}},
	}

	replyFieldSet = fieldSet{
		{name: "body", aliases: []string{"reply", "text", "content", "message", "draft"}},
	}

	summaryFieldSet = fieldSet{
		{name: "summary", aliases: []string{"text", "content", "body", "overview"}},
	}

	analysisFieldSet = fieldSet{
		{name: "summary", aliases: []string{"overview", "abstract"}},
		{name: "events", aliases: []string{"calendarEvents", "calendar_events", "meetings"}, list: true},
		{name: "tasks", aliases: []string{"todos", "actionItems", "action_items", "todo"}, list: true},
		{name: "contacts", aliases: []string{"people", "persons"}, list: true},
	}
)

// arrayKeys lists the container keys an array re-extraction may use.
var arrayKeys = map[string][]string{
	"events":   {"events", "calendarEvents", "calendar_events", "items", "results"},
	"tasks":    {"tasks", "todos", "actionItems", "action_items", "items", "results"},
	"contacts": {"contacts", "people", "persons", "items", "results"},
}

// coalesce returns a map holding the canonical keys of fs and a map of
// every input key no alias claimed. Empty strings and nulls do not count
// as present, so a later alias with a value wins over an empty earlier one.
func (fs fieldSet) coalesce(in map[string]any) (map[string]any, map[string]any) {
	lower := make(map[string]string, len(in))
	for k := range in {
		lower[strings.ToLower(k)] = k
	}

	out := make(map[string]any, len(fs))
	claimed := make(map[string]bool, len(in))

	for _, f := range fs {
		for _, alias := range append([]string{f.name}, f.aliases...) {
			key, ok := lower[strings.ToLower(alias)]
			if !ok || claimed[key] {
				continue
			}
			v := in[key]
			if isBlank(v) {
				claimed[key] = true
				continue
			}
			if !f.list {
				v = flattenScalar(v)
			}
			out[f.name] = v
			claimed[key] = true
			break
		}
	}

	extra := make(map[string]any)
	for k, v := range in {
		if !claimed[k] {
			extra[k] = v
		}
	}
	return out, extra
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

// flattenScalar turns a list into a comma-separated string so scalar
// fields survive models that answer ["Work"] for a category.
func flattenScalar(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if item == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// decode copies a coalesced map into out. Input is weakly typed, so
// "true" decodes into a bool and 42 into a string.
func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decoding fields: %w", err)
	}
	return nil
}

// addressList flattens whatever the model gave for a list of people into
// strings: plain strings, comma or semicolon separated strings, or
// objects carrying an email (or, failing that, a name).
func addressList(v any) []string {
	var out []string
	switch val := v.(type) {
	case string:
		for _, part := range strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ';' }) {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range val {
			out = append(out, addressList(item)...)
		}
	case []string:
		for _, item := range val {
			out = append(out, addressList(item)...)
		}
	case map[string]any:
		person, _ := contactFieldSet.coalesce(val)
		if email, ok := person["email"].(string); ok {
			out = append(out, strings.TrimSpace(email))
		} else if name, ok := person["fullName"].(string); ok {
			out = append(out, strings.TrimSpace(name))
		}
	}
	return out
}

// eventFields is the decoded shape of a single event before
// post-processing. ForceAllDay is nil when the model omitted it.
type eventFields struct {
	Summary     string   `mapstructure:"summary"`
	StartDate   string   `mapstructure:"startDate"`
	EndDate     string   `mapstructure:"endDate"`
	ForceAllDay *bool    `mapstructure:"forceAllDay"`
	Attendees   []string `mapstructure:"-"`
	Description string   `mapstructure:"description"`
	Category    string   `mapstructure:"category"`
}

// taskFields is the decoded shape of a single task before post-processing.
type taskFields struct {
	Summary     string `mapstructure:"summary"`
	DueDate     string `mapstructure:"dueDate"`
	InitialDate string `mapstructure:"initialDate"`
	ForceAllDay *bool  `mapstructure:"forceAllDay"`
	Description string `mapstructure:"description"`
	Category    string `mapstructure:"category"`
}

// contactFields adds the combined name some models return instead of
// separate first and last names.
type contactFields struct {
	FirstName string `mapstructure:"firstName"`
	LastName  string `mapstructure:"lastName"`
	FullName  string `mapstructure:"fullName"`
	Email     string `mapstructure:"email"`
	Phone     string `mapstructure:"phone"`
	Company   string `mapstructure:"company"`
	Title     string `mapstructure:"title"`
	Website   string `mapstructure:"website"`
}

func decodeEvent(in map[string]any) (eventFields, error) {
	m, _ := eventFieldSet.coalesce(in)
	attendees := addressList(m["attendees"])
	delete(m, "attendees")

	var f eventFields
	if err := decode(m, &f); err != nil {
		return eventFields{}, err
	}
	f.Attendees = attendees
	return f, nil
}

func decodeTask(in map[string]any) (taskFields, error) {
	m, _ := taskFieldSet.coalesce(in)

	var f taskFields
	if err := decode(m, &f); err != nil {
		return taskFields{}, err
	}
	return f, nil
}

func decodeContact(in map[string]any) (contactFields, error) {
	m, _ := contactFieldSet.coalesce(in)

	var f contactFields
	if err := decode(m, &f); err != nil {
		return contactFields{}, err
	}
	return f, nil
}

// decodeText returns the single free-text field of a reply or summary.
func decodeText(fs fieldSet, in map[string]any) string {
	m, _ := fs.coalesce(in)
	s, _ := flattenScalar(m[fs[0].name]).(string)
	return strings.TrimSpace(s)
}

// decodeCandidates turns an analysis list into previews. Items may be bare
// strings or objects; fields other than the preview are kept in Extra
// exactly as the model wrote them. It also returns how many items had no
// usable preview.
func decodeCandidates(v any) ([]model.CandidateItem, int) {
	list, ok := v.([]any)
	if !ok {
		if v == nil {
			return []model.CandidateItem{}, 0
		}
		list = []any{v}
	}

	out := make([]model.CandidateItem, 0, len(list))
	skipped := 0
	for _, item := range list {
		switch val := item.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				out = append(out, model.CandidateItem{Preview: s})
				continue
			}
		case map[string]any:
			m, extra := previewFieldSet.coalesce(val)
			if s, ok := m["preview"].(string); ok && strings.TrimSpace(s) != "" {
				c := model.CandidateItem{Preview: strings.TrimSpace(s)}
				if len(extra) > 0 {
					c.Extra = extra
				}
				out = append(out, c)
				continue
			}
		}
		skipped++
	}
	return out, skipped
}
