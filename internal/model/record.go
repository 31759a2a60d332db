package model

// EventRecord is a calendar event ready for the calendar sink.
// Date fields are empty or in the canonical YYYYMMDDTHHMMSS form.
type EventRecord struct {
	Summary      string   `json:"summary" yaml:"summary" mapstructure:"summary"`
	StartDate    string   `json:"startDate,omitempty" yaml:"startDate,omitempty" mapstructure:"startDate"`
	EndDate      string   `json:"endDate,omitempty" yaml:"endDate,omitempty" mapstructure:"endDate"`
	ForceAllDay  bool     `json:"forceAllDay" yaml:"forceAllDay" mapstructure:"forceAllDay"`
	Attendees    []string `json:"attendees" yaml:"attendees" mapstructure:"attendees"`
	Description  string   `json:"description" yaml:"description" mapstructure:"description"`
	Category     string   `json:"category" yaml:"category" mapstructure:"category"`
	CalendarName string   `json:"calendarName,omitempty" yaml:"calendarName,omitempty" mapstructure:"calendarName"`
}

// TaskRecord is a to-do item ready for the task sink.
type TaskRecord struct {
	Summary      string `json:"summary" yaml:"summary" mapstructure:"summary"`
	DueDate      string `json:"dueDate,omitempty" yaml:"dueDate,omitempty" mapstructure:"dueDate"`
	InitialDate  string `json:"initialDate,omitempty" yaml:"initialDate,omitempty" mapstructure:"initialDate"`
	ForceAllDay  bool   `json:"forceAllDay" yaml:"forceAllDay" mapstructure:"forceAllDay"`
	Description  string `json:"description" yaml:"description" mapstructure:"description"`
	Category     string `json:"category" yaml:"category" mapstructure:"category"`
	CalendarName string `json:"calendarName,omitempty" yaml:"calendarName,omitempty" mapstructure:"calendarName"`
}

// ContactRecord is a flat address-book entry. Every field is optional.
type ContactRecord struct {
	FirstName string `json:"firstName,omitempty" yaml:"firstName,omitempty" mapstructure:"firstName"`
	LastName  string `json:"lastName,omitempty" yaml:"lastName,omitempty" mapstructure:"lastName"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty" mapstructure:"phone"`
	Company   string `json:"company,omitempty" yaml:"company,omitempty" mapstructure:"company"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Website   string `json:"website,omitempty" yaml:"website,omitempty" mapstructure:"website"`
}

// IsEmpty reports whether no field carries a value.
func (c ContactRecord) IsEmpty() bool {
	return c == ContactRecord{}
}

// DisplayName joins first and last name, falling back to the email.
func (c ContactRecord) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.LastName != "":
		return c.LastName
	default:
		return c.Email
	}
}

// CandidateItem is a lightweight Stage-1 preview of a detected item.
// It is non-authoritative and only drives the user's selection.
type CandidateItem struct {
	Preview string `json:"preview" yaml:"preview"`

	// Extra holds whatever else the model volunteered for this item.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Analysis is the Stage-1 overview of one email.
type Analysis struct {
	Summary  string          `json:"summary" yaml:"summary"`
	Events   []CandidateItem `json:"events" yaml:"events"`
	Tasks    []CandidateItem `json:"tasks" yaml:"tasks"`
	Contacts []CandidateItem `json:"contacts" yaml:"contacts"`
}

// Candidates returns the previews for an array kind.
func (a *Analysis) Candidates(kind TaskKind) []CandidateItem {
	if a == nil {
		return nil
	}
	switch kind {
	case KindArrayEvent:
		return a.Events
	case KindArrayTask:
		return a.Tasks
	case KindArrayContact:
		return a.Contacts
	}
	return nil
}

// IsEmpty reports whether the analysis detected nothing at all.
func (a *Analysis) IsEmpty() bool {
	return a == nil ||
		(a.Summary == "" && len(a.Events) == 0 && len(a.Tasks) == 0 && len(a.Contacts) == 0)
}

// ArrayResult holds the records of a Stage-2 re-extraction. Only the
// slice matching the requested kind is populated.
type ArrayResult struct {
	Kind     TaskKind        `json:"kind" yaml:"kind"`
	Events   []EventRecord   `json:"events,omitempty" yaml:"events,omitempty"`
	Tasks    []TaskRecord    `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	Contacts []ContactRecord `json:"contacts,omitempty" yaml:"contacts,omitempty"`

	// Repaired is set when the response had to be salvaged.
	Repaired bool `json:"repaired,omitempty" yaml:"repaired,omitempty"`
}

// Len returns the number of records in the result.
func (r *ArrayResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Events) + len(r.Tasks) + len(r.Contacts)
}
