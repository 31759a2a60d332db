package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/theme"
)

// Notification is the message shown to the user when an action ends.
type Notification struct {
	Level   theme.Level
	Title   string
	Message string

	// Detail is the underlying error text, shown below the message.
	Detail string
}

// NotificationFor describes a failed action. Cancellation is reported as a
// warning, everything else as an error.
func NotificationFor(err error) Notification {
	class := Classify(err)

	level := theme.LevelError
	if class == ClassCanceled {
		level = theme.LevelWarning
	}

	n := Notification{
		Level:   level,
		Title:   class.Title(),
		Message: class.Message(),
	}
	if err != nil && class != ClassCanceled {
		n.Detail = err.Error()
	}
	return n
}

// Outcome describes a finished action. committed tells whether the records
// were handed to the sink.
func Outcome(results []*extract.Result, committed bool) Notification {
	var events, tasks, contacts, texts int
	for _, res := range results {
		switch {
		case res.Event != nil:
			events++
		case res.Task != nil:
			tasks++
		case res.Contact != nil:
			contacts++
		case res.Array != nil:
			events += len(res.Array.Events)
			tasks += len(res.Array.Tasks)
			contacts += len(res.Array.Contacts)
		case res.Text != "":
			texts++
		}
	}

	var parts []string
	for _, c := range []struct {
		n    int
		noun string
	}{
		{events, "event"},
		{tasks, "task"},
		{contacts, "contact"},
	} {
		if c.n > 0 {
			parts = append(parts, plural(c.n, c.noun))
		}
	}

	switch {
	case len(parts) == 0 && texts > 0:
		return Notification{Level: theme.LevelSuccess, Title: "Done"}
	case len(parts) == 0:
		return Notification{Level: theme.LevelInfo, Title: "Nothing extracted"}
	case committed:
		return Notification{Level: theme.LevelSuccess, Title: "Saved", Message: strings.Join(parts, ", ")}
	default:
		return Notification{Level: theme.LevelInfo, Title: "Dry run", Message: strings.Join(parts, ", ") + " not saved"}
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Render writes the notification to w.
func (n Notification) Render(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(theme.NoticeStyle(n.Level).Render(n.Title))
	if n.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(n.Message)
	}
	sb.WriteString("\n")
	if n.Detail != "" {
		sb.WriteString(theme.HelpStyle.Render("  " + n.Detail))
		sb.WriteString("\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("writing notification: %w", err)
	}
	return nil
}
