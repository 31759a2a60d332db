package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle marks the record kind above a rendered record.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// RecordStyle wraps the fields of one rendered record.
var RecordStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// LabelStyle is used for field names inside a record.
var LabelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGray).
	Width(12)

// DateStyle highlights canonical timestamps.
var DateStyle = lipgloss.NewStyle().
	Foreground(ColorYellow)

// CategoryStyle renders the category badge.
var CategoryStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorMagenta)

// HelpStyle is used for keyboard hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// SpinnerStyle colors the progress spinner.
var SpinnerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// NoticeStyle returns the title style for a notification of the given level.
func NoticeStyle(level Level) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch level {
	case LevelSuccess:
		return base.Foreground(ColorGreen)
	case LevelWarning:
		return base.Foreground(ColorYellow)
	case LevelError:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorBlue)
	}
}
