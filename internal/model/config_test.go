package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	want := DefaultAppConfig()
	require.Equal(t, want.Model, cfg.Model)
	require.Equal(t, want.Task, cfg.Task)
	require.Equal(t, AttendeesFromModel, cfg.Event.AttendeeSource)
	require.True(t, cfg.Event.IncludeHeaders)
	require.Equal(t, "personal", cfg.Contacts.AddressBook)
	require.Equal(t, DefaultStorePath(), cfg.Store.Path)
	require.Equal(t, "INBOX", cfg.IMAP.Mailbox)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`model:
  host: http://gpu-box:11434
  timeout_sec: 0
event:
  attendee_source: static
  static_attendees: [team@example.com]
  use_model_description: "true"
task:
  due_date_required: true
  due_date_offset_days: 3
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://gpu-box:11434", cfg.Model.Host)
	require.Equal(t, "llama3.1", cfg.Model.Name)
	require.Equal(t, 60, cfg.Model.TimeoutSec)
	require.Equal(t, AttendeesStatic, cfg.Event.AttendeeSource)
	require.Equal(t, []string{"team@example.com"}, cfg.Event.StaticAttendees)
	require.True(t, cfg.Event.UseModelDescription)
	require.True(t, cfg.Task.DueDateRequired)
	require.Equal(t, 3, cfg.Task.DueDateOffsetDays)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("MAILEXTRACT_MODEL_NAME", "mistral")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "mistral", cfg.Model.Name)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown attendee source", content: "event:\n  attendee_source: everyone\n"},
		{name: "malformed yaml", content: "model: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.Model.Name = "qwen2.5"
	cfg.Event.CalendarName = "Work"
	cfg.Event.AttendeeSource = AttendeesToOnly
	cfg.IMAP.Host = "imap.example.com"
	cfg.IMAP.Username = "ann@example.com"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "qwen2.5", loaded.Model.Name)
	require.Equal(t, "Work", loaded.Event.CalendarName)
	require.Equal(t, AttendeesToOnly, loaded.Event.AttendeeSource)
	require.Equal(t, "imap.example.com", loaded.IMAP.Host)
	require.Equal(t, "ann@example.com", loaded.IMAP.Username)
}
