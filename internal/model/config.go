package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AttendeeSource selects where event attendees come from.
type AttendeeSource string

const (
	// AttendeesFromModel keeps the model's From+To-derived guess.
	AttendeesFromModel AttendeeSource = "model"
	AttendeesFromOnly  AttendeeSource = "from"
	AttendeesToOnly    AttendeeSource = "to"
	AttendeesStatic    AttendeeSource = "static"
	AttendeesNone      AttendeeSource = "none"
)

// Valid reports whether s is a known attendee source.
func (s AttendeeSource) Valid() bool {
	switch s {
	case AttendeesFromModel, AttendeesFromOnly, AttendeesToOnly, AttendeesStatic, AttendeesNone:
		return true
	}
	return false
}

// ModelConfig holds the generation endpoint settings.
type ModelConfig struct {
	// Host is the base URL of the Ollama-compatible server.
	Host string `mapstructure:"host" yaml:"host"`

	// Name is the model identifier sent with every request.
	Name string `mapstructure:"name" yaml:"name"`

	// TimeoutSec bounds interactive single-item calls.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// AnalysisTimeoutSec bounds the bulk analysis and array calls.
	AnalysisTimeoutSec int `mapstructure:"analysis_timeout_sec" yaml:"analysis_timeout_sec"`
}

// EventConfig holds post-processing preferences for events.
type EventConfig struct {
	CalendarName        string         `mapstructure:"calendar_name" yaml:"calendar_name"`
	AttendeeSource      AttendeeSource `mapstructure:"attendee_source" yaml:"attendee_source"`
	StaticAttendees     []string       `mapstructure:"static_attendees" yaml:"static_attendees"`
	UseModelDescription bool           `mapstructure:"use_model_description" yaml:"use_model_description"`
	IncludeHeaders      bool           `mapstructure:"include_headers" yaml:"include_headers"`
}

// TaskConfig holds post-processing preferences for tasks.
type TaskConfig struct {
	DueDateRequired   bool `mapstructure:"due_date_required" yaml:"due_date_required"`
	DueDateOffsetDays int  `mapstructure:"due_date_offset_days" yaml:"due_date_offset_days"`
}

// ContactsConfig names the target address book.
type ContactsConfig struct {
	AddressBook string `mapstructure:"address_book" yaml:"address_book"`
}

// StoreConfig locates the local SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// IMAPConfig holds the mailbox connection settings. The password lives
// in the system keyring, never in this file.
type IMAPConfig struct {
	Host          string `mapstructure:"host" yaml:"host"`
	Port          string `mapstructure:"port" yaml:"port"`
	Username      string `mapstructure:"username" yaml:"username"`
	TLS           bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox       string `mapstructure:"mailbox" yaml:"mailbox"`
	DraftsMailbox string `mapstructure:"drafts_mailbox" yaml:"drafts_mailbox"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Model    ModelConfig    `mapstructure:"model" yaml:"model"`
	Event    EventConfig    `mapstructure:"event" yaml:"event"`
	Task     TaskConfig     `mapstructure:"task" yaml:"task"`
	Contacts ContactsConfig `mapstructure:"contacts" yaml:"contacts"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	IMAP     IMAPConfig     `mapstructure:"imap" yaml:"imap"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailextract/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailextract", "config.yaml")
}

// DefaultStorePath returns the default SQLite database location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "mailextract.db")
	}
	return filepath.Join(home, ".config", "mailextract", "mailextract.db")
}

var defaults = map[string]any{
	"model.host":                  "http://127.0.0.1:11434",
	"model.name":                  "llama3.1",
	"model.timeout_sec":           60,
	"model.analysis_timeout_sec":  180,
	"event.calendar_name":         "",
	"event.attendee_source":       string(AttendeesFromModel),
	"event.static_attendees":      []string{},
	"event.use_model_description": false,
	"event.include_headers":       true,
	"task.due_date_required":      false,
	"task.due_date_offset_days":   1,
	"contacts.address_book":       "personal",
	"store.path":                  "",
	"imap.host":                   "",
	"imap.port":                   "993",
	"imap.username":               "",
	"imap.tls":                    true,
	"imap.mailbox":                "INBOX",
	"imap.drafts_mailbox":         "Drafts",
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Model: ModelConfig{
			Host:               "http://127.0.0.1:11434",
			Name:               "llama3.1",
			TimeoutSec:         60,
			AnalysisTimeoutSec: 180,
		},
		Event: EventConfig{
			AttendeeSource:  AttendeesFromModel,
			StaticAttendees: []string{},
			IncludeHeaders:  true,
		},
		Task: TaskConfig{
			DueDateOffsetDays: 1,
		},
		Contacts: ContactsConfig{AddressBook: "personal"},
		Store:    StoreConfig{Path: DefaultStorePath()},
		IMAP: IMAPConfig{
			Port:          "993",
			TLS:           true,
			Mailbox:       "INBOX",
			DraftsMailbox: "Drafts",
		},
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Every key gets a default so MAILEXTRACT_* overrides resolve in Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("MAILEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if !cfg.Event.AttendeeSource.Valid() {
		return nil, fmt.Errorf(
			"parsing config %s: unknown event.attendee_source %q",
			path, cfg.Event.AttendeeSource,
		)
	}
	if cfg.Model.TimeoutSec <= 0 {
		cfg.Model.TimeoutSec = 60
	}
	if cfg.Model.AnalysisTimeoutSec <= 0 {
		cfg.Model.AnalysisTimeoutSec = 180
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("model", cfg.Model)
	v.Set("event", cfg.Event)
	v.Set("task", cfg.Task)
	v.Set("contacts", cfg.Contacts)
	v.Set("store", cfg.Store)
	v.Set("imap", cfg.IMAP)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
