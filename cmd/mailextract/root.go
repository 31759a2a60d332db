package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/mailextract/internal/ai"
	"github.com/nhle/mailextract/internal/app"
	"github.com/nhle/mailextract/internal/credential"
	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/source/email"
	"github.com/nhle/mailextract/internal/store"
	"github.com/nhle/mailextract/internal/ui/progress"
)

var version = "dev"

// openCredentials is a test hook for replacing the system keyring.
var openCredentials = credential.Open

// env carries the global flags and the lazily loaded configuration.
type env struct {
	configPath string
	debug      bool
	cfg        *model.AppConfig
}

func newRootCommand() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:   "mailextract",
		Short: "Turn emails into calendar events, tasks and contacts",
		Long: `mailextract asks a local language model to read an email and extract
calendar events, to-do items, contacts, reply drafts or summaries from it.

Messages are read from an .eml file, from an IMAP mailbox by UID, or from
standard input. Extracted records are saved to a local database unless
--dry-run is given.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&e.configPath, "config", model.DefaultConfigPath(), "Path to the config file")
	cmd.PersistentFlags().BoolVar(&e.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if e.debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	for _, spec := range actionSpecs {
		cmd.AddCommand(newActionCommand(e, spec))
	}
	cmd.AddCommand(newAnalyzeCommand(e))
	cmd.AddCommand(newInboxCommand(e))
	cmd.AddCommand(newCategoriesCommand(e))
	cmd.AddCommand(newCredentialsCommand(e))
	cmd.AddCommand(newConfigCommand(e))

	return cmd
}

// config loads the configuration file once per invocation.
func (e *env) config() (*model.AppConfig, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	cfg, err := model.LoadConfig(e.configPath)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	return cfg, nil
}

// openStore opens the record database, creating its directory if needed.
func (e *env) openStore() (*store.SQLiteStore, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return store.NewSQLiteStore(cfg.Store.Path)
}

// imapClient builds a mailbox client with the password from the keyring.
func (e *env) imapClient() (*email.IMAPClient, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if cfg.IMAP.Host == "" || cfg.IMAP.Username == "" {
		return nil, errors.New("imap.host and imap.username must be configured")
	}

	creds, err := openCredentials()
	if err != nil {
		return nil, err
	}
	password, err := creds.Get(credential.IMAPPasswordKey(cfg.IMAP.Username))
	if err != nil {
		return nil, fmt.Errorf("loading IMAP password: %w", err)
	}

	return email.NewIMAPClient(cfg.IMAP, password), nil
}

func newExtractor(cfg *model.AppConfig) *extract.Extractor {
	return extract.New(ai.New(nil), extract.SettingsFromConfig(cfg),
		extract.WithLogger(slog.Default()),
	)
}

// progressFor shows a spinner on the command's error stream.
func progressFor(cmd *cobra.Command) app.ProgressFunc {
	return func(ctx context.Context, label string, job func(context.Context) error) error {
		return progress.Run(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), label, job)
	}
}

// reportedError marks an error already shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// report shows err as a notification and marks it as shown.
func report(cmd *cobra.Command, err error) error {
	slog.Debug("action failed", "class", app.Classify(err), "error", err)
	if renderErr := app.NotificationFor(err).Render(cmd.ErrOrStderr()); renderErr != nil {
		return err
	}
	return &reportedError{err: err}
}
