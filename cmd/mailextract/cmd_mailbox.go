package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/mailextract/internal/app"
	"github.com/nhle/mailextract/internal/credential"
	"github.com/nhle/mailextract/internal/ui"
)

func newInboxCommand(e *env) *cobra.Command {
	var (
		days   int
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List recent messages in the IMAP mailbox",
		Long: `List recent messages in the configured IMAP mailbox. Unread messages are
marked with '*'. Pass a UID to --uid of the extraction commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := app.ParseFormat(output)
			if err != nil {
				return err
			}

			client, err := e.imapClient()
			if err != nil {
				return report(cmd, err)
			}

			envelopes, err := client.Recent(cmd.Context(), days, limit)
			if err != nil {
				return report(cmd, err)
			}
			return app.RenderEnvelopes(cmd.OutOrStdout(), format, envelopes)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Only list messages received in the last N days (0 for all)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of messages to list")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")

	return cmd
}

func newCredentialsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the IMAP password stored in the system keyring",
	}

	var fromStdin bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the IMAP password for the configured username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}
			if cfg.IMAP.Username == "" {
				return errors.New("imap.username must be configured first")
			}

			password, err := readPassword(cmd, cfg.IMAP.Username, fromStdin)
			if err != nil {
				return err
			}

			creds, err := openCredentials()
			if err != nil {
				return err
			}
			if err := creds.Set(credential.IMAPPasswordKey(cfg.IMAP.Username), password); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stored IMAP password for %s\n", cfg.IMAP.Username)
			return nil
		},
	}
	set.Flags().BoolVar(&fromStdin, "password-stdin", false, "Read the password from standard input")

	remove := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored IMAP password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.config()
			if err != nil {
				return err
			}

			creds, err := openCredentials()
			if err != nil {
				return err
			}
			if err := creds.Delete(credential.IMAPPasswordKey(cfg.IMAP.Username)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed IMAP password for %s\n", cfg.IMAP.Username)
			return nil
		},
	}

	cmd.AddCommand(set, remove)
	return cmd
}

// readPassword reads one line from stdin, or prompts with a masked input.
func readPassword(cmd *cobra.Command, username string, fromStdin bool) (string, error) {
	in := cmd.InOrStdin()

	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			if err != nil {
				return "", fmt.Errorf("reading password: %w", err)
			}
			return "", errors.New("empty password")
		}
		return password, nil
	}

	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP password").
				Description("Password for " + username).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(cmd.ErrOrStderr()).
		WithAccessible(!ui.IsTerminal(in))

	if err := form.RunWithContext(cmd.Context()); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}
