package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mailextract/internal/app"
	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/source/email"
	"github.com/nhle/mailextract/internal/ui"
	"github.com/nhle/mailextract/internal/ui/selector"
)

type actionSpec struct {
	kind  model.TaskKind
	use   string
	short string
}

var actionSpecs = []actionSpec{
	{kind: model.KindEvent, use: "event", short: "Extract a calendar event from an email"},
	{kind: model.KindTask, use: "task", short: "Extract a to-do item from an email"},
	{kind: model.KindContact, use: "contact", short: "Extract the sender's contact card from an email"},
	{kind: model.KindReply, use: "reply", short: "Draft a reply to an email"},
	{kind: model.KindForwardSummary, use: "summarize", short: "Summarize an email for forwarding"},
}

// messageFlags selects where the email comes from.
type messageFlags struct {
	eml string
	uid uint32
}

func (f *messageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.eml, "eml", "", "Read the message from an .eml file")
	cmd.Flags().Uint32Var(&f.uid, "uid", 0, "Fetch the message with this UID from the IMAP mailbox")
	cmd.MarkFlagsMutuallyExclusive("eml", "uid")
}

// load reads the message from the file, the mailbox or standard input.
func (f *messageFlags) load(ctx context.Context, cmd *cobra.Command, e *env) (model.Message, error) {
	switch {
	case f.eml != "":
		return email.FileSource{Path: f.eml}.Message(ctx, 0)
	case f.uid != 0:
		client, err := e.imapClient()
		if err != nil {
			return model.Message{}, err
		}
		return client.Message(ctx, f.uid)
	}

	in := cmd.InOrStdin()
	if ui.IsTerminal(in) {
		return model.Message{}, errors.New("no message given: use --eml, --uid or pipe a message on stdin")
	}
	msg, err := email.ParseMessage(in)
	if err != nil {
		return model.Message{}, fmt.Errorf("parsing message from stdin: %w", err)
	}
	return msg, nil
}

// actionFlags are shared by every extraction command.
type actionFlags struct {
	message messageFlags
	dryRun  bool
	output  string
}

func (f *actionFlags) register(cmd *cobra.Command) {
	f.message.register(cmd)
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show the result without saving it")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "Output format: text, json or yaml")
}

// handler opens the store and builds the action handler. The returned
// func closes the store.
func (f *actionFlags) handler(cmd *cobra.Command, e *env, extra ...app.HandlerOption) (*app.Handler, func(), error) {
	cfg, err := e.config()
	if err != nil {
		return nil, nil, err
	}
	st, err := e.openStore()
	if err != nil {
		return nil, nil, err
	}

	opts := []app.HandlerOption{
		app.WithCategories(st),
		app.WithProgress(progressFor(cmd)),
		app.WithAISummary(cfg.Event.UseModelDescription),
	}
	if !f.dryRun {
		opts = append(opts, app.WithSink(st))
	}
	opts = append(opts, extra...)

	return app.NewHandler(newExtractor(cfg), opts...), func() { _ = st.Close() }, nil
}

func newActionCommand(e *env, spec actionSpec) *cobra.Command {
	var (
		flags     actionFlags
		saveDraft bool
	)

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := app.ParseFormat(flags.output)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			msg, err := flags.message.load(ctx, cmd, e)
			if err != nil {
				return report(cmd, err)
			}

			var extra []app.HandlerOption
			if saveDraft {
				client, err := e.imapClient()
				if err != nil {
					return report(cmd, err)
				}
				extra = append(extra, app.WithDrafts(client))
			}

			h, closeStore, err := flags.handler(cmd, e, extra...)
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := h.Run(ctx, app.Action{Kind: spec.kind, Message: msg, SaveDraft: saveDraft})
			if err != nil {
				return report(cmd, err)
			}

			results := []*extract.Result{res}
			if err := app.RenderResults(cmd.OutOrStdout(), format, results); err != nil {
				return err
			}
			return app.Outcome(results, h.Committed()).Render(cmd.ErrOrStderr())
		},
	}

	flags.register(cmd)
	if spec.kind == model.KindReply {
		cmd.Flags().BoolVar(&saveDraft, "save-draft", false, "Store the reply in the IMAP drafts mailbox")
	}

	return cmd
}

func newAnalyzeCommand(e *env) *cobra.Command {
	var (
		flags actionFlags
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Find every event, task and contact in an email and pick which to extract",
		Long: `Analyze asks the model for an overview of the email first. The detected
items are then offered for selection, and only the selected ones are
extracted in detail.

Without a terminal, or with --all, every detected item is extracted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := app.ParseFormat(flags.output)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			msg, err := flags.message.load(ctx, cmd, e)
			if err != nil {
				return report(cmd, err)
			}

			h, closeStore, err := flags.handler(cmd, e)
			if err != nil {
				return err
			}
			defer closeStore()

			var sel extract.Selector = extract.SelectorFunc(selector.All)
			if !all && ui.IsTerminal(cmd.InOrStdin()) {
				sel = selector.New(cmd.InOrStdin(), cmd.ErrOrStderr())
			}

			analysis, results, err := h.Analyze(ctx, msg, sel)
			if err != nil {
				return report(cmd, err)
			}

			if err := app.RenderReport(cmd.OutOrStdout(), format, analysis, results); err != nil {
				return err
			}
			return app.Outcome(results, h.Committed()).Render(cmd.ErrOrStderr())
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "Extract every detected item without asking")

	return cmd
}
