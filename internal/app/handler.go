package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nhle/mailextract/internal/extract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/source"
)

// ProgressFunc runs job while telling the user what is happening. The
// default runs job directly.
type ProgressFunc func(ctx context.Context, label string, job func(ctx context.Context) error) error

func runDirect(ctx context.Context, _ string, job func(ctx context.Context) error) error {
	return job(ctx)
}

// Handler runs actions against one extractor. A nil sink makes every
// action a dry run.
type Handler struct {
	extractor  *extract.Extractor
	sink       extract.Sink
	categories extract.CategorySource
	drafts     source.DraftSaver
	progress   ProgressFunc
	logger     *slog.Logger

	// aiSummary asks the model to write event and task descriptions.
	aiSummary bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithSink sets where records are committed.
func WithSink(sink extract.Sink) HandlerOption {
	return func(h *Handler) { h.sink = sink }
}

// WithCategories sets the category list offered to the model.
func WithCategories(src extract.CategorySource) HandlerOption {
	return func(h *Handler) { h.categories = src }
}

// WithDrafts enables saving replies as mailbox drafts.
func WithDrafts(d source.DraftSaver) HandlerOption {
	return func(h *Handler) { h.drafts = d }
}

// WithProgress wraps model calls in fn.
func WithProgress(fn ProgressFunc) HandlerOption {
	return func(h *Handler) { h.progress = fn }
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithAISummary makes the model write record descriptions.
func WithAISummary(enabled bool) HandlerOption {
	return func(h *Handler) { h.aiSummary = enabled }
}

// NewHandler creates a Handler around ex.
func NewHandler(ex *extract.Extractor, opts ...HandlerOption) *Handler {
	h := &Handler{
		extractor: ex,
		progress:  runDirect,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Action is one single-item request from the user.
type Action struct {
	Kind    model.TaskKind
	Message model.Message

	// SaveDraft stores a reply in the drafts mailbox.
	SaveDraft bool
}

// Committed reports whether results of this handler reach a sink.
func (h *Handler) Committed() bool {
	return h.sink != nil
}

// Run extracts one record (or reply text) from the action's message and
// commits it.
func (h *Handler) Run(ctx context.Context, act Action) (*extract.Result, error) {
	if act.Kind == model.KindAnalysis || act.Kind.IsArray() {
		return nil, fmt.Errorf("running %s: use Analyze for multi-item extraction", act.Kind)
	}

	req, err := h.request(ctx, act.Message, act.Kind)
	if err != nil {
		return nil, err
	}

	var res *extract.Result
	err = h.progress(ctx, labelFor(act.Kind), func(ctx context.Context) error {
		var runErr error
		res, runErr = h.extractor.Run(ctx, req)
		return runErr
	})
	if err != nil {
		return nil, err
	}

	if act.SaveDraft && act.Kind == model.KindReply {
		if err := h.saveDraft(ctx, act.Message, res.Text); err != nil {
			return res, err
		}
	}

	if err := h.commit(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// Analyze runs the two-stage flow: it summarizes the message, lets sel
// pick the detected items and extracts each picked kind. The Stage-1
// analysis is returned alongside the Stage-2 results. An analysis without
// candidates, or an empty selection, yields no results and no error.
func (h *Handler) Analyze(ctx context.Context, msg model.Message, sel extract.Selector) (*model.Analysis, []*extract.Result, error) {
	req, err := h.request(ctx, msg, model.KindAnalysis)
	if err != nil {
		return nil, nil, err
	}

	var session *extract.Session
	err = h.progress(ctx, labelFor(model.KindAnalysis), func(ctx context.Context) error {
		var runErr error
		session, runErr = h.extractor.Analyze(ctx, req)
		return runErr
	})
	if err != nil {
		return nil, nil, err
	}

	analysis := session.Analysis()
	if !hasCandidates(analysis) {
		session.Cancel()
		h.logger.Info("analysis found no items to extract", "subject", msg.Subject)
		return analysis, nil, nil
	}

	selection, err := session.Select(ctx, sel)
	if err != nil {
		return analysis, nil, err
	}

	var results []*extract.Result
	extractSelected := func(ctx context.Context) error {
		var runErr error
		results, runErr = session.Extract(ctx, selection)
		return runErr
	}
	if selection.IsEmpty() {
		err = extractSelected(ctx)
	} else {
		err = h.progress(ctx, "Extracting selected items", extractSelected)
	}
	if err != nil {
		return analysis, results, err
	}

	for _, res := range results {
		if err := h.commit(ctx, res); err != nil {
			return analysis, results, err
		}
	}
	return analysis, results, nil
}

func hasCandidates(a *model.Analysis) bool {
	return a != nil && len(a.Events)+len(a.Tasks)+len(a.Contacts) > 0
}

// request builds the extraction request for msg, filling the hints the
// kind can use.
func (h *Handler) request(ctx context.Context, msg model.Message, kind model.TaskKind) (model.ExtractionRequest, error) {
	var hints model.TaskHints

	switch kind {
	case model.KindEvent, model.KindTask, model.KindAnalysis:
		categories, err := h.categoryNames(ctx)
		if err != nil {
			return model.ExtractionRequest{}, err
		}
		hints.Categories = categories
		hints.AISummary = h.aiSummary && kind != model.KindAnalysis
	}
	if kind == model.KindEvent {
		hints.Attendees = attendeeHints(msg)
	}

	return model.NewRequest(msg, kind, hints), nil
}

func (h *Handler) categoryNames(ctx context.Context) ([]string, error) {
	if h.categories == nil {
		return nil, nil
	}
	names, err := h.categories.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	return names, nil
}

func (h *Handler) commit(ctx context.Context, res *extract.Result) error {
	if h.sink == nil {
		h.logger.Debug("dry run, skipping commit", "kind", res.Kind)
		return nil
	}
	return h.extractor.Commit(ctx, h.sink, res)
}

func (h *Handler) saveDraft(ctx context.Context, original model.Message, body string) error {
	if h.drafts == nil {
		return errors.New("saving draft: no mailbox configured")
	}
	if h.sink == nil {
		h.logger.Debug("dry run, not saving draft")
		return nil
	}
	if err := h.drafts.SaveDraft(ctx, original, body); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	h.logger.Info("reply saved as draft", "subject", original.Subject)
	return nil
}

// attendeeHints lists the message's sender and recipients.
func attendeeHints(msg model.Message) []string {
	out := make([]string, 0, len(msg.To)+1)
	if msg.From != "" {
		out = append(out, msg.From)
	}
	return append(out, msg.To...)
}

func labelFor(kind model.TaskKind) string {
	switch kind {
	case model.KindEvent:
		return "Extracting event"
	case model.KindTask:
		return "Extracting task"
	case model.KindContact:
		return "Extracting contact"
	case model.KindReply:
		return "Drafting reply"
	case model.KindForwardSummary:
		return "Summarizing"
	case model.KindAnalysis:
		return "Analyzing message"
	}
	return "Working"
}
