// Package extract runs the extraction pipeline: it builds a prompt for an
// email, calls the model, recovers JSON from the answer and turns it into
// validated records.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nhle/mailextract/internal/ai"
	"github.com/nhle/mailextract/internal/jsonextract"
	"github.com/nhle/mailextract/internal/model"
	"github.com/nhle/mailextract/internal/prompt"
	"github.com/nhle/mailextract/internal/schema"
)

var (
	// ErrEmptyResult is returned when the model answered with valid JSON
	// that lacks content the action requires.
	ErrEmptyResult = errors.New("model returned an empty result")

	// ErrInvalidRecord is returned when a finished record fails its schema
	// or the model's fields cannot be decoded.
	ErrInvalidRecord = errors.New("model returned an invalid record")
)

// Settings is the configuration snapshot of one action. It is copied on
// construction, so later edits to the source configuration are not seen.
type Settings struct {
	Host            string
	Model           string
	Timeout         time.Duration
	AnalysisTimeout time.Duration

	CalendarName    string
	AttendeeSource  model.AttendeeSource
	StaticAttendees []string
	IncludeHeaders  bool

	DueDateRequired   bool
	DueDateOffsetDays int

	AddressBook string
}

// SettingsFromConfig snapshots the parts of cfg the pipeline uses.
func SettingsFromConfig(cfg *model.AppConfig) Settings {
	return Settings{
		Host:              cfg.Model.Host,
		Model:             cfg.Model.Name,
		Timeout:           time.Duration(cfg.Model.TimeoutSec) * time.Second,
		AnalysisTimeout:   time.Duration(cfg.Model.AnalysisTimeoutSec) * time.Second,
		CalendarName:      cfg.Event.CalendarName,
		AttendeeSource:    cfg.Event.AttendeeSource,
		StaticAttendees:   slices.Clone(cfg.Event.StaticAttendees),
		IncludeHeaders:    cfg.Event.IncludeHeaders,
		DueDateRequired:   cfg.Task.DueDateRequired,
		DueDateOffsetDays: cfg.Task.DueDateOffsetDays,
		AddressBook:       cfg.Contacts.AddressBook,
	}
}

func (s Settings) clone() Settings {
	s.StaticAttendees = slices.Clone(s.StaticAttendees)
	return s
}

func (s Settings) timeoutFor(kind model.TaskKind) time.Duration {
	if kind == model.KindAnalysis || kind.IsArray() {
		if s.AnalysisTimeout > 0 {
			return s.AnalysisTimeout
		}
		return ai.AnalysisTimeout
	}
	if s.Timeout > 0 {
		return s.Timeout
	}
	return ai.DefaultTimeout
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock replaces time.Now as the source of the current date.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLogger sets the logger used for state transitions and salvage notes.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithTransitionHook registers fn to observe every state change.
func WithTransitionHook(fn TransitionFunc) Option {
	return func(e *Extractor) { e.observe = fn }
}

// Extractor runs extraction actions against one model.
type Extractor struct {
	gen      ai.Generator
	settings Settings
	now      func() time.Time
	logger   *slog.Logger
	observe  TransitionFunc
}

// New creates an Extractor using gen for model calls.
func New(gen ai.Generator, settings Settings, opts ...Option) *Extractor {
	e := &Extractor{
		gen:      gen,
		settings: settings.clone(),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one action. Exactly one payload field is set,
// matching Kind.
type Result struct {
	Kind     model.TaskKind
	Event    *model.EventRecord
	Task     *model.TaskRecord
	Contact  *model.ContactRecord
	Analysis *model.Analysis
	Array    *model.ArrayResult

	// Text holds the reply body or the forward summary.
	Text string

	machine *machine
}

// State returns the action's current state.
func (r *Result) State() State {
	if r == nil || r.machine == nil {
		return StateIdle
	}
	return r.machine.state
}

// Run executes req up to the post-processed state. The returned result is
// not yet committed; see Commit.
func (e *Extractor) Run(ctx context.Context, req model.ExtractionRequest) (*Result, error) {
	m := newMachine(req.Kind, e.logger, e.observe)
	now := e.now()

	text, err := prompt.New(now).Build(req)
	if err != nil {
		return nil, m.fail(err)
	}
	m.advance(StatePromptBuilt)

	raw, err := e.gen.Generate(ctx, ai.Request{
		Host:    e.settings.Host,
		Model:   e.settings.Model,
		Prompt:  text,
		Timeout: e.settings.timeoutFor(req.Kind),
	})
	if err != nil {
		return nil, m.fail(fmt.Errorf("generating %s: %w", req.Kind, err))
	}
	m.advance(StateModelCalled)

	res := &Result{Kind: req.Kind, machine: m}
	if req.Kind.IsArray() {
		err = e.runArray(req, raw, now, res)
	} else {
		err = e.runSingle(req, raw, now, res)
	}
	if err != nil {
		return nil, m.fail(err)
	}
	m.advance(StatePostProcessed)

	return res, nil
}

// runSingle handles every kind that answers with one JSON object.
func (e *Extractor) runSingle(req model.ExtractionRequest, raw string, now time.Time, res *Result) error {
	payload, err := jsonextract.Extract(raw)
	if err != nil {
		return fmt.Errorf("extracting %s response: %w", req.Kind, err)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return fmt.Errorf("parsing %s response: %w: %v", req.Kind, ErrInvalidRecord, err)
	}
	res.machine.advance(StateResponseExtracted)

	switch req.Kind {
	case model.KindEvent:
		rec, err := e.eventRecord(req, obj, now, finish{advanceYears: true, title: req.Subject})
		if err != nil {
			return err
		}
		res.Event = &rec
	case model.KindTask:
		rec, err := e.taskRecord(req, obj, now, finish{advanceYears: true, title: req.Subject})
		if err != nil {
			return err
		}
		res.Task = &rec
	case model.KindContact:
		rec, err := e.contactRecord(obj)
		if err != nil {
			return err
		}
		res.Contact = &rec
	case model.KindReply:
		res.Text = decodeText(replyFieldSet, obj)
		if res.Text == "" {
			return fmt.Errorf("reply: %w", ErrEmptyResult)
		}
	case model.KindForwardSummary:
		res.Text = decodeText(summaryFieldSet, obj)
		if res.Text == "" {
			return fmt.Errorf("forward summary: %w", ErrEmptyResult)
		}
	case model.KindAnalysis:
		analysis, err := e.analysis(obj)
		if err != nil {
			return err
		}
		res.Analysis = analysis
	default:
		return fmt.Errorf("unsupported task kind %q", req.Kind)
	}
	return nil
}

// Commit hands the records of res to sink and finishes the action. Reply
// and summary text have nothing to hand over and commit trivially.
func (e *Extractor) Commit(ctx context.Context, sink Sink, res *Result) error {
	if res == nil || res.machine == nil || res.machine.state != StatePostProcessed {
		return errors.New("committing: result is not ready")
	}
	if sink == nil {
		return errors.New("committing: no sink")
	}
	m := res.machine

	if err := e.commit(ctx, sink, res); err != nil {
		return m.fail(fmt.Errorf("committing %s: %w", res.Kind, err))
	}
	m.advance(StateCommitted)
	return nil
}

func (e *Extractor) commit(ctx context.Context, sink Sink, res *Result) error {
	switch {
	case res.Event != nil:
		return sink.CreateEvent(ctx, *res.Event)
	case res.Task != nil:
		return sink.CreateTask(ctx, *res.Task)
	case res.Contact != nil:
		return sink.CreateContact(ctx, *res.Contact, e.settings.AddressBook)
	case res.Array != nil:
		for _, rec := range res.Array.Events {
			if err := sink.CreateEvent(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range res.Array.Tasks {
			if err := sink.CreateTask(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range res.Array.Contacts {
			if err := sink.CreateContact(ctx, rec, e.settings.AddressBook); err != nil {
				return err
			}
		}
	}
	return nil
}

// validate checks rec against its schema.
func validate(name schema.Name, rec any) error {
	if problems := schema.Validate(name, rec); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(problems, "; "))
	}
	return nil
}
