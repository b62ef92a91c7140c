package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/history"
	"github.com/ghc-desk/ghc/internal/logging"
	"github.com/ghc-desk/ghc/internal/render"
	"github.com/ghc-desk/ghc/internal/view"
)

// Outcome classifies a Submit call.
type Outcome string

const (
	// OutcomeIgnored means a precondition failed and nothing happened.
	OutcomeIgnored   Outcome = "ignored"
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeEmpty means the assistant answered with blank output.
	OutcomeEmpty  Outcome = "empty"
	OutcomeFailed Outcome = "failed"
)

// IgnoreReason says which precondition rejected a submission.
type IgnoreReason string

const (
	ReasonNone            IgnoreReason = ""
	ReasonEmptyPrompt     IgnoreReason = "empty_prompt"
	ReasonUnauthenticated IgnoreReason = "unauthenticated"
	ReasonBusy            IgnoreReason = "busy"
)

// Request is one prompt submission. An empty ContextPath uses the
// currently selected file, if any.
type Request struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	ContextPath string `json:"context_path,omitempty"`
}

// Result reports what a Submit call did.
type Result struct {
	Outcome Outcome              `json:"outcome"`
	Reason  IgnoreReason         `json:"reason,omitempty"`
	Label   string               `json:"label,omitempty"`
	Output  render.SanitizedHTML `json:"output,omitempty"`
	Raw     string               `json:"raw,omitempty"`
	Entry   *history.Entry       `json:"entry,omitempty"`
	Err     error                `json:"-"`
	Error   string               `json:"error,omitempty"`
}

// FileContext is the file attached to the next submission.
type FileContext struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
}

// PendingExecution is the single in-flight run.
type PendingExecution struct {
	Prompt      string
	Model       string
	ContextPath string
	StartedAt   time.Time
}

// Gate answers the session questions the coordinator needs.
type Gate interface {
	CanSubmit() bool
	HasToken() bool
}

// EntryHook observes appended history entries.
type EntryHook func(history.Entry)

// Options configures a Coordinator.
type Options struct {
	DefaultModel string
	Renderer     *render.Renderer
	Metrics      *Metrics
	Logger       *logging.Logger
	Hooks        []EntryHook
}

// Coordinator runs at most one prompt at a time and reconciles the result
// into the view and the history log.
//
// Lock order: c.mu, then the session and view locks.
type Coordinator struct {
	backend      core.Backend
	gate         Gate
	view         *view.State
	log          *history.Log
	renderer     *render.Renderer
	metrics      *Metrics
	logger       *logging.Logger
	defaultModel string

	mu      sync.Mutex
	pending *PendingExecution
	file    *FileContext
	hooks   []EntryHook
}

// NewCoordinator creates a coordinator.
func NewCoordinator(backend core.Backend, gate Gate, v *view.State, log *history.Log, opts Options) *Coordinator {
	if opts.Renderer == nil {
		opts.Renderer = render.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = core.DefaultModel
	}
	return &Coordinator{
		backend:      backend,
		gate:         gate,
		view:         v,
		log:          log,
		renderer:     opts.Renderer,
		metrics:      opts.Metrics,
		logger:       opts.Logger.WithComponent("coordinator"),
		defaultModel: opts.DefaultModel,
		hooks:        opts.Hooks,
	}
}

// OnAppend registers a hook run after every history append.
func (c *Coordinator) OnAppend(h EntryHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, h)
}

// Submit runs one prompt. Precondition failures return OutcomeIgnored
// without calling the backend or touching the view.
func (c *Coordinator) Submit(ctx context.Context, req Request) Result {
	prompt := strings.TrimSpace(req.Prompt)
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	c.mu.Lock()
	switch {
	case prompt == "":
		c.mu.Unlock()
		return Result{Outcome: OutcomeIgnored, Reason: ReasonEmptyPrompt}
	case !c.gate.CanSubmit():
		c.mu.Unlock()
		return Result{Outcome: OutcomeIgnored, Reason: ReasonUnauthenticated}
	case c.pending != nil:
		c.mu.Unlock()
		c.metrics.RecordRejected()
		return Result{Outcome: OutcomeIgnored, Reason: ReasonBusy}
	}

	var taken *FileContext
	contextPath, name := req.ContextPath, ""
	if contextPath != "" {
		name = DisplayName(contextPath)
	} else if c.file != nil {
		taken = c.file
		contextPath, name = taken.Path, taken.DisplayName
	}
	c.pending = &PendingExecution{
		Prompt:      prompt,
		Model:       model,
		ContextPath: contextPath,
		StartedAt:   time.Now(),
	}
	started := c.pending.StartedAt
	c.view.BeginRun(core.RunningPlaceholder)
	hooks := append([]EntryHook(nil), c.hooks...)
	c.mu.Unlock()

	label := Label(prompt, name)
	c.logger.Info("running prompt", "model", model, "has_context", contextPath != "")

	result, entry := c.execute(ctx, core.RunRequest{
		Prompt:      prompt,
		Model:       model,
		ContextPath: contextPath,
	}, label, taken)
	c.metrics.Record(model, result.Outcome, time.Since(started))

	if entry != nil {
		for _, h := range hooks {
			h(*entry)
		}
	}
	return result
}

// execute runs the backend call and applies its result to the view. The
// pending execution is always finished, even when the backend panics.
func (c *Coordinator) execute(ctx context.Context, req core.RunRequest, label string, taken *FileContext) (Result, *history.Entry) {
	defer c.finish(taken)

	res, err := c.invoke(ctx, req)

	result := Result{Label: label}
	var entry *history.Entry
	switch {
	case err != nil:
		err = asAssistantError(err)
		msg := core.UserMessage(err, core.UnknownErrorText)
		c.view.ShowError(msg)
		result.Outcome, result.Err, result.Error = OutcomeFailed, err, msg
		c.logger.Warn("prompt failed", "model", req.Model, "error", err)
	case strings.TrimSpace(res.Output) == "":
		c.view.ClearOutput()
		result.Outcome = OutcomeEmpty
		c.logger.Info("prompt returned no output", "model", req.Model)
	default:
		html := c.renderer.Render(res.Output)
		c.view.ShowRendered(html, res.Output)
		e := c.log.Append(label, html, history.WithRaw(res.Output), history.WithModel(req.Model))
		entry = &e
		c.view.HistoryChanged()
		result.Outcome, result.Output, result.Raw, result.Entry = OutcomeSucceeded, html, res.Output, entry
	}
	return result, entry
}

// invoke calls the backend, turning a panic into an execution error.
func (c *Coordinator) invoke(ctx context.Context, req core.RunRequest) (res core.RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("assistant backend panicked", "panic", r)
			err = core.ErrAssistant(fmt.Sprintf("Copilot run failed: %v", r))
		}
	}()
	return c.backend.RunAssistant(ctx, req)
}

// finish destroys the pending execution, consumes the file context taken at
// start and re-enables controls per token presence. A file selected while
// the run was in flight is kept for the next submission.
func (c *Coordinator) finish(taken *FileContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil
	if taken != nil && c.file == taken {
		c.file = nil
		c.view.SetFile("", "")
	}
	c.view.EndRun(c.gate.HasToken())
}

// Pending returns a copy of the in-flight execution, if any.
func (c *Coordinator) Pending() (PendingExecution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return PendingExecution{}, false
	}
	return *c.pending, true
}

// SelectFile attaches path to the next submission.
func (c *Coordinator) SelectFile(path string) FileContext {
	fc := &FileContext{Path: path, DisplayName: DisplayName(path)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = fc
	c.view.SetFile(fc.Path, fc.DisplayName)
	return *fc
}

// ClearFile drops the selected file.
func (c *Coordinator) ClearFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = nil
	c.view.SetFile("", "")
}

// File returns the selected file.
func (c *Coordinator) File() (FileContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return FileContext{}, false
	}
	return *c.file, true
}

// SetTokenPresent applies token presence to the controls. While a run is in
// flight the controls stay disabled; finish applies the value afterwards.
func (c *Coordinator) SetTokenPresent(hasToken bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.view.SetControlsEnabled(hasToken)
	}
}

// Metrics returns the execution metrics.
func (c *Coordinator) Metrics() *Metrics {
	return c.metrics
}

func asAssistantError(err error) error {
	if core.HasCode(err, core.CodeAssistantFailed) {
		return err
	}
	return core.ErrAssistant(core.UserMessage(err, core.UnknownErrorText)).WithCause(err)
}
