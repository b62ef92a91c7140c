// Package app owns the session, the execution coordinator, the capability
// poller and the history log, and exposes one method per user action. The
// terminal and web front ends are thin adapters over App.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ghc-desk/ghc/internal/adapters/archive"
	"github.com/ghc-desk/ghc/internal/adapters/notify"
	"github.com/ghc-desk/ghc/internal/capability"
	"github.com/ghc-desk/ghc/internal/clip"
	"github.com/ghc-desk/ghc/internal/config"
	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/events"
	"github.com/ghc-desk/ghc/internal/history"
	"github.com/ghc-desk/ghc/internal/logging"
	"github.com/ghc-desk/ghc/internal/render"
	"github.com/ghc-desk/ghc/internal/service"
	"github.com/ghc-desk/ghc/internal/session"
	"github.com/ghc-desk/ghc/internal/view"
)

// Status messages owned by the app layer.
const (
	CopiedMessage     = "Copied to clipboard."
	CopyFailedMessage = "Copy failed."
)

const archiveTimeout = 5 * time.Second

// LinkOpener opens a URL outside the app.
type LinkOpener interface {
	Open(url string) error
}

// Clipboard receives copied output.
type Clipboard interface {
	WriteAll(text string) (clip.Result, error)
}

// Options configures an App. Only Backend is required.
type Options struct {
	Config    *config.Config
	Backend   core.Backend
	Bus       *events.EventBus
	Logger    *logging.Logger
	Opener    LinkOpener
	Clipboard Clipboard
	Notifier  *notify.Notifier
	Archive   archive.Store
	SessionID string
}

// App is the controller behind every front end.
type App struct {
	cfg       *config.Config
	sessionID string
	bus       *events.EventBus
	ownsBus   bool
	logger    *logging.Logger

	view     *view.State
	session  *session.Manager
	coord    *service.Coordinator
	poller   *capability.Poller
	history  *history.Log
	renderer *render.Renderer

	opener    LinkOpener
	clipboard Clipboard
	notifier  *notify.Notifier
	archive   archive.Store

	models      []string
	copyTTL     time.Duration
	feedbackTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New builds the app and starts listening for login completions and token
// file changes. Call Start to run the initial reconciliation.
func New(opts Options) (*App, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("app: backend is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.New().String()
	}
	if opts.Archive == nil {
		opts.Archive, _ = archive.Open(archive.KindOff, "")
	}
	models := cfg.Assistant.Models
	if len(models) == 0 {
		models = core.SupportedModels
	}
	defaultModel := cfg.Assistant.DefaultModel
	if defaultModel == "" {
		defaultModel = models[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:       cfg,
		sessionID: opts.SessionID,
		bus:       opts.Bus,
		logger:    opts.Logger.WithSession(opts.SessionID).WithComponent("app"),
		history:   history.NewLog(),
		renderer:  render.New(),
		opener:    opts.Opener,
		clipboard: opts.Clipboard,
		notifier:  opts.Notifier,
		archive:   opts.Archive,
		models:    models,
		ctx:       ctx,
		cancel:    cancel,
	}
	a.copyTTL = durationOr(cfg.UI.CopyStatusTTL, core.DefaultCopyStatusTTL)
	a.feedbackTTL = durationOr(cfg.UI.CopyFeedbackTTL, core.DefaultCopyFeedbackTTL)
	if a.bus == nil {
		a.bus = events.New(256)
		a.ownsBus = true
	}

	a.view = view.NewState(defaultModel, a.publishField)
	a.session = session.NewManager(opts.Backend, a.view, session.Options{
		StatusTTL: cfg.UI.StatusTTL,
		Logger:    opts.Logger,
	})
	a.coord = service.NewCoordinator(opts.Backend, a.session, a.view, a.history, service.Options{
		DefaultModel: defaultModel,
		Renderer:     a.renderer,
		Logger:       opts.Logger,
	})
	a.session.BindControls(a.coord)
	a.coord.OnAppend(a.entryAppended)
	a.poller = capability.NewPoller(opts.Backend, a.view, opts.Logger)

	loginCh := a.bus.SubscribePriority(events.TypeLoginComplete)
	tokenCh := a.bus.Subscribe(events.TypeTokenChanged)
	a.wg.Add(1)
	go a.listen(loginCh, tokenCh)

	return a, nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (a *App) publishField(field string) {
	a.bus.Publish(events.NewStateChangedEvent(a.sessionID, field))
}

func (a *App) listen(loginCh, tokenCh <-chan events.Event) {
	defer a.wg.Done()
	defer a.bus.Unsubscribe(loginCh)
	defer a.bus.Unsubscribe(tokenCh)
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-loginCh:
			if !ok {
				return
			}
			lc, isLogin := ev.(events.LoginCompleteEvent)
			if !isLogin || lc.SessionID() != a.sessionID {
				continue
			}
			res := core.LoginResult{Status: core.LoginStatus(lc.Status), Message: lc.Message}
			if a.session.CompleteLogin(a.ctx, res) {
				a.notifier.LoginCompleted(res)
			}
		case ev, ok := <-tokenCh:
			if !ok {
				return
			}
			a.logger.Debug("token file changed", "event", ev.EventType())
			a.session.RefreshTokenStatus(a.ctx)
		}
	}
}

// Start reconciles token presence and the CLI installation concurrently.
func (a *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.session.RefreshTokenStatus(gctx)
		return nil
	})
	g.Go(func() error {
		a.refreshCapability(gctx)
		return nil
	})
	return g.Wait()
}

func (a *App) refreshCapability(ctx context.Context) capability.Status {
	st := a.poller.Refresh(ctx)
	a.bus.Publish(events.NewCapabilityUpdatedEvent(a.sessionID, st.Installed, st.Version))
	return st
}

// Submit runs one prompt. An empty model uses the selected model.
func (a *App) Submit(ctx context.Context, req service.Request) service.Result {
	if req.Model == "" {
		req.Model = a.view.Snapshot().Model
	}
	start := time.Now()
	res := a.coord.Submit(ctx, req)
	if res.Outcome != service.OutcomeIgnored {
		a.notifier.RunCompleted(res.Label, time.Since(start), res.Outcome == service.OutcomeFailed)
	}
	return res
}

func (a *App) entryAppended(e history.Entry) {
	a.bus.Publish(events.NewHistoryAppendedEvent(a.sessionID, e.ID, e.Label, a.history.Len()-1))

	ctx, cancel := context.WithTimeout(a.ctx, archiveTimeout)
	defer cancel()
	if err := a.archive.Append(ctx, archive.FromEntry(a.sessionID, e)); err != nil {
		a.logger.Warn("archiving history entry failed", "error", err)
	}
}

// ToggleAuth logs out when a token is present and starts a login otherwise.
func (a *App) ToggleAuth(ctx context.Context) error {
	if a.session.HasToken() {
		return a.Logout(ctx)
	}
	_, err := a.Login(ctx)
	return err
}

// Login starts the device flow and opens the verification page.
func (a *App) Login(ctx context.Context) (core.DeviceLogin, error) {
	dl, err := a.session.StartLogin(ctx)
	if err != nil {
		return dl, err
	}
	if a.opener != nil && dl.AuthURL != "" {
		if err := a.opener.Open(dl.AuthURL); err != nil {
			a.logger.Warn("opening verification page failed", "error", err)
		}
	}
	return dl, nil
}

// Logout clears the token.
func (a *App) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}

// SelectFile attaches path to the next prompt. An empty path clears it.
func (a *App) SelectFile(path string) service.FileContext {
	if path == "" {
		a.coord.ClearFile()
		return service.FileContext{}
	}
	return a.coord.SelectFile(path)
}

// Copy puts the current output on the clipboard.
func (a *App) Copy() error {
	snap := a.view.Snapshot()
	if !snap.CopyVisible || snap.OutputText == "" {
		return core.ErrValidation(core.CodeNothingToCopy, "Nothing to copy.")
	}
	if a.clipboard == nil {
		a.view.FlashStatus(CopyFailedMessage, a.copyTTL)
		return core.ErrExecution(core.CodeClipboardFailed, CopyFailedMessage)
	}
	res, err := a.clipboard.WriteAll(snap.OutputText)
	if err != nil {
		a.logger.Warn("copy failed", "error", err)
		a.view.FlashStatus(CopyFailedMessage, a.copyTTL)
		return err
	}
	a.logger.Debug("copied output", "method", res.Method)
	a.view.FlashStatus(CopiedMessage, a.copyTTL)
	a.view.MarkCopied(a.feedbackTTL)
	return nil
}

// ToggleHistory flips the history panel and returns the new visibility.
func (a *App) ToggleHistory() bool {
	visible := a.history.ToggleVisibility()
	a.view.SetHistoryVisible(visible)
	return visible
}

// OpenBilling opens the premium request usage page.
func (a *App) OpenBilling() error {
	return a.openLink(a.cfg.Links.BillingURL)
}

// OpenVerification opens the device-code page again during a login.
func (a *App) OpenVerification() error {
	url := a.session.Current().VerificationURL
	if url == "" {
		return core.ErrValidation("NO_LOGIN_IN_PROGRESS", "No login in progress.")
	}
	return a.openLink(url)
}

func (a *App) openLink(url string) error {
	if a.opener == nil {
		return core.ErrExecution("NO_OPENER", "Cannot open links here: "+url)
	}
	return a.opener.Open(url)
}

// Install installs the CLI and refreshes the capability label.
func (a *App) Install(ctx context.Context) (string, error) {
	msg, err := a.poller.Install(ctx)
	if err == nil {
		st := a.poller.Status()
		a.bus.Publish(events.NewCapabilityUpdatedEvent(a.sessionID, st.Installed, st.Version))
	}
	return msg, err
}

// Reload hides the reload hint and repeats the startup reconciliation.
func (a *App) Reload(ctx context.Context) error {
	a.view.SetReloadVisible(false)
	return a.Start(ctx)
}

// SelectModel changes the model used by later prompts.
func (a *App) SelectModel(model string) error {
	if !core.IsSupportedModel(a.models, model) {
		return core.ErrValidation(core.CodeUnknownModel, fmt.Sprintf("Unknown model: %s", model))
	}
	a.view.SetModel(model)
	return nil
}

// Models lists the selectable models, default first.
func (a *App) Models() []string {
	return append([]string(nil), a.models...)
}

// Snapshot returns the current view state.
func (a *App) Snapshot() view.Snapshot { return a.view.Snapshot() }

// Session returns the authentication state.
func (a *App) Session() session.Session { return a.session.Current() }

// History returns the entries of this session, oldest first.
func (a *App) History() []history.Entry { return a.history.Entries() }

// Capability returns the last capability probe.
func (a *App) Capability() capability.Status { return a.poller.Status() }

// Metrics returns execution counters.
func (a *App) Metrics() *service.Metrics { return a.coord.Metrics() }

// Bus exposes the event bus for front ends.
func (a *App) Bus() *events.EventBus { return a.bus }

// SessionID identifies this process's session on the bus.
func (a *App) SessionID() string { return a.sessionID }

// Renderer is the markdown renderer used for output.
func (a *App) Renderer() *render.Renderer { return a.renderer }

// Close stops background work, timers and the archive.
func (a *App) Close() error {
	var err error
	a.once.Do(func() {
		a.cancel()
		a.wg.Wait()
		a.view.Close()
		err = a.archive.Close()
		if a.ownsBus {
			a.bus.Close()
		}
	})
	return err
}
