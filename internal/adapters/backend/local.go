// Package backend assembles the local implementation of core.Backend from
// the GitHub and copilot adapters.
package backend

import (
	"context"

	"github.com/ghc-desk/ghc/internal/adapters/cli"
	"github.com/ghc-desk/ghc/internal/adapters/github"
	"github.com/ghc-desk/ghc/internal/config"
	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/events"
	"github.com/ghc-desk/ghc/internal/logging"
)

// Runner executes prompts and probes the CLI.
type Runner interface {
	Run(ctx context.Context, req core.RunRequest) (core.RunResult, error)
	Status(ctx context.Context) (core.CapabilityReport, error)
}

// Installer installs the CLI.
type Installer interface {
	Install(ctx context.Context) (string, error)
}

// LoginStarter starts a device login whose completion is reported
// asynchronously.
type LoginStarter interface {
	Start(ctx context.Context) (core.DeviceLogin, error)
}

// Local runs everything on this machine. Login completion is published on
// the event bus as a login_complete event.
type Local struct {
	store     *github.TokenStore
	login     LoginStarter
	runner    Runner
	installer Installer
	logger    *logging.Logger
}

// Parts lets tests and callers swap individual adapters.
type Parts struct {
	Store     *github.TokenStore
	Login     LoginStarter
	Runner    Runner
	Installer Installer
}

// New wires the adapters described by cfg. base bounds background login
// polling; completions are published on bus under sessionID.
func New(base context.Context, cfg *config.Config, bus *events.EventBus, sessionID string, logger *logging.Logger) (*Local, *github.DeviceFlow) {
	if logger == nil {
		logger = logging.NewNop()
	}
	store := github.NewTokenStore(cfg.Auth.EnvFile, cfg.Auth.TokenVar)

	flow := github.NewDeviceFlow(base, github.DeviceConfig{
		ClientID: cfg.Auth.ClientID,
		Scope:    cfg.Auth.Scope,
		Timeout:  cfg.Auth.LoginTimeout,
	}, store, PublishLogin(bus, sessionID), logger)

	copilot := cli.NewCopilot(cli.Config{
		Path:     cfg.Assistant.Path,
		Timeout:  cfg.Assistant.Timeout,
		TokenVar: store.Key(),
	}, store.Token, logger)

	return NewLocal(Parts{
		Store:     store,
		Login:     flow,
		Runner:    copilot,
		Installer: cli.NewInstaller(logger),
	}, logger), flow
}

// NewLocal assembles a backend from parts.
func NewLocal(p Parts, logger *logging.Logger) *Local {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Local{
		store:     p.Store,
		login:     p.Login,
		runner:    p.Runner,
		installer: p.Installer,
		logger:    logger.WithComponent("backend"),
	}
}

// PublishLogin returns a completion callback that publishes on bus.
func PublishLogin(bus *events.EventBus, sessionID string) github.CompleteFunc {
	return func(res core.LoginResult) {
		bus.PublishPriority(events.NewLoginCompleteEvent(sessionID, string(res.Status), res.Message))
	}
}

// TokenStatus reports the stored token.
func (l *Local) TokenStatus(ctx context.Context) (core.TokenStatus, error) {
	if err := ctx.Err(); err != nil {
		return core.TokenStatus{}, err
	}
	return l.store.Status(), nil
}

// StartDeviceLogin begins the device flow.
func (l *Local) StartDeviceLogin(ctx context.Context) (core.DeviceLogin, error) {
	return l.login.Start(ctx)
}

// ClearToken removes the token from the environment and the .env file.
func (l *Local) ClearToken(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.store.Clear(); err != nil {
		return core.ErrLogout(core.UserMessage(err, "Failed to clear GitHub token.")).WithCause(err)
	}
	return nil
}

// RunAssistant runs one prompt through the CLI.
func (l *Local) RunAssistant(ctx context.Context, req core.RunRequest) (core.RunResult, error) {
	return l.runner.Run(ctx, req)
}

// CapabilityStatus probes the CLI installation.
func (l *Local) CapabilityStatus(ctx context.Context) (core.CapabilityReport, error) {
	return l.runner.Status(ctx)
}

// InstallCLI installs the CLI with the platform package manager.
func (l *Local) InstallCLI(ctx context.Context) (string, error) {
	return l.installer.Install(ctx)
}

var _ core.Backend = (*Local)(nil)
