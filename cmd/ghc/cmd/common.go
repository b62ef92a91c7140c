package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/ghc-desk/ghc/internal/adapters/archive"
	"github.com/ghc-desk/ghc/internal/adapters/backend"
	"github.com/ghc-desk/ghc/internal/adapters/cli"
	"github.com/ghc-desk/ghc/internal/adapters/github"
	"github.com/ghc-desk/ghc/internal/adapters/notify"
	"github.com/ghc-desk/ghc/internal/adapters/opener"
	"github.com/ghc-desk/ghc/internal/app"
	"github.com/ghc-desk/ghc/internal/clip"
	"github.com/ghc-desk/ghc/internal/config"
	"github.com/ghc-desk/ghc/internal/events"
	"github.com/ghc-desk/ghc/internal/logging"
)

const eventBufferSize = 256

// runtimeOptions selects per-command wiring.
type runtimeOptions struct {
	// LogToFile sends logs to a file so they do not corrupt a full-screen UI.
	LogToFile bool
	// Archive opens the configured cross-session archive.
	Archive bool
}

// runtime holds everything one command invocation wires together.
type runtime struct {
	cfg     *config.Config
	logger  *logging.Logger
	bus     *events.EventBus
	app     *app.App
	flow    *github.DeviceFlow
	watcher *github.Watcher
	logFile *os.File
}

func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, toFile bool) (*logging.Logger, *os.File, error) {
	level := cfg.Log.Level
	if quiet {
		level = "error"
	}
	if !toFile {
		return logging.New(logging.Config{Level: level, Format: cfg.Log.Format, Output: os.Stderr}), nil, nil
	}

	path := cfg.Log.File
	if path == "" {
		dir, err := config.UserConfigDir()
		if err != nil {
			return logging.New(logging.Config{Level: level, Format: "json", Output: io.Discard}), nil, nil
		}
		path = filepath.Join(dir, "ghc.log")
	}
	f, err := logging.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Config{Level: level, Format: "json", Output: f}), f, nil
}

func openArchive(cfg *config.Config) (archive.Store, error) {
	kind := cfg.History.Archive
	if kind == "" || kind == archive.KindOff {
		return archive.Open(archive.KindOff, "")
	}
	path := cfg.History.Path
	if path == "" {
		dir, err := config.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving history path: %w", err)
		}
		path = archive.DefaultPath(dir, kind)
	}
	return archive.Open(kind, path)
}

// newRuntime loads configuration and wires the app. The caller must Close
// the result.
func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logFile, err := newLogger(cfg, opts.LogToFile)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		bus:     events.New(eventBufferSize),
		logFile: logFile,
	}
	sessionID := uuid.New().String()

	store, err := archive.Open(archive.KindOff, "")
	if opts.Archive {
		store, err = openArchive(cfg)
	}
	if err != nil {
		logger.Warn("history archive unavailable", "error", err)
		store, _ = archive.Open(archive.KindOff, "")
	}

	local, flow := backend.New(ctx, cfg, rt.bus, sessionID, logger)
	rt.flow = flow

	a, err := app.New(app.Options{
		Config:    cfg,
		Backend:   local,
		Bus:       rt.bus,
		Logger:    logger,
		Opener:    opener.New(logger),
		Clipboard: clip.New(clip.Options{}),
		Notifier:  notify.New(cfg.Notify.Desktop, logger),
		Archive:   store,
		SessionID: sessionID,
	})
	if err != nil {
		_ = store.Close()
		rt.Close()
		return nil, err
	}
	rt.app = a

	rt.watchToken(sessionID)
	return rt, nil
}

// watchToken republishes .env changes as token_changed events. A missing
// home directory only disables the watch.
func (rt *runtime) watchToken(sessionID string) {
	path, err := github.NewTokenStore(rt.cfg.Auth.EnvFile, rt.cfg.Auth.TokenVar).Path()
	if err != nil {
		rt.logger.Debug("token watch disabled", "error", err)
		return
	}
	w, err := github.Watch(path, func(p string) {
		rt.bus.Publish(events.NewTokenChangedEvent(sessionID, p))
	}, rt.logger)
	if err != nil {
		rt.logger.Debug("token watch disabled", "path", path, "error", err)
		return
	}
	rt.watcher = w
}

// Close stops the login poller and the app, then removes context copies
// older than the run timeout. Newer ones may serve another instance.
func (rt *runtime) Close() {
	if rt.flow != nil {
		rt.flow.Cancel()
		rt.flow.Wait()
	}
	if rt.watcher != nil {
		_ = rt.watcher.Close()
	}
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			rt.logger.Warn("closing app", "error", err)
		}
	}
	if n := rt.bus.DroppedCount(); n > 0 {
		rt.logger.Debug("event bus dropped events", "count", n)
	}
	rt.bus.Close()

	if n, err := cli.Cleanup(cli.ContextDir(""), rt.cfg.Assistant.Timeout, time.Now()); err != nil {
		rt.logger.Debug("context cleanup failed", "error", err)
	} else if n > 0 {
		rt.logger.Debug("removed context copies", "count", n)
	}
	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
}
