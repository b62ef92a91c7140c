// Package capability tracks whether the copilot CLI is installed.
package capability

import (
	"context"
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/logging"
	"github.com/ghc-desk/ghc/internal/view"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// Status is the reconciled capability. Version is the extracted x.y.z
// number, empty when unknown.
type Status struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
}

// ParseVersion extracts the first x.y.z number from raw.
func ParseVersion(raw string) string {
	return versionPattern.FindString(raw)
}

// Label is the text shown next to the model selector.
func (s Status) Label() string {
	switch {
	case !s.Installed:
		return "copilot not installed"
	case s.Version != "":
		return "copilot " + s.Version
	default:
		return "copilot"
	}
}

// Poller refreshes the capability status and runs installs. Concurrent
// refreshes share one backend query.
type Poller struct {
	backend core.Backend
	view    *view.State
	logger  *logging.Logger
	group   singleflight.Group

	mu     sync.RWMutex
	status Status
	// started numbers queries; applied is the newest one whose result is kept.
	started uint64
	applied uint64
}

// NewPoller creates a poller with an unknown (not installed) status.
func NewPoller(backend core.Backend, v *view.State, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		backend: backend,
		view:    v,
		logger:  logger.WithComponent("capability"),
	}
}

// Refresh queries the CLI. It never fails: query errors degrade to
// "not installed".
func (p *Poller) Refresh(ctx context.Context) Status {
	v, _, _ := p.group.Do("refresh", func() (interface{}, error) {
		return p.query(ctx), nil
	})
	return v.(Status)
}

// query asks the backend directly. A result older than one already
// applied is dropped, so a slow query cannot undo a newer answer.
func (p *Poller) query(ctx context.Context) Status {
	p.mu.Lock()
	p.started++
	seq := p.started
	p.mu.Unlock()

	var st Status
	report, err := p.backend.CapabilityStatus(ctx)
	if err != nil {
		p.logger.Debug("capability query failed", "error", core.ErrCapabilityQuery(err.Error()))
	} else {
		st = Status{Installed: report.Installed}
		if report.Installed {
			st.Version = ParseVersion(report.Version)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq < p.applied {
		p.logger.Debug("stale capability query dropped", "installed", st.Installed)
		return p.status
	}
	p.applied = seq
	p.status = st
	p.view.SetCapability(st.Label(), !st.Installed)
	p.logger.Debug("capability refreshed", "installed", st.Installed, "version", st.Version)
	return st
}

// Status returns the last refreshed status.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Install runs the platform installer, shows its message, re-checks the CLI
// and raises the reload hint when the installer asks for one. The re-check
// bypasses the shared refresh so it never reuses a query started before the
// install. The returned error is already shown in the status area.
func (p *Poller) Install(ctx context.Context) (string, error) {
	p.view.SetInstalling(true)
	defer p.view.SetInstalling(false)
	p.view.SetStatus("Installing Copilot CLI...")

	msg, err := p.backend.InstallCLI(ctx)
	if err != nil {
		if !core.HasCode(err, core.CodeInstallFailed) {
			err = core.ErrInstall(core.UserMessage(err, core.InstallFailedText)).WithCause(err)
		}
		p.logger.Warn("copilot install failed", "error", err)
		p.view.SetStatus(core.UserMessage(err, core.InstallFailedText))
		return "", err
	}

	p.logger.Info("copilot install finished", "message", msg)
	p.view.SetStatus(msg)
	p.query(ctx)
	if core.NeedsReload(msg) {
		p.view.SetReloadVisible(true)
	}
	return msg, nil
}
