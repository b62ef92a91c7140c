// Package notify sends desktop notifications.
package notify

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/logging"
)

const appName = "ghc"

// DefaultLongRun is how long a run must take before its completion is
// announced.
const DefaultLongRun = 20 * time.Second

// Notifier posts desktop notifications when enabled. Delivery failures are
// logged and otherwise ignored.
type Notifier struct {
	enabled bool
	longRun time.Duration
	send    func(title, message string, icon any) error
	logger  *logging.Logger
}

// New creates a notifier. A disabled notifier drops everything.
func New(enabled bool, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	beeep.AppName = appName
	return &Notifier{
		enabled: enabled,
		longRun: DefaultLongRun,
		send:    beeep.Notify,
		logger:  logger.WithComponent("notify"),
	}
}

// Enabled reports whether notifications are delivered.
func (n *Notifier) Enabled() bool {
	return n != nil && n.enabled
}

// Send posts one notification.
func (n *Notifier) Send(title, message string) error {
	if !n.Enabled() {
		return nil
	}
	// Empty icon lets beeep pick the platform default.
	if err := n.send(title, message, ""); err != nil {
		n.logger.Debug("notification failed", "error", err)
		return err
	}
	return nil
}

// LoginCompleted announces the end of a device login.
func (n *Notifier) LoginCompleted(res core.LoginResult) {
	if res.OK() {
		_ = n.Send("GitHub login", "Signed in. "+res.Message)
		return
	}
	_ = n.Send("GitHub login failed", res.Message)
}

// RunCompleted announces a run that took at least the long-run threshold.
func (n *Notifier) RunCompleted(label string, took time.Duration, failed bool) {
	if !n.Enabled() || took < n.longRun {
		return
	}
	title := "Copilot finished"
	if failed {
		title = "Copilot failed"
	}
	_ = n.Send(title, fmt.Sprintf("%s (%s)", label, took.Round(time.Second)))
}
