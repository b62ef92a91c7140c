package core

import (
	"strings"
	"time"
)

// DefaultModel is used when the caller does not pick one.
const DefaultModel = "claude-sonnet-4.5"

// SupportedModels lists the models offered by the model selector, default first.
var SupportedModels = []string{
	"claude-sonnet-4.5",
	"claude-sonnet-4",
	"claude-haiku-4.5",
	"gpt-5",
	"gpt-5-mini",
	"gpt-4.1",
}

// IsSupportedModel reports whether model is in the given list.
func IsSupportedModel(models []string, model string) bool {
	for _, m := range models {
		if m == model {
			return true
		}
	}
	return false
}

// BillingURL is the premium request usage page.
const BillingURL = "https://github.com/settings/billing/premium_requests_usage"

// User-facing texts shared by the adapters.
const (
	RunningPlaceholder = "Running copilot..."
	UnknownErrorText   = "Unknown error"
	InstallFailedText  = "Copilot install failed."
)

// Timer defaults.
const (
	DefaultStatusTTL       = 10 * time.Second
	DefaultCopyStatusTTL   = 3 * time.Second
	DefaultCopyFeedbackTTL = 1500 * time.Millisecond
)

// reloadSignal marks an install message that needs an application reload.
const reloadSignal = "installed via winget"

// NeedsReload reports whether an install message asks for a reload.
func NeedsReload(installMessage string) bool {
	return strings.Contains(strings.ToLower(installMessage), reloadSignal)
}
