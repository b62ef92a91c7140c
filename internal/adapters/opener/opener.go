// Package opener opens links in the user's browser.
package opener

import (
	"fmt"
	"net/url"

	"github.com/pkg/browser"

	"github.com/ghc-desk/ghc/internal/logging"
)

// Browser opens http(s) URLs with the platform handler.
type Browser struct {
	open   func(string) error
	logger *logging.Logger
}

// New returns a Browser backed by the system URL handler.
func New(logger *logging.Logger) *Browser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Browser{open: browser.OpenURL, logger: logger.WithComponent("opener")}
}

// Open launches rawURL. Only absolute http and https URLs are accepted.
func (b *Browser) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) url", rawURL)
	}
	if err := b.open(u.String()); err != nil {
		b.logger.Warn("opening url failed", "url", u.Redacted(), "error", err)
		return fmt.Errorf("opening %s: %w", u.Host, err)
	}
	b.logger.Debug("opened url", "url", u.Redacted())
	return nil
}
