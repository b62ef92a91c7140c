package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/logging"
)

// Device flow defaults.
const (
	DefaultClientID     = "Ov23liTEmQZzOQ2bdFcm"
	DefaultScope        = "read:user"
	DefaultLoginTimeout = 15 * time.Minute
	minPollInterval     = 5
)

// Messages carried by the login completion.
const (
	LoginSavedMessage     = "GitHub token saved to ~/.env"
	expiredMessage        = "Device code expired. Please try again."
	deniedMessage         = "Access denied. Please try again."
	timedOutMessage       = "Login timed out. Please try again."
	cancelledLoginMessage = "Login cancelled."
)

// DeviceConfig configures the device flow.
type DeviceConfig struct {
	ClientID string
	Scope    string
	// Timeout bounds the polling phase.
	Timeout time.Duration
	// Endpoint overrides GitHub's endpoints, for tests.
	Endpoint *oauth2.Endpoint
	// HTTPClient is used for every OAuth request when set.
	HTTPClient *http.Client
	// MinInterval is the smallest poll interval in seconds.
	MinInterval int64
}

// CompleteFunc receives the single completion of a login.
type CompleteFunc func(core.LoginResult)

// DeviceFlow runs the OAuth device authorization grant. Start returns as
// soon as the user code is known; polling continues in the background and
// ends with one call to the completion callback.
type DeviceFlow struct {
	oauth    *oauth2.Config
	client   *http.Client
	timeout  time.Duration
	floor    int64
	store    *TokenStore
	complete CompleteFunc
	logger   *logging.Logger

	// base outlives individual requests; polling stops when it is done.
	base context.Context

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeviceFlow creates a flow that stores the token in store and reports
// completion through complete.
func NewDeviceFlow(base context.Context, cfg DeviceConfig, store *TokenStore, complete CompleteFunc, logger *logging.Logger) *DeviceFlow {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLoginTimeout
	}
	endpoint := oauthgithub.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	if logger == nil {
		logger = logging.NewNop()
	}
	if complete == nil {
		complete = func(core.LoginResult) {}
	}
	if base == nil {
		base = context.Background()
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = minPollInterval
	}
	return &DeviceFlow{
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Scopes:   []string{cfg.Scope},
			Endpoint: endpoint,
		},
		client:   cfg.HTTPClient,
		timeout:  cfg.Timeout,
		floor:    cfg.MinInterval,
		store:    store,
		complete: complete,
		logger:   logger.WithComponent("device_flow"),
		base:     base,
	}
}

func (f *DeviceFlow) withClient(ctx context.Context) context.Context {
	if f.client != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, f.client)
	}
	return ctx
}

// Start requests a device code and begins polling for the token. A login
// already in progress is abandoned without reporting completion.
func (f *DeviceFlow) Start(ctx context.Context) (core.DeviceLogin, error) {
	da, err := f.oauth.DeviceAuth(f.withClient(ctx))
	if err != nil {
		f.logger.Warn("device code request failed", "error", err)
		return core.DeviceLogin{}, core.ErrAuthRequest(fmt.Sprintf("Failed to request device code: %v", err)).WithCause(err)
	}

	authURL := da.VerificationURIComplete
	if authURL == "" {
		authURL = da.VerificationURI
	}
	login := core.DeviceLogin{
		AuthURL:  authURL,
		UserCode: da.UserCode,
		Interval: int(da.Interval),
	}
	if !da.Expiry.IsZero() {
		login.ExpiresIn = int(time.Until(da.Expiry).Round(time.Second).Seconds())
	}

	// GitHub asks for at least five seconds between polls.
	if da.Interval < f.floor {
		da.Interval = f.floor
	}

	pollCtx, cancel := context.WithTimeout(f.base, f.timeout)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	f.cancel = cancel
	f.wg.Add(1)
	f.mu.Unlock()

	go f.poll(pollCtx, cancel, gen, da)

	f.logger.Info("device login started", "verification_uri", da.VerificationURI, "interval", da.Interval)
	return login, nil
}

func (f *DeviceFlow) poll(ctx context.Context, cancel context.CancelFunc, gen uint64, da *oauth2.DeviceAuthResponse) {
	defer f.wg.Done()
	defer cancel()

	result := f.await(ctx, da)

	f.mu.Lock()
	current := gen == f.gen
	if current {
		f.cancel = nil
	}
	f.mu.Unlock()
	if !current {
		f.logger.Debug("superseded device login dropped", "status", result.Status)
		return
	}
	f.logger.Info("device login finished", "status", result.Status)
	f.complete(result)
}

func (f *DeviceFlow) await(ctx context.Context, da *oauth2.DeviceAuthResponse) core.LoginResult {
	tok, err := f.oauth.DeviceAccessToken(f.withClient(ctx), da)
	if err != nil {
		return core.LoginResult{Status: core.LoginError, Message: loginErrorMessage(ctx, da, err)}
	}
	if err := f.store.Save(tok.AccessToken); err != nil {
		return core.LoginResult{Status: core.LoginError, Message: core.UserMessage(err, core.UnknownErrorText)}
	}
	return core.LoginResult{Status: core.LoginOK, Message: LoginSavedMessage}
}

func loginErrorMessage(ctx context.Context, da *oauth2.DeviceAuthResponse, err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		switch re.ErrorCode {
		case "expired_token":
			return expiredMessage
		case "access_denied":
			return deniedMessage
		default:
			return "OAuth error: " + re.ErrorCode
		}
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		if !da.Expiry.IsZero() && !time.Now().Before(da.Expiry) {
			return expiredMessage
		}
		return timedOutMessage
	case errors.Is(ctx.Err(), context.Canceled):
		return cancelledLoginMessage
	}
	return fmt.Sprintf("Failed to poll token: %v", err)
}

// Cancel abandons a pending login without reporting completion.
func (f *DeviceFlow) Cancel() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
	f.mu.Unlock()
}

// Wait blocks until background polling has stopped.
func (f *DeviceFlow) Wait() {
	f.wg.Wait()
}
