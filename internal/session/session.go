// Package session tracks whether the user is signed in to GitHub and drives
// the device-code login and logout transitions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/logging"
	"github.com/ghc-desk/ghc/internal/view"
)

// Status is the authentication state.
type Status int

const (
	StatusUnknown Status = iota
	StatusUnauthenticated
	StatusAuthenticating
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is a copy of the current authentication state. The device-code
// fields are only set while Authenticating.
type Session struct {
	Status          Status     `json:"-"`
	State           string     `json:"state"`
	HasToken        bool       `json:"has_token"`
	TokenTail       string     `json:"token_tail,omitempty"`
	UserCode        string     `json:"user_code,omitempty"`
	VerificationURL string     `json:"verification_url,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// ControlsSink receives token presence so prompt controls can follow it.
type ControlsSink interface {
	SetTokenPresent(hasToken bool)
}

// Options configures a Manager.
type Options struct {
	StatusTTL time.Duration
	Logger    *logging.Logger
	Now       func() time.Time
}

// Manager owns the single Session of the process.
type Manager struct {
	backend core.Backend
	view    *view.State
	ttl     time.Duration
	logger  *logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	session  Session
	controls ControlsSink
}

// NewManager creates a manager in the Unknown state.
func NewManager(backend core.Backend, v *view.State, opts Options) *Manager {
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = core.DefaultStatusTTL
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		backend: backend,
		view:    v,
		ttl:     opts.StatusTTL,
		logger:  opts.Logger.WithComponent("session"),
		now:     opts.Now,
		session: Session{Status: StatusUnknown, State: StatusUnknown.String()},
	}
}

// BindControls registers the sink notified on every token reconciliation.
func (m *Manager) BindControls(c ControlsSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.controls = c
}

// Current returns a copy of the session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// HasToken reports the last observed token presence.
func (m *Manager) HasToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.HasToken
}

// CanSubmit reports whether prompts may be submitted.
func (m *Manager) CanSubmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Status == StatusAuthenticated
}

// RefreshTokenStatus asks the backend whether a token exists. A backend
// failure counts as no token. An Authenticating session is left in place
// when no token is found yet.
func (m *Manager) RefreshTokenStatus(ctx context.Context) bool {
	st, err := m.backend.TokenStatus(ctx)
	if err != nil {
		m.logger.Warn("token status query failed", "error", err)
		st = core.TokenStatus{}
	}

	m.mu.Lock()
	m.session.HasToken = st.HasToken
	m.session.TokenTail = st.Tail
	switch {
	case st.HasToken:
		m.setStatusLocked(StatusAuthenticated)
	case m.session.Status != StatusAuthenticating:
		m.setStatusLocked(StatusUnauthenticated)
	}
	snap := m.session
	controls := m.controls
	m.mu.Unlock()

	m.publish(snap)
	if controls != nil {
		controls.SetTokenPresent(st.HasToken)
	}
	return st.HasToken
}

// StartLogin requests a device code. On success the session becomes
// Authenticating; on failure it is unchanged and the error is shown.
func (m *Manager) StartLogin(ctx context.Context) (core.DeviceLogin, error) {
	m.view.SetStatus("Opening GitHub login...")

	dl, err := m.backend.StartDeviceLogin(ctx)
	if err != nil {
		err = asAuthRequestError(err)
		m.logger.Warn("device login request failed", "error", err)
		m.view.SetStatus(core.UserMessage(err, core.UnknownErrorText))
		return core.DeviceLogin{}, err
	}

	m.mu.Lock()
	m.setStatusLocked(StatusAuthenticating)
	m.session.UserCode = dl.UserCode
	m.session.VerificationURL = dl.AuthURL
	expires := m.now().Add(time.Duration(dl.ExpiresIn) * time.Second)
	m.session.ExpiresAt = &expires
	snap := m.session
	m.mu.Unlock()

	m.logger.Info("device login started", "expires_in", dl.ExpiresIn)
	m.publish(snap)
	m.view.SetStatus(fmt.Sprintf("Enter code %s in the browser if prompted.", dl.UserCode))
	return dl, nil
}

// CompleteLogin applies the asynchronous login result. It reports whether
// the result was applied; results arriving outside Authenticating are ignored.
func (m *Manager) CompleteLogin(ctx context.Context, res core.LoginResult) bool {
	m.mu.Lock()
	if m.session.Status != StatusAuthenticating {
		state := m.session.Status
		m.mu.Unlock()
		m.logger.Debug("ignoring login result", "state", state.String(), "status", string(res.Status))
		return false
	}
	if res.OK() {
		m.setStatusLocked(StatusAuthenticated)
	} else {
		m.setStatusLocked(StatusUnauthenticated)
	}
	m.mu.Unlock()

	if res.OK() {
		m.logger.Info("login completed")
		m.RefreshTokenStatus(ctx)
		m.view.FlashStatus(res.Message, m.ttl)
		return true
	}

	m.logger.Warn("login failed", "message", res.Message)
	m.RefreshTokenStatus(ctx)
	m.view.FlashStatus("Login failed: "+res.Message, m.ttl)
	return true
}

// Logout clears the stored token. On failure the session is unchanged and
// the error is shown.
func (m *Manager) Logout(ctx context.Context) error {
	m.view.SetStatus("Logging out...")

	if err := m.backend.ClearToken(ctx); err != nil {
		err = asLogoutError(err)
		m.logger.Warn("logout failed", "error", err)
		m.view.SetStatus(core.UserMessage(err, core.UnknownErrorText))
		return err
	}

	m.mu.Lock()
	m.setStatusLocked(StatusUnauthenticated)
	m.mu.Unlock()

	m.RefreshTokenStatus(ctx)
	m.logger.Info("logged out")
	m.view.FlashStatus("Logged out.", m.ttl)
	return nil
}

// setStatusLocked changes status and drops device-code details when
// leaving Authenticating. Caller holds m.mu.
func (m *Manager) setStatusLocked(s Status) {
	m.session.Status = s
	m.session.State = s.String()
	if s != StatusAuthenticating {
		m.session.UserCode = ""
		m.session.VerificationURL = ""
		m.session.ExpiresAt = nil
	}
}

func (m *Manager) publish(s Session) {
	m.view.SetAuth(view.AuthView{
		Authenticated:   s.Status == StatusAuthenticated,
		TokenTail:       s.TokenTail,
		UserCode:        s.UserCode,
		VerificationURL: s.VerificationURL,
	})
}

func asAuthRequestError(err error) error {
	if core.HasCode(err, core.CodeAuthRequestFailed) {
		return err
	}
	return core.ErrAuthRequest(core.UserMessage(err, "Failed to start GitHub login.")).WithCause(err)
}

func asLogoutError(err error) error {
	if core.HasCode(err, core.CodeLogoutFailed) {
		return err
	}
	return core.ErrLogout(core.UserMessage(err, "Failed to clear GitHub token.")).WithCause(err)
}
