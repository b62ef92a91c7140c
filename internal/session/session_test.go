package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/testutil"
	"github.com/ghc-desk/ghc/internal/view"
)

type controlsRecorder struct {
	mu     sync.Mutex
	values []bool
}

func (c *controlsRecorder) SetTokenPresent(has bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, has)
}

func (c *controlsRecorder) last() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.values) == 0 {
		return false, false
	}
	return c.values[len(c.values)-1], true
}

func newManager(t *testing.T, backend *testutil.MockBackend) (*Manager, *view.State, *controlsRecorder) {
	t.Helper()
	v := view.NewState(core.DefaultModel, nil)
	t.Cleanup(v.Close)
	m := NewManager(backend, v, Options{StatusTTL: 50 * time.Millisecond})
	rec := &controlsRecorder{}
	m.BindControls(rec)
	return m, v, rec
}

func TestManager_StartsUnknown(t *testing.T) {
	m, _, _ := newManager(t, testutil.NewMockBackend(false))
	assert.Equal(t, StatusUnknown, m.Current().Status)
	assert.False(t, m.CanSubmit())
}

func TestManager_RefreshTokenStatus(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewMockBackend(true)
	m, v, rec := newManager(t, backend)

	assert.True(t, m.RefreshTokenStatus(ctx))
	assert.Equal(t, StatusAuthenticated, m.Current().Status)
	assert.Equal(t, "abc", m.Current().TokenTail)
	assert.True(t, m.CanSubmit())
	assert.Equal(t, "Logout", v.Snapshot().AuthLabel)
	got, ok := rec.last()
	require.True(t, ok)
	assert.True(t, got)

	backend.SetToken(false)
	assert.False(t, m.RefreshTokenStatus(ctx))
	assert.Equal(t, StatusUnauthenticated, m.Current().Status)
	got, _ = rec.last()
	assert.False(t, got)
}

func TestManager_RefreshTokenStatusFailureMeansNoToken(t *testing.T) {
	backend := testutil.NewMockBackend(true)
	backend.TokenStatusFunc = func(context.Context) (core.TokenStatus, error) {
		return core.TokenStatus{}, errors.New("env unreadable")
	}
	m, _, rec := newManager(t, backend)

	assert.False(t, m.RefreshTokenStatus(context.Background()))
	assert.Equal(t, StatusUnauthenticated, m.Current().Status)
	got, _ := rec.last()
	assert.False(t, got)
}

func TestManager_StartLoginSuccess(t *testing.T) {
	backend := testutil.NewMockBackend(false)
	m, v, _ := newManager(t, backend)
	m.RefreshTokenStatus(context.Background())

	dl, err := m.StartLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABCD-1234", dl.UserCode)

	s := m.Current()
	assert.Equal(t, StatusAuthenticating, s.Status)
	assert.Equal(t, "ABCD-1234", s.UserCode)
	assert.Equal(t, "https://github.com/login/device", s.VerificationURL)
	require.NotNil(t, s.ExpiresAt)
	assert.False(t, s.ExpiresAt.IsZero())
	assert.False(t, m.CanSubmit())
	assert.Equal(t, "Enter code ABCD-1234 in the browser if prompted.", v.Snapshot().Status)
	assert.Equal(t, "ABCD-1234", v.Snapshot().UserCode)
}

func TestManager_StartLoginFailureLeavesSession(t *testing.T) {
	backend := testutil.NewMockBackend(false)
	backend.StartDeviceLoginFunc = func(context.Context) (core.DeviceLogin, error) {
		return core.DeviceLogin{}, errors.New("Failed to request device code: 503")
	}
	m, v, _ := newManager(t, backend)
	m.RefreshTokenStatus(context.Background())

	_, err := m.StartLogin(context.Background())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeAuthRequestFailed))

	assert.Equal(t, StatusUnauthenticated, m.Current().Status)
	assert.Equal(t, "Failed to request device code: 503", v.Snapshot().Status)
}

func TestManager_TokenRefreshKeepsAuthenticating(t *testing.T) {
	backend := testutil.NewMockBackend(false)
	m, _, _ := newManager(t, backend)
	_, err := m.StartLogin(context.Background())
	require.NoError(t, err)

	m.RefreshTokenStatus(context.Background())
	assert.Equal(t, StatusAuthenticating, m.Current().Status)
}

func TestManager_CompleteLoginOK(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewMockBackend(false)
	m, v, rec := newManager(t, backend)
	_, err := m.StartLogin(ctx)
	require.NoError(t, err)

	backend.SetToken(true)
	applied := m.CompleteLogin(ctx, core.LoginResult{Status: core.LoginOK, Message: "GitHub token saved to ~/.env"})
	require.True(t, applied)

	assert.Equal(t, StatusAuthenticated, m.Current().Status)
	assert.Empty(t, m.Current().UserCode)
	assert.Equal(t, "GitHub token saved to ~/.env", v.Snapshot().Status)
	got, _ := rec.last()
	assert.True(t, got)

	assert.Eventually(t, func() bool { return v.Snapshot().Status == "" },
		time.Second, 5*time.Millisecond)
}

func TestSession_ExpirySerializedOnlyWhileAuthenticating(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewMockBackend(false)
	m, _, _ := newManager(t, backend)
	m.RefreshTokenStatus(ctx)

	raw, err := json.Marshal(m.Current())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "expires_at")

	_, err = m.StartLogin(ctx)
	require.NoError(t, err)
	raw, err = json.Marshal(m.Current())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "expires_at")

	backend.SetToken(true)
	require.True(t, m.CompleteLogin(ctx, core.LoginResult{Status: core.LoginOK}))
	s := m.Current()
	assert.Nil(t, s.ExpiresAt)
	raw, err = json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "expires_at")
}

func TestManager_CompleteLoginError(t *testing.T) {
	ctx := context.Background()
	m, v, _ := newManager(t, testutil.NewMockBackend(false))
	_, err := m.StartLogin(ctx)
	require.NoError(t, err)

	applied := m.CompleteLogin(ctx, core.LoginResult{Status: core.LoginError, Message: "Access denied. Please try again."})
	require.True(t, applied)

	assert.Equal(t, StatusUnauthenticated, m.Current().Status)
	assert.Equal(t, "Login failed: Access denied. Please try again.", v.Snapshot().Status)
}

func TestManager_CompleteLoginOutsideAuthenticatingIsNoop(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewMockBackend(true)
	m, v, _ := newManager(t, backend)
	m.RefreshTokenStatus(ctx)
	before := m.Current()
	calls := backend.CallCount("TokenStatus")

	assert.False(t, m.CompleteLogin(ctx, core.LoginResult{Status: core.LoginError, Message: "late"}))
	assert.Equal(t, before, m.Current())
	assert.Equal(t, calls, backend.CallCount("TokenStatus"))
	assert.Empty(t, v.Snapshot().Status)
}

func TestManager_LogoutSuccess(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewMockBackend(true)
	m, v, rec := newManager(t, backend)
	m.RefreshTokenStatus(ctx)

	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, StatusUnauthenticated, m.Current().Status)
	assert.False(t, m.HasToken())
	assert.Equal(t, "Logged out.", v.Snapshot().Status)
	assert.Equal(t, "Login", v.Snapshot().AuthLabel)
	got, _ := rec.last()
	assert.False(t, got)

	st, err := backend.TokenStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.HasToken)
}

func TestManager_LogoutFailureStaysAuthenticated(t *testing.T) {
	ctx := context.Background()
	backend := testutil.NewMockBackend(true)
	backend.ClearTokenFunc = func(context.Context) error {
		return errors.New("Failed to write ~/.env: permission denied")
	}
	m, v, _ := newManager(t, backend)
	m.RefreshTokenStatus(ctx)

	err := m.Logout(ctx)
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeLogoutFailed))
	assert.Equal(t, StatusAuthenticated, m.Current().Status)
	assert.Equal(t, "Failed to write ~/.env: permission denied", v.Snapshot().Status)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "unknown", StatusUnknown.String())
	assert.Equal(t, "unauthenticated", StatusUnauthenticated.String())
	assert.Equal(t, "authenticating", StatusAuthenticating.String())
	assert.Equal(t, "authenticated", StatusAuthenticated.String())
}
