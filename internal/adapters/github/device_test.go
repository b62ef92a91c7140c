package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ghc-desk/ghc/internal/core"
)

// fakeGitHub serves the device code and token endpoints. tokenReplies are
// returned in order; the last one repeats.
type fakeGitHub struct {
	srv          *httptest.Server
	deviceStatus int
	complete     string
	tokenReplies []map[string]string
	polls        atomic.Int32
	form         sync.Map
}

func newFakeGitHub(t *testing.T, replies ...map[string]string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{deviceStatus: http.StatusOK, tokenReplies: replies}
	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.form.Store("client_id", r.PostForm.Get("client_id"))
		f.form.Store("scope", r.PostForm.Get("scope"))
		if f.deviceStatus != http.StatusOK {
			w.WriteHeader(f.deviceStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":               "dev-123",
			"user_code":                 "WDJB-MJHT",
			"verification_uri":          "https://github.com/login/device",
			"verification_uri_complete": f.complete,
			"expires_in":                900,
			"interval":                  1,
		})
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.polls.Add(1)) - 1
		if n >= len(f.tokenReplies) {
			n = len(f.tokenReplies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.tokenReplies[n])
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGitHub) endpoint() *oauth2.Endpoint {
	return &oauth2.Endpoint{
		DeviceAuthURL: f.srv.URL + "/login/device/code",
		TokenURL:      f.srv.URL + "/login/oauth/access_token",
	}
}

type loginRecorder struct {
	ch chan core.LoginResult
}

func newLoginRecorder() *loginRecorder {
	return &loginRecorder{ch: make(chan core.LoginResult, 4)}
}

func (r *loginRecorder) complete(res core.LoginResult) { r.ch <- res }

func (r *loginRecorder) next(t *testing.T) core.LoginResult {
	t.Helper()
	select {
	case res := <-r.ch:
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("login did not complete")
		return core.LoginResult{}
	}
}

func newTestFlow(t *testing.T, gh *fakeGitHub, rec *loginRecorder, timeout time.Duration) (*DeviceFlow, *TokenStore, string) {
	t.Helper()
	t.Setenv(testKey, "")
	path := filepath.Join(t.TempDir(), ".env")
	store := NewTokenStore(path, testKey)
	flow := NewDeviceFlow(context.Background(), DeviceConfig{
		ClientID:    "client-1",
		Scope:       "read:user",
		Timeout:     timeout,
		Endpoint:    gh.endpoint(),
		HTTPClient:  gh.srv.Client(),
		MinInterval: 1,
	}, store, rec.complete, nil)
	t.Cleanup(func() {
		flow.Cancel()
		flow.Wait()
	})
	return flow, store, path
}

func TestDeviceFlow_SuccessStoresToken(t *testing.T) {
	gh := newFakeGitHub(t,
		map[string]string{"error": "authorization_pending"},
		map[string]string{"access_token": "gho_success999", "token_type": "bearer"},
	)
	rec := newLoginRecorder()
	flow, store, path := newTestFlow(t, gh, rec, time.Minute)

	login, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WDJB-MJHT", login.UserCode)
	assert.Equal(t, "https://github.com/login/device", login.AuthURL)
	assert.Equal(t, 1, login.Interval)
	assert.InDelta(t, 900, login.ExpiresIn, 2)

	clientID, _ := gh.form.Load("client_id")
	scope, _ := gh.form.Load("scope")
	assert.Equal(t, "client-1", clientID)
	assert.Equal(t, "read:user", scope)

	res := rec.next(t)
	assert.True(t, res.OK())
	assert.Equal(t, LoginSavedMessage, res.Message)
	assert.Equal(t, "gho_success999", store.Token())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), testKey+"=gho_success999")
}

func TestDeviceFlow_PrefersCompleteVerificationURI(t *testing.T) {
	gh := newFakeGitHub(t, map[string]string{"error": "authorization_pending"})
	gh.complete = "https://github.com/login/device?user_code=WDJB-MJHT"
	flow, _, _ := newTestFlow(t, gh, newLoginRecorder(), time.Minute)

	login, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/login/device?user_code=WDJB-MJHT", login.AuthURL)
}

func TestDeviceFlow_StartFailure(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.deviceStatus = http.StatusServiceUnavailable
	rec := newLoginRecorder()
	flow, _, _ := newTestFlow(t, gh, rec, time.Minute)

	_, err := flow.Start(context.Background())
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeAuthRequestFailed))
	assert.Contains(t, core.UserMessage(err, ""), "Failed to request device code")

	select {
	case res := <-rec.ch:
		t.Fatalf("unexpected completion %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeviceFlow_ErrorMessages(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"expired_token", "Device code expired. Please try again."},
		{"access_denied", "Access denied. Please try again."},
		{"unsupported_grant_type", "OAuth error: unsupported_grant_type"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			gh := newFakeGitHub(t, map[string]string{"error": tt.code})
			rec := newLoginRecorder()
			flow, store, _ := newTestFlow(t, gh, rec, time.Minute)

			_, err := flow.Start(context.Background())
			require.NoError(t, err)

			res := rec.next(t)
			assert.Equal(t, core.LoginError, res.Status)
			assert.Equal(t, tt.want, res.Message)
			assert.Empty(t, store.Token())
		})
	}
}

func TestDeviceFlow_Timeout(t *testing.T) {
	gh := newFakeGitHub(t, map[string]string{"error": "authorization_pending"})
	rec := newLoginRecorder()
	flow, _, _ := newTestFlow(t, gh, rec, 1500*time.Millisecond)

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	res := rec.next(t)
	assert.Equal(t, core.LoginError, res.Status)
	assert.Equal(t, "Login timed out. Please try again.", res.Message)
}

func TestDeviceFlow_RestartDropsSupersededLogin(t *testing.T) {
	gh := newFakeGitHub(t, map[string]string{"error": "authorization_pending"})
	rec := newLoginRecorder()
	flow, _, _ := newTestFlow(t, gh, rec, time.Minute)

	_, err := flow.Start(context.Background())
	require.NoError(t, err)
	_, err = flow.Start(context.Background())
	require.NoError(t, err)

	flow.Cancel()
	flow.Wait()

	select {
	case res := <-rec.ch:
		t.Fatalf("cancelled logins must not complete, got %+v", res)
	default:
	}
}
