package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ghc-desk/ghc/internal/core"
)

// MockCall records a call to the mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

// MockBackend implements core.Backend for testing. Every method records its
// call and delegates to an injectable func, falling back to canned answers.
type MockBackend struct {
	TokenStatusFunc      func(context.Context) (core.TokenStatus, error)
	StartDeviceLoginFunc func(context.Context) (core.DeviceLogin, error)
	ClearTokenFunc       func(context.Context) error
	RunAssistantFunc     func(context.Context, core.RunRequest) (core.RunResult, error)
	CapabilityStatusFunc func(context.Context) (core.CapabilityReport, error)
	InstallCLIFunc       func(context.Context) (string, error)

	mu       sync.Mutex
	calls    []MockCall
	hasToken bool
}

// NewMockBackend returns a backend that starts with or without a token.
// ClearToken drops the token, and RunAssistant echoes the prompt.
func NewMockBackend(hasToken bool) *MockBackend {
	return &MockBackend{hasToken: hasToken}
}

// SetToken changes the token presence reported by the default TokenStatus.
func (m *MockBackend) SetToken(has bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasToken = has
}

// TokenStatus mocks the token query.
func (m *MockBackend) TokenStatus(ctx context.Context) (core.TokenStatus, error) {
	m.recordCall("TokenStatus", nil)
	if m.TokenStatusFunc != nil {
		return m.TokenStatusFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasToken {
		return core.TokenStatus{HasToken: true, Tail: "abc"}, nil
	}
	return core.TokenStatus{}, nil
}

// StartDeviceLogin mocks the device-code request.
func (m *MockBackend) StartDeviceLogin(ctx context.Context) (core.DeviceLogin, error) {
	m.recordCall("StartDeviceLogin", nil)
	if m.StartDeviceLoginFunc != nil {
		return m.StartDeviceLoginFunc(ctx)
	}
	return core.DeviceLogin{
		AuthURL:   "https://github.com/login/device",
		UserCode:  "ABCD-1234",
		ExpiresIn: 900,
		Interval:  5,
	}, nil
}

// ClearToken mocks logout.
func (m *MockBackend) ClearToken(ctx context.Context) error {
	m.recordCall("ClearToken", nil)
	if m.ClearTokenFunc != nil {
		return m.ClearTokenFunc(ctx)
	}
	m.SetToken(false)
	return nil
}

// RunAssistant mocks a copilot run.
func (m *MockBackend) RunAssistant(ctx context.Context, req core.RunRequest) (core.RunResult, error) {
	m.recordCall("RunAssistant", req)
	if m.RunAssistantFunc != nil {
		return m.RunAssistantFunc(ctx, req)
	}
	return core.RunResult{Output: "Mock response for: " + req.Prompt, ContextPath: req.ContextPath}, nil
}

// CapabilityStatus mocks the CLI probe.
func (m *MockBackend) CapabilityStatus(ctx context.Context) (core.CapabilityReport, error) {
	m.recordCall("CapabilityStatus", nil)
	if m.CapabilityStatusFunc != nil {
		return m.CapabilityStatusFunc(ctx)
	}
	return core.CapabilityReport{Installed: true, Version: "GitHub Copilot CLI 0.0.354", Path: "/usr/local/bin/copilot"}, nil
}

// InstallCLI mocks the installer.
func (m *MockBackend) InstallCLI(ctx context.Context) (string, error) {
	m.recordCall("InstallCLI", nil)
	if m.InstallCLIFunc != nil {
		return m.InstallCLIFunc(ctx)
	}
	return "Copilot CLI installed via brew.", nil
}

// Calls returns recorded calls.
func (m *MockBackend) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// CallCount returns number of calls to a method.
func (m *MockBackend) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// RunRequests returns the payloads passed to RunAssistant.
func (m *MockBackend) RunRequests() []core.RunRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RunRequest
	for _, c := range m.calls {
		if req, ok := c.Args.(core.RunRequest); ok {
			out = append(out, req)
		}
	}
	return out
}

// Reset clears call history.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MockBackend) recordCall(method string, args interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// Blocker lets a test hold a mocked call open until it decides to release it.
type Blocker struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

// NewBlocker creates a blocker.
func NewBlocker() *Blocker {
	return &Blocker{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

// Wait marks the call as started and blocks until Release or ctx ends.
func (b *Blocker) Wait(ctx context.Context) error {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Started returns a channel that receives once per started call.
func (b *Blocker) Started() <-chan struct{} {
	return b.started
}

// Release unblocks every waiting call.
func (b *Blocker) Release() {
	b.once.Do(func() { close(b.release) })
}

var _ core.Backend = (*MockBackend)(nil)
