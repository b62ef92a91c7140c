package core

import (
	"context"
)

// TokenStatus describes whether a GitHub credential is currently available.
type TokenStatus struct {
	HasToken bool   `json:"has_token"`
	Tail     string `json:"tail,omitempty"` // last characters of the token, for display
}

// DeviceLogin is the device-authorization grant handed to the user.
type DeviceLogin struct {
	AuthURL   string `json:"auth_url"`
	UserCode  string `json:"user_code"`
	ExpiresIn int    `json:"expires_in"` // seconds
	Interval  int    `json:"interval"`   // seconds between polls
}

// LoginStatus is the outcome carried by a login completion notification.
type LoginStatus string

const (
	LoginOK    LoginStatus = "ok"
	LoginError LoginStatus = "error"
)

// LoginResult is pushed asynchronously once the device flow resolves.
type LoginResult struct {
	Status  LoginStatus `json:"status"`
	Message string      `json:"message"`
}

// OK reports whether the login succeeded.
func (r LoginResult) OK() bool {
	return r.Status == LoginOK
}

// RunRequest is the payload for one assistant invocation.
// ContextPath is the raw file path picked by the user, never the display name.
type RunRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	ContextPath string `json:"contextPath,omitempty"`
}

// RunResult is the assistant's reply.
type RunResult struct {
	Output      string `json:"output"`
	TempPath    string `json:"temp_path,omitempty"`
	ContextPath string `json:"context_path,omitempty"`
}

// CapabilityReport is the raw answer to "is the assistant CLI installed?".
type CapabilityReport struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
}

// Backend is the opaque request/response channel the coordinator talks to.
// Login completion is not a response: implementations publish it on the
// event bus as a login_complete event.
type Backend interface {
	TokenStatus(ctx context.Context) (TokenStatus, error)
	StartDeviceLogin(ctx context.Context) (DeviceLogin, error)
	ClearToken(ctx context.Context) error
	RunAssistant(ctx context.Context, req RunRequest) (RunResult, error)
	CapabilityStatus(ctx context.Context) (CapabilityReport, error)
	InstallCLI(ctx context.Context) (string, error)
}
