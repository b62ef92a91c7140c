package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatExecution, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if !ErrExecution("C", "m").Retryable {
		t.Fatalf("execution should be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if ErrAuth("m").Retryable {
		t.Fatalf("auth should not be retryable")
	}
	if ErrInstall("m").Retryable {
		t.Fatalf("install should not be retryable")
	}

	cases := []struct {
		err  *DomainError
		cat  ErrorCategory
		code string
	}{
		{ErrAuthRequest("m"), ErrCatAuth, CodeAuthRequestFailed},
		{ErrLogout("m"), ErrCatAuth, CodeLogoutFailed},
		{ErrAssistant("m"), ErrCatExecution, CodeAssistantFailed},
		{ErrCapabilityQuery("m"), ErrCatCapability, CodeCapabilityQueryFailed},
		{ErrInstall("m"), ErrCatExecution, CodeInstallFailed},
	}
	for _, tc := range cases {
		if tc.err.Category != tc.cat || tc.err.Code != tc.code {
			t.Fatalf("got %s/%s, want %s/%s", tc.err.Category, tc.err.Code, tc.cat, tc.code)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrExecution("X", "m")) {
		t.Fatalf("expected retryable error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected non-domain error to be non-retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrTimeout("m")) != ErrCatTimeout {
		t.Fatalf("expected timeout category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrAuth("m"), ErrCatAuth) {
		t.Fatalf("expected category match")
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrLogout("disk full"))
	if !HasCode(wrapped, CodeLogoutFailed) {
		t.Fatalf("expected wrapped logout error to carry its code")
	}
	if HasCode(errors.New("plain"), CodeLogoutFailed) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "fallback"},
		{"domain", ErrAssistant("copilot: model not available"), "copilot: model not available"},
		{"wrapped domain", fmt.Errorf("run: %w", ErrAuthRequest("network down")), "network down"},
		{"plain", errors.New("boom"), "boom"},
		{"blank plain", errors.New("   "), "fallback"},
		{"blank domain message", &DomainError{Category: ErrCatExecution, Code: "X"}, "[execution] X:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err, "fallback"); got != tt.want {
				t.Fatalf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
