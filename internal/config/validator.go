package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ghc-desk/ghc/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateAssistant(&cfg.Assistant)
	v.validateAuth(&cfg.Auth)
	v.validateUI(&cfg.UI)
	v.validateWeb(&cfg.Web)
	v.validateHistory(&cfg.History)
	v.validateLinks(&cfg.Links)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateAssistant(cfg *AssistantConfig) {
	if len(cfg.Models) == 0 {
		v.addError("assistant.models", cfg.Models, "at least one model required")
	}
	seen := make(map[string]bool, len(cfg.Models))
	for _, m := range cfg.Models {
		if strings.TrimSpace(m) == "" {
			v.addError("assistant.models", m, "model name cannot be blank")
			continue
		}
		if seen[m] {
			v.addError("assistant.models", m, "duplicate model")
		}
		seen[m] = true
	}
	if cfg.DefaultModel == "" {
		v.addError("assistant.default_model", cfg.DefaultModel, "required")
	} else if len(cfg.Models) > 0 && !core.IsSupportedModel(cfg.Models, cfg.DefaultModel) {
		v.addError("assistant.default_model", cfg.DefaultModel, "must be listed in assistant.models")
	}
	if cfg.Timeout <= 0 {
		v.addError("assistant.timeout", cfg.Timeout, "must be positive")
	}
}

func (v *Validator) validateAuth(cfg *AuthConfig) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		v.addError("auth.client_id", cfg.ClientID, "required")
	}
	if strings.TrimSpace(cfg.TokenVar) == "" || strings.ContainsAny(cfg.TokenVar, "= \t") {
		v.addError("auth.token_var", cfg.TokenVar, "must be a valid variable name")
	}
	if cfg.LoginTimeout <= 0 {
		v.addError("auth.login_timeout", cfg.LoginTimeout, "must be positive")
	}
}

func (v *Validator) validateUI(cfg *UIConfig) {
	if cfg.StatusTTL <= 0 {
		v.addError("ui.status_ttl", cfg.StatusTTL, "must be positive")
	}
	if cfg.CopyStatusTTL <= 0 {
		v.addError("ui.copy_status_ttl", cfg.CopyStatusTTL, "must be positive")
	}
	if cfg.CopyFeedbackTTL <= 0 {
		v.addError("ui.copy_feedback_ttl", cfg.CopyFeedbackTTL, "must be positive")
	}
}

func (v *Validator) validateWeb(cfg *WebConfig) {
	if cfg.Host == "" {
		v.addError("web.host", cfg.Host, "required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		v.addError("web.port", cfg.Port, "must be between 0 and 65535")
	}
}

func (v *Validator) validateHistory(cfg *HistoryConfig) {
	switch cfg.Archive {
	case "off", "json", "sqlite":
	default:
		v.addError("history.archive", cfg.Archive, "must be one of: off, json, sqlite")
	}
}

func (v *Validator) validateLinks(cfg *LinksConfig) {
	u, err := url.Parse(cfg.BillingURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		v.addError("links.billing_url", cfg.BillingURL, "must be an http(s) URL")
	}
}
