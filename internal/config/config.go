package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	UI        UIConfig        `mapstructure:"ui" yaml:"ui"`
	Web       WebConfig       `mapstructure:"web" yaml:"web"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Notify    NotifyConfig    `mapstructure:"notify" yaml:"notify"`
	Links     LinksConfig     `mapstructure:"links" yaml:"links"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AssistantConfig configures the copilot CLI invocation.
type AssistantConfig struct {
	// Path overrides binary resolution. Empty means search PATH and the
	// well-known install locations.
	Path         string        `mapstructure:"path" yaml:"path"`
	DefaultModel string        `mapstructure:"default_model" yaml:"default_model"`
	Models       []string      `mapstructure:"models" yaml:"models"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AuthConfig configures the GitHub device flow and token storage.
type AuthConfig struct {
	ClientID     string        `mapstructure:"client_id" yaml:"client_id"`
	Scope        string        `mapstructure:"scope" yaml:"scope"`
	EnvFile      string        `mapstructure:"env_file" yaml:"env_file"`
	TokenVar     string        `mapstructure:"token_var" yaml:"token_var"`
	LoginTimeout time.Duration `mapstructure:"login_timeout" yaml:"login_timeout"`
}

// UIConfig configures transient message lifetimes.
type UIConfig struct {
	StatusTTL       time.Duration `mapstructure:"status_ttl" yaml:"status_ttl"`
	CopyStatusTTL   time.Duration `mapstructure:"copy_status_ttl" yaml:"copy_status_ttl"`
	CopyFeedbackTTL time.Duration `mapstructure:"copy_feedback_ttl" yaml:"copy_feedback_ttl"`
}

// WebConfig configures the local web UI server.
type WebConfig struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        int      `mapstructure:"port" yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// HistoryConfig configures the optional cross-session archive.
// Archive is one of "off", "json" or "sqlite".
type HistoryConfig struct {
	Archive string `mapstructure:"archive" yaml:"archive"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// NotifyConfig configures desktop notifications.
type NotifyConfig struct {
	Desktop bool `mapstructure:"desktop" yaml:"desktop"`
}

// LinksConfig holds external URLs opened by the app.
type LinksConfig struct {
	BillingURL string `mapstructure:"billing_url" yaml:"billing_url"`
}
