package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ghc-desk/ghc/internal/core"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GHC"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: EnvPrefix,
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance so
// CLI flag bindings take part in precedence.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: EnvPrefix,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (GHC_*)
// 3. Project config (.ghc.yaml in current directory)
// 4. User config (~/.config/ghc/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".ghc")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if l.configFile == "" {
			if err := l.readUserConfig(); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, err.Error()).WithCause(err)
	}
	return &cfg, nil
}

// readUserConfig merges ~/.config/ghc/config.yaml when no project file exists.
func (l *Loader) readUserConfig() error {
	dir, err := UserConfigDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("assistant.path", "")
	l.v.SetDefault("assistant.default_model", core.DefaultModel)
	l.v.SetDefault("assistant.models", core.SupportedModels)
	l.v.SetDefault("assistant.timeout", "10m")

	l.v.SetDefault("auth.client_id", "Ov23liTEmQZzOQ2bdFcm")
	l.v.SetDefault("auth.scope", "read:user")
	l.v.SetDefault("auth.env_file", "")
	l.v.SetDefault("auth.token_var", "GITHUB_TOKEN")
	l.v.SetDefault("auth.login_timeout", "15m")

	l.v.SetDefault("ui.status_ttl", core.DefaultStatusTTL)
	l.v.SetDefault("ui.copy_status_ttl", core.DefaultCopyStatusTTL)
	l.v.SetDefault("ui.copy_feedback_ttl", core.DefaultCopyFeedbackTTL)

	l.v.SetDefault("web.host", "127.0.0.1")
	l.v.SetDefault("web.port", 8787)
	l.v.SetDefault("web.cors_origins", []string{})

	l.v.SetDefault("history.archive", "off")
	l.v.SetDefault("history.path", "")

	l.v.SetDefault("notify.desktop", false)

	l.v.SetDefault("links.billing_url", core.BillingURL)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// UserConfigDir returns ~/.config/ghc.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ghc"), nil
}

// Defaults returns the built-in configuration without reading files or the
// environment.
func Defaults() *Config {
	l := NewLoader()
	l.setDefaults()
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid built-in defaults: %v", err))
	}
	return &cfg
}
