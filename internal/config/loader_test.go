package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghc-desk/ghc/internal/core"
)

// isolate points HOME at an empty directory and runs from another one so no
// real config file leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Chdir(t.TempDir())
	return home
}

func TestLoader_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, core.DefaultModel, cfg.Assistant.DefaultModel)
	assert.Equal(t, core.SupportedModels, cfg.Assistant.Models)
	assert.Equal(t, 10*time.Minute, cfg.Assistant.Timeout)
	assert.Equal(t, "Ov23liTEmQZzOQ2bdFcm", cfg.Auth.ClientID)
	assert.Equal(t, "read:user", cfg.Auth.Scope)
	assert.Equal(t, "GITHUB_TOKEN", cfg.Auth.TokenVar)
	assert.Equal(t, 10*time.Second, cfg.UI.StatusTTL)
	assert.Equal(t, 3*time.Second, cfg.UI.CopyStatusTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.UI.CopyFeedbackTTL)
	assert.Equal(t, "off", cfg.History.Archive)
	assert.Equal(t, core.BillingURL, cfg.Links.BillingURL)
}

func TestLoader_ProjectFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".ghc.yaml", []byte(`
log:
  level: debug
assistant:
  default_model: gpt-5
ui:
  status_ttl: 2s
`), 0o600))

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "gpt-5", cfg.Assistant.DefaultModel)
	assert.Equal(t, 2*time.Second, cfg.UI.StatusTTL)
	assert.Contains(t, loader.ConfigFile(), ".ghc.yaml")
}

func TestLoader_UserConfigFallback(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "ghc")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("web:\n  port: 9999\n"), 0o600))

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Web.Port)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".ghc.yaml", []byte("log:\n  level: debug\n"), 0o600))
	t.Setenv("GHC_LOG_LEVEL", "error")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoader_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  archive: sqlite\n"), 0o600))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.History.Archive)
}

func TestLoader_InvalidConfigIsValidationError(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".ghc.yaml", []byte("log:\n  level: loud\n"), 0o600))

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.True(t, core.HasCode(err, core.CodeInvalidConfig))
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestDefaultConfigYAML_LoadsCleanly(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, core.SupportedModels, cfg.Assistant.Models)
	assert.Equal(t, "off", cfg.History.Archive)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginTimeout)
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("custom: true\n"), 0o600))

	err := WriteDefault(path, false)
	require.Error(t, err)

	got, _ := os.ReadFile(path)
	assert.Equal(t, "custom: true\n", string(got))

	require.NoError(t, WriteDefault(path, true))
	got, _ = os.ReadFile(path)
	assert.Equal(t, DefaultConfigYAML, string(got))
}

func TestMarshal(t *testing.T) {
	isolate(t)
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	out, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "default_model: claude-sonnet-4.5")
	assert.Contains(t, string(out), "billing_url:")
}

func TestDefaults_MatchesValidatedLoad(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, NewValidator().Validate(cfg))
	assert.Equal(t, core.DefaultModel, cfg.Assistant.DefaultModel)
	assert.Equal(t, core.DefaultStatusTTL, cfg.UI.StatusTTL)
	assert.Equal(t, 10*time.Minute, cfg.Assistant.Timeout)
	assert.Equal(t, "off", cfg.History.Archive)
}
