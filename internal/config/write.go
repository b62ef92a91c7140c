package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ghc-desk/ghc/internal/fsutil"
)

// WriteDefault writes DefaultConfigYAML to path. An existing file is only
// replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}
	return fsutil.WriteFileAtomic(path, []byte(DefaultConfigYAML), fsutil.PermOr(path, 0o600))
}

// Marshal renders the effective configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return out, nil
}
