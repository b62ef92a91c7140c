package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ghc-desk/ghc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ghc configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to ~/.config/ghc/config.yaml, or to
./.ghc.yaml with --local.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var (
	configForce bool
	configLocal bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configLocal, "local", false, "write ./.ghc.yaml instead of the user config")
}

func configInitPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	if configLocal {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Join(cwd, ".ghc.yaml"), nil
	}
	dir, err := config.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := configInitPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := config.WriteDefault(path, configForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
