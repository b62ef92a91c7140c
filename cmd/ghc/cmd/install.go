package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghc-desk/ghc/internal/core"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the copilot CLI",
	Long: `Install the GitHub Copilot CLI with the platform package manager
(winget on Windows, brew elsewhere).`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Installing Copilot CLI...")
	msg, err := rt.app.Install(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	if core.NeedsReload(msg) {
		fmt.Fprintln(cmd.OutOrStdout(), "Open a new terminal so PATH picks up the new binary.")
	}
	return nil
}
