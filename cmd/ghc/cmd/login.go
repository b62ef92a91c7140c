package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/events"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to GitHub with the device flow",
	Long: `Request a device code, open the verification page and wait until the
login completes. The token is saved to the configured .env file.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved GitHub token",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var loginForce bool

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().BoolVar(&loginForce, "force", false, "log in again even when a token is saved")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.app.Start(ctx); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if s := rt.app.Session(); s.HasToken && !loginForce {
		fmt.Fprintf(out, "Already logged in (token ...%s). Use --force to log in again.\n", s.TokenTail)
		return nil
	}

	doneCh := rt.bus.Subscribe(events.TypeLoginComplete)
	defer rt.bus.Unsubscribe(doneCh)

	dl, err := rt.app.Login(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Open %s and enter code %s\n", dl.AuthURL, dl.UserCode)
	fmt.Fprintln(out, "Waiting for authorization...")

	for {
		select {
		case <-ctx.Done():
			return errors.New("login cancelled")
		case ev, ok := <-doneCh:
			if !ok {
				return errors.New("login cancelled")
			}
			lc, isLogin := ev.(events.LoginCompleteEvent)
			if !isLogin || lc.SessionID() != rt.app.SessionID() {
				continue
			}
			if core.LoginStatus(lc.Status) != core.LoginOK {
				return fmt.Errorf("login failed: %s", lc.Message)
			}
			fmt.Fprintln(out, lc.Message)
			return nil
		}
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	rt, err := newRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}
