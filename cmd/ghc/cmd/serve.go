package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghc-desk/ghc/internal/adapters/opener"
	"github.com/ghc-desk/ghc/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web UI",
	Long: `Start the ghc web UI on a local port.

The server exposes a JSON API and an SSE stream over the same session the
terminal UI uses, and serves an embedded single page.

Examples:
  # Start with defaults (127.0.0.1:8787) and open a browser
  ghc serve

  # Custom port, no browser
  ghc serve --port 9000 --no-open`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoOpen bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "host address to bind to (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveNoOpen, "no-open", false, "do not open a browser")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{Archive: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.app.Start(ctx); err != nil {
		rt.logger.Warn("startup reconciliation failed", "error", err)
	}

	server := web.New(serverConfig(rt), rt.app, rt.logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	url := server.URL()
	rt.logger.Info("server started", "url", url)
	fmt.Fprintf(cmd.OutOrStdout(), "ghc web UI at %s\n", url)
	if !serveNoOpen {
		if err := opener.New(rt.logger).Open(url); err != nil {
			rt.logger.Warn("opening browser failed", "error", err)
		}
	}

	<-ctx.Done()
	rt.logger.Info("shutting down server...")

	if err := server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	rt.logger.Info("server stopped")
	return nil
}

func serverConfig(rt *runtime) web.Config {
	cfg := web.DefaultConfig()
	if rt.cfg.Web.Host != "" {
		cfg.Host = rt.cfg.Web.Host
	}
	if rt.cfg.Web.Port != 0 {
		cfg.Port = rt.cfg.Web.Port
	}
	cfg.CORSOrigins = rt.cfg.Web.CORSOrigins
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	return cfg
}
