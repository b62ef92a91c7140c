package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ghc-desk/ghc/internal/tui"
)

func runTUI(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{LogToFile: true, Archive: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	model := tui.New(ctx, rt.app)
	defer model.Close()

	// The first reconciliation runs behind the UI; its results arrive as
	// state_changed events.
	go func() {
		if err := rt.app.Start(ctx); err != nil {
			rt.logger.Warn("startup reconciliation failed", "error", err)
		}
	}()

	// Mouse capture stays off so the terminal can select text.
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
