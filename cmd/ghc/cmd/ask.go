package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ghc-desk/ghc/internal/clip"
	"github.com/ghc-desk/ghc/internal/core"
	"github.com/ghc-desk/ghc/internal/service"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send one prompt and print the answer",
	Long: `Send a single prompt to copilot and print the answer.

Examples:
  ghc ask "explain this stack trace" --file crash.log
  ghc ask --model gpt-5 --copy "write a haiku about Go"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askModel string
	askFile  string
	askCopy  bool
	askRaw   bool
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model to use (default from config)")
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "file to attach as context")
	askCmd.Flags().BoolVar(&askCopy, "copy", false, "copy the answer to the clipboard")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "print markdown without terminal rendering")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, runtimeOptions{Archive: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.app.Start(ctx); err != nil {
		return err
	}
	if askModel != "" {
		if err := rt.app.SelectModel(askModel); err != nil {
			return err
		}
	}

	res := rt.app.Submit(ctx, service.Request{
		Prompt:      strings.Join(args, " "),
		ContextPath: askFile,
	})
	out := cmd.OutOrStdout()
	switch res.Outcome {
	case service.OutcomeIgnored:
		return ignoredError(res.Reason)
	case service.OutcomeFailed:
		if res.Err != nil {
			return res.Err
		}
		return errors.New(res.Error)
	case service.OutcomeEmpty:
		fmt.Fprintln(out, "(no output)")
		return nil
	}

	printAnswer(out, res.Raw)
	if askCopy {
		copyAnswer(cmd.ErrOrStderr(), res.Raw)
	}
	return nil
}

func ignoredError(reason service.IgnoreReason) error {
	switch reason {
	case service.ReasonUnauthenticated:
		return errors.New("not logged in: run 'ghc login' first")
	case service.ReasonBusy:
		return errors.New("another prompt is running")
	default:
		return errors.New("prompt is empty")
	}
}

// printAnswer renders markdown when out is a terminal.
func printAnswer(out io.Writer, raw string) {
	if f, ok := out.(*os.File); ok && !askRaw && term.IsTerminal(int(f.Fd())) {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil || width <= 0 {
			width = 80
		}
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err == nil {
			if rendered, err := r.Render(raw); err == nil {
				fmt.Fprint(out, rendered)
				return
			}
		}
	}
	fmt.Fprintln(out, strings.TrimRight(raw, "\n"))
}

func copyAnswer(out io.Writer, raw string) {
	res, err := clip.New(clip.Options{FileFallback: true}).WriteAll(raw)
	if err != nil {
		fmt.Fprintln(out, core.UserMessage(err, "Copy failed."))
		return
	}
	if res.Method == clip.MethodFile {
		fmt.Fprintf(out, "Clipboard unavailable; answer saved to %s\n", res.FilePath)
		return
	}
	fmt.Fprintln(out, "Copied to clipboard.")
}
