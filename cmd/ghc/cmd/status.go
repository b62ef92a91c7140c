package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ghc-desk/ghc/internal/capability"
	"github.com/ghc-desk/ghc/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show login and copilot CLI status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

type statusReport struct {
	Session    session.Session   `json:"session"`
	Capability capability.Status `json:"capability"`
	Model      string            `json:"model"`
	Models     []string          `json:"models"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	rt, err := newRuntime(ctx, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.app.Start(ctx); err != nil {
		return err
	}
	report := statusReport{
		Session:    rt.app.Session(),
		Capability: rt.app.Capability(),
		Model:      rt.app.Snapshot().Model,
		Models:     rt.app.Models(),
	}

	if statusJSON {
		return outputJSON(cmd.OutOrStdout(), report)
	}
	writeStatus(cmd.OutOrStdout(), report)
	return nil
}

func writeStatus(out io.Writer, r statusReport) {
	login := "not logged in"
	if r.Session.HasToken {
		login = "logged in (token ..." + r.Session.TokenTail + ")"
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "GitHub:\t%s\n", login)
	fmt.Fprintf(w, "Copilot CLI:\t%s\n", r.Capability.Label())
	fmt.Fprintf(w, "Model:\t%s\n", r.Model)
	w.Flush()
}

func outputJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
