package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/ghc-desk/ghc/internal/adapters/archive"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived prompts from earlier sessions",
	Long: `List prompts saved by the cross-session archive. The archive is off by
default; enable it with history.archive set to json or sqlite.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyLimit int
	historyJSON  bool
	historyShow  string
)

const historyLabelWidth = 60

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to list (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "print the output of the entry whose ID starts with this prefix")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Archive == "" || cfg.History.Archive == archive.KindOff {
		fmt.Fprintln(cmd.OutOrStdout(), "History archive is off.")
		return nil
	}

	store, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	limit := historyLimit
	if historyShow != "" {
		limit = 0
	}
	records, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyShow != "" {
		for _, r := range records {
			if strings.HasPrefix(r.ID, historyShow) {
				fmt.Fprintln(out, r.Output)
				return nil
			}
		}
		return fmt.Errorf("no archived entry %s", historyShow)
	}
	if historyJSON {
		return outputJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No archived prompts.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tMODEL\tPROMPT")
	for _, r := range records {
		label := strings.ReplaceAll(r.Label, "\n", " ")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Model,
			runewidth.Truncate(label, historyLabelWidth, "…"))
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
