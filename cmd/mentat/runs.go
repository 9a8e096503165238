package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/cli"
	"github.com/Veraticus/the-data-must-flow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded extraction runs",
		Long: `Display recent runs from the history database, newest first, with the
number of documents and personal records each one stored.`,
		RunE: runRuns,
	}

	cmd.Flags().String("db", "", "SQLite database holding run history")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	_ = viper.BindPFlag("runs.db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("runs.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if db := viper.GetString("runs.db"); db != "" {
		viper.Set("database.path", db)
	}
	store, err := historyStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	runs, err := store.ListRuns(ctx, viper.GetInt("runs.limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(cli.FormatWarning("No runs recorded yet. Use 'mentat extract --db ...' to record one.")) //nolint:forbidigo // User-facing output
		return nil
	}

	fmt.Println(cli.FormatTitle("Extraction Runs")) //nolint:forbidigo // User-facing output
	fmt.Println()                                   //nolint:forbidigo // User-facing output
	return writeRuns(os.Stdout, runs)
}

func writeRuns(out io.Writer, runs []storage.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("ID"),
		cli.HeaderStyle.Render("Started"),
		cli.HeaderStyle.Render("Took"),
		cli.HeaderStyle.Render("Status"),
		cli.HeaderStyle.Render("Docs"),
		cli.HeaderStyle.Render("Records"),
		cli.HeaderStyle.Render("Input")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 36),
		strings.Repeat("─", 16),
		strings.Repeat("─", 6),
		strings.Repeat("─", 11),
		strings.Repeat("─", 4),
		strings.Repeat("─", 7),
		strings.Repeat("─", 20)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			formatDuration(run),
			formatStatus(run.Status),
			run.DocumentCount,
			run.RecordCount,
			run.InputDir); err != nil {
			return fmt.Errorf("failed to write run row: %w", err)
		}
	}

	return w.Flush()
}

func formatStatus(status storage.RunStatus) string {
	switch status {
	case storage.StatusCompleted:
		return cli.SuccessStyle.Render(string(status))
	case storage.StatusInterrupted:
		return cli.WarningStyle.Render(string(status))
	case storage.StatusFailed:
		return cli.ErrorStyle.Render(string(status))
	default:
		return string(status)
	}
}

func formatDuration(run storage.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Second).String()
}
