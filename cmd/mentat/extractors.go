package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/the-data-must-flow/internal/cli"
	"github.com/Veraticus/the-data-must-flow/internal/extract"
	"github.com/Veraticus/the-data-must-flow/internal/pipeline"
	"github.com/spf13/cobra"
)

func extractorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extractors",
		Short: "List the registered extractors",
		Long: `Display every extractor the pipeline knows about, in registration order.
Names shown here are the values accepted by 'mentat extract --extractors'.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Listing never calls the model, so no client is needed
			p := pipeline.NewDefault(nil, extract.BasicProfile, slog.Default())

			fmt.Println(cli.FormatTitle("Extractors")) //nolint:forbidigo // User-facing output
			fmt.Println()                              //nolint:forbidigo // User-facing output
			return writeExtractors(os.Stdout, p.List())
		},
	}
}

func writeExtractors(out io.Writer, infos []pipeline.ExtractorInfo) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("Name"),
		cli.HeaderStyle.Render("Type"),
		cli.HeaderStyle.Render("Priority"),
		cli.HeaderStyle.Render("Description")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		strings.Repeat("─", 24),
		strings.Repeat("─", 13),
		strings.Repeat("─", 8),
		strings.Repeat("─", 40)); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}

	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			info.Name, info.Type, info.Priority, info.Description); err != nil {
			return fmt.Errorf("failed to write extractor row: %w", err)
		}
	}

	return w.Flush()
}
