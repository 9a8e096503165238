package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-data-must-flow/internal/aggregate"
	"github.com/Veraticus/the-data-must-flow/internal/cli"
	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/config"
	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/Veraticus/the-data-must-flow/internal/output"
	"github.com/Veraticus/the-data-must-flow/internal/pipeline"
	"github.com/Veraticus/the-data-must-flow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func aggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Re-aggregate a recorded run",
		Long: `Reload the documents of a recorded run from the history database and
aggregate them again without calling the LLM.

Examples:
  mentat aggregate --db ~/.local/share/mentat/mentat.db
  mentat aggregate --run 5f0c... --xlsx`,
		RunE: runAggregate,
	}

	cmd.Flags().String("run", "", "Run ID to aggregate (default: latest run)")
	cmd.Flags().String("db", "", "SQLite database holding run history")
	cmd.Flags().StringP("output-dir", "o", "data/output", "Directory for output files")
	cmd.Flags().Bool("xlsx", false, "Also export the aggregation as an XLSX workbook")

	_ = viper.BindPFlag("aggregate.run", cmd.Flags().Lookup("run"))
	_ = viper.BindPFlag("aggregate.db", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("aggregate.output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("aggregate.xlsx", cmd.Flags().Lookup("xlsx"))

	return cmd
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if db := viper.GetString("aggregate.db"); db != "" {
		viper.Set("database.path", db)
	}
	store, err := historyStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStore(store)

	var run *storage.Run
	if id := viper.GetString("aggregate.run"); id != "" {
		run, err = store.GetRun(ctx, id)
	} else {
		run, err = store.LatestRun(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to find run: %w", err)
	}

	docs, err := store.LoadDocuments(ctx, run.ID)
	if err != nil {
		return err
	}
	var usable []*model.DocumentResult
	for _, doc := range docs {
		if pipeline.Usable(doc) {
			usable = append(usable, doc)
		}
	}
	if len(usable) == 0 {
		return fmt.Errorf("run %s: %w", run.ID, common.ErrNoDocuments)
	}
	slog.Info("Aggregating recorded run", "run_id", run.ID, "documents", len(usable))

	out, err := output.NewManager(config.ExpandPath(viper.GetString("aggregate.output_dir")), slog.Default())
	if err != nil {
		return err
	}

	report := aggregate.Aggregate(usable)
	saved := []string{}
	path, err := out.SaveAggregation(report)
	if err != nil {
		return fmt.Errorf("failed to save aggregation: %w", err)
	}
	saved = append(saved, path)

	if viper.GetBool("aggregate.xlsx") {
		path, err := out.ExportXLSX(report, usable)
		if err != nil {
			return fmt.Errorf("failed to export workbook: %w", err)
		}
		saved = append(saved, path)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Aggregated %d fields from %d documents", //nolint:forbidigo // User-facing output
		report.Summary.FieldsWithData, len(usable))))
	for _, f := range saved {
		fmt.Println("  " + cli.SubtleStyle.Render(f)) //nolint:forbidigo // User-facing output
	}
	return nil
}
