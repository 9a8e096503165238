package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/Veraticus/the-data-must-flow/internal/aggregate"
	"github.com/Veraticus/the-data-must-flow/internal/cli"
	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/config"
	"github.com/Veraticus/the-data-must-flow/internal/document"
	"github.com/Veraticus/the-data-must-flow/internal/extract"
	"github.com/Veraticus/the-data-must-flow/internal/llm"
	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/Veraticus/the-data-must-flow/internal/output"
	"github.com/Veraticus/the-data-must-flow/internal/pipeline"
	"github.com/Veraticus/the-data-must-flow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract fields from a directory of documents",
		Long: `Read every supported document (.txt, .pdf, .docx, .html) in the input
directory, run the extractors over each one and write the results.

One JSON file is written per document, plus a cross-document aggregation of
the personal data. Documents that fail to decode are logged and skipped.

Examples:
  mentat extract -i ./applications
  mentat extract -i ./applications -o ./out --summary --validate
  mentat extract -i ./applications --extractors personal_data_extractor --workers 4`,
		RunE: runExtract,
	}

	cmd.Flags().StringP("input-dir", "i", "", "Directory containing documents to process (required)")
	cmd.Flags().StringP("output-dir", "o", "data/output", "Directory for output files")
	cmd.Flags().StringP("output-file", "f", "", "Output file name when processing a single document")
	cmd.Flags().String("api-key", "", "LLM API key (overrides ANTHROPIC_API_KEY / OPENAI_API_KEY)")
	cmd.Flags().String("model", "", "LLM model name")
	cmd.Flags().String("provider", "", "LLM provider (anthropic, openai)")
	cmd.Flags().Bool("include-metadata", false, "Include extraction timestamps in per-document output")
	cmd.Flags().Bool("validate", false, "Write a validation report with per-field statistics")
	cmd.Flags().Bool("summary", false, "Write a comprehensive summary of the batch")
	cmd.Flags().Bool("xlsx", false, "Also export the aggregation as an XLSX workbook")
	cmd.Flags().Int("workers", 1, "Number of documents to process concurrently")
	cmd.Flags().StringSlice("extractors", nil, "Only run these extractors (default: all)")
	cmd.Flags().String("profile", "", "Confidence profile (basic, strict)")
	cmd.Flags().String("db", "", "SQLite database for run history (disabled when empty)")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	_ = viper.BindPFlag("input.dir", cmd.Flags().Lookup("input-dir"))
	_ = viper.BindPFlag("output.dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("output.file", cmd.Flags().Lookup("output-file"))
	_ = viper.BindPFlag("llm.api_key", cmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("llm.model", cmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("llm.provider", cmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("output.include_metadata", cmd.Flags().Lookup("include-metadata"))
	_ = viper.BindPFlag("output.validate", cmd.Flags().Lookup("validate"))
	_ = viper.BindPFlag("output.summary", cmd.Flags().Lookup("summary"))
	_ = viper.BindPFlag("output.xlsx", cmd.Flags().Lookup("xlsx"))
	_ = viper.BindPFlag("extraction.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("extraction.extractors", cmd.Flags().Lookup("extractors"))
	_ = viper.BindPFlag("extraction.confidence_profile", cmd.Flags().Lookup("profile"))
	_ = viper.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("extraction.verbose", cmd.Flags().Lookup("verbose"))

	return cmd
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if viper.GetBool("extraction.verbose") {
		if err := setupLogging("debug"); err != nil {
			return err
		}
	}

	// Configuration problems are fatal before any document is read
	cfg, err := config.LoadExtraction(viper.GetViper())
	if err != nil {
		return err
	}
	llmCfg, err := config.LoadLLMConfig(viper.GetViper())
	if err != nil {
		return err
	}
	profile, err := extract.ProfileByName(cfg.ConfidenceProfile)
	if err != nil {
		return common.NewUserError("unknown confidence profile", err)
	}

	client, err := llm.NewClient(llmCfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer closeClient(client)

	p, err := buildPipeline(client, profile, llmCfg, cfg.Extractors)
	if err != nil {
		return err
	}

	scan, err := scanInput(ctx, cfg.InputDir)
	if err != nil {
		return err
	}
	if scan == nil {
		return nil
	}
	if len(scan.Documents) == 0 {
		slog.Warn("No documents found to process", "dir", cfg.InputDir, "error", common.ErrNoDocuments)
		return nil
	}

	inputs := make([]pipeline.Input, len(scan.Documents))
	for i, doc := range scan.Documents {
		if q := document.Validate(doc.Text); !q.Valid {
			slog.Warn("Document may not extract well", "filename", doc.Filename, "reason", q.Reason, "score", q.Score)
		}
		inputs[i] = pipeline.Input{Filename: doc.Filename, Text: doc.Text}
	}

	history, run, err := openHistory(ctx, cfg.DatabasePath, cfg.InputDir, llmCfg.Model)
	if err != nil {
		return err
	}
	if history != nil {
		defer closeStore(history)
	}

	slog.Info("Processing documents", "count", len(inputs), "workers", cfg.Workers)
	progress := cli.NewProgress(os.Stderr, len(inputs), "Extracting")
	batch, batchErr := p.ProcessBatch(ctx, inputs, pipeline.BatchOptions{
		Enabled:    cfg.Extractors,
		Workers:    cfg.Workers,
		OnDocument: func(*model.DocumentResult) { progress.Advance() },
	})
	progress.Finish()

	// Whatever completed is written out even after an interrupt
	saveCtx := context.WithoutCancel(ctx)

	if history != nil {
		for i, doc := range batch.Documents {
			if err := history.SaveDocument(saveCtx, run.ID, i, doc); err != nil {
				slog.Error("Failed to record document", "filename", doc.Filename, "error", err)
			}
		}
	}

	if errors.Is(batchErr, common.ErrNoResults) {
		slog.Error("No data was successfully extracted", "documents", len(batch.Documents))
		finishRun(saveCtx, history, run, storage.StatusFailed)
		return nil
	}

	saved, err := writeOutputs(cfg, batch.Usable)
	if err != nil {
		finishRun(saveCtx, history, run, storage.StatusFailed)
		return err
	}

	status := storage.StatusCompleted
	if batch.Interrupted {
		status = storage.StatusInterrupted
	}
	finishRun(saveCtx, history, run, status)

	summary := aggregate.SummarizeBatch(batch.Usable)
	stats := cli.RunStats{
		ExtractionTypes:   summary.ExtractionTypesFound,
		SavedFiles:        saved,
		Duration:          batch.Duration,
		Documents:         len(batch.Documents),
		Usable:            len(batch.Usable),
		Skipped:           batch.Skipped,
		ReadFailures:      len(scan.Failures),
		AverageConfidence: summary.OverallAverageConfidence,
		Interrupted:       batch.Interrupted,
	}
	for _, doc := range batch.Documents {
		stats.Extractions += len(doc.Metadata.ExtractorsRun)
	}
	if run != nil {
		stats.RunID = run.ID
	}
	fmt.Println(cli.RenderRunSummary(stats)) //nolint:forbidigo // User-facing output

	if batch.Interrupted {
		slog.Warn("Extraction interrupted by user", "completed", len(batch.Documents), "total", len(inputs))
	}
	return nil
}

// scanInput reads the input directory. An interrupt during the scan is logged
// and reported as a nil scan with no error.
func scanInput(ctx context.Context, dir string) (*document.Scan, error) {
	scan, err := document.NewLoader(slog.Default()).ProcessDirectory(ctx, dir)
	switch {
	case err == nil:
		return scan, nil
	case errors.Is(err, context.Canceled):
		slog.Warn("Extraction interrupted while reading documents", "dir", dir)
		return nil, nil
	case errors.Is(err, common.ErrNotFound):
		return nil, common.NewUserError(fmt.Sprintf("input directory %s does not exist", dir), err)
	default:
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
}

// buildPipeline registers the built-in extractors, applies the model settings
// and checks the enabled names against the registry.
func buildPipeline(client llm.Client, profile extract.ConfidenceProfile, llmCfg llm.Config, enabled []string) (*pipeline.Pipeline, error) {
	p := pipeline.NewDefault(client, profile, slog.Default())

	p.SetModelConfig(extract.ModelConfig{
		Model:       llmCfg.Model,
		MaxTokens:   llmCfg.MaxTokens,
		Temperature: llmCfg.Temperature,
	})

	names := p.Names()
	for _, name := range enabled {
		if !slices.Contains(names, name) {
			return nil, common.NewUserError(
				fmt.Sprintf("extractor %q is not registered (available: %s)", name, strings.Join(names, ", ")),
				common.ErrUnknownExtractor,
			)
		}
	}

	for _, info := range p.List() {
		slog.Info("Loaded extractor", "name", info.Name, "type", info.Type, "priority", info.Priority)
	}
	return p, nil
}

// writeOutputs saves per-document results, the aggregation and any optional
// reports, returning the paths written.
func writeOutputs(cfg config.Extraction, usable []*model.DocumentResult) ([]string, error) {
	out, err := output.NewManager(cfg.OutputDir, slog.Default())
	if err != nil {
		return nil, err
	}

	var saved []string
	filenames := make([]string, len(usable))
	for i, doc := range usable {
		filenames[i] = doc.Filename
	}
	for i, name := range output.ResultNames(filenames, cfg.OutputFile) {
		path, err := out.SaveDocument(usable[i], name, cfg.IncludeMetadata)
		if err != nil {
			return saved, fmt.Errorf("failed to save results for %s: %w", usable[i].Filename, err)
		}
		saved = append(saved, path)
	}

	report := aggregate.Aggregate(usable)
	path, err := out.SaveAggregation(report)
	if err != nil {
		return saved, fmt.Errorf("failed to save aggregation: %w", err)
	}
	saved = append(saved, path)

	if cfg.XLSX {
		path, err := out.ExportXLSX(report, usable)
		if err != nil {
			return saved, fmt.Errorf("failed to export workbook: %w", err)
		}
		saved = append(saved, path)
	}

	if cfg.Summary || cfg.Validate {
		path, err := out.SaveSummary(aggregate.SummarizeBatch(usable))
		if err != nil {
			return saved, fmt.Errorf("failed to save summary: %w", err)
		}
		saved = append(saved, path)
	}

	if cfg.Validate {
		path, err := out.SaveValidation(aggregate.Quality(usable))
		if err != nil {
			return saved, fmt.Errorf("failed to save validation report: %w", err)
		}
		saved = append(saved, path)
	}

	return saved, nil
}

// openHistory opens the run database when a path is configured. Both return
// values are nil when history is disabled.
func openHistory(ctx context.Context, dbPath, inputDir, modelName string) (*storage.SQLiteStorage, *storage.Run, error) {
	if dbPath == "" {
		return nil, nil, nil
	}

	store, err := initStorage(ctx, dbPath)
	if err != nil {
		return nil, nil, err
	}
	run, err := store.CreateRun(ctx, inputDir, modelName)
	if err != nil {
		closeStore(store)
		return nil, nil, err
	}
	slog.Debug("Recording run", "run_id", run.ID, "database", store.Path())
	return store, run, nil
}

func finishRun(ctx context.Context, store *storage.SQLiteStorage, run *storage.Run, status storage.RunStatus) {
	if store == nil || run == nil {
		return
	}
	if err := store.FinishRun(ctx, run.ID, status); err != nil {
		slog.Error("Failed to finish run", "run_id", run.ID, "error", err)
	}
}

func closeClient(client llm.Client) {
	closer, ok := client.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Error("Failed to close LLM client", "error", err)
	}
}
