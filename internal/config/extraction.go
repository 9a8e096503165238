// Package config turns viper settings into the typed configuration used by
// the extract command.
package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/spf13/viper"
)

// Extraction holds settings for a batch run.
type Extraction struct {
	ConfidenceProfile string
	Extractors        []string
	InputDir          string
	OutputDir         string
	OutputFile        string
	DatabasePath      string
	Workers           int
	IncludeMetadata   bool
	Validate          bool
	Summary           bool
	XLSX              bool
}

// LoadExtraction reads extraction and output settings.
func LoadExtraction(v *viper.Viper) (Extraction, error) {
	cfg := Extraction{
		ConfidenceProfile: strings.ToLower(v.GetString("extraction.confidence_profile")),
		Extractors:        v.GetStringSlice("extraction.extractors"),
		InputDir:          ExpandPath(v.GetString("input.dir")),
		OutputDir:         ExpandPath(v.GetString("output.dir")),
		OutputFile:        v.GetString("output.file"),
		DatabasePath:      ExpandPath(v.GetString("database.path")),
		Workers:           v.GetInt("extraction.workers"),
		IncludeMetadata:   v.GetBool("output.include_metadata"),
		Validate:          v.GetBool("output.validate"),
		Summary:           v.GetBool("output.summary"),
		XLSX:              v.GetBool("output.xlsx"),
	}

	if cfg.ConfidenceProfile == "" {
		cfg.ConfidenceProfile = "basic"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "data/output"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	if cfg.InputDir == "" {
		return Extraction{}, fmt.Errorf("%w: input directory is required", common.ErrMissingConfig)
	}
	if strings.ContainsAny(cfg.OutputFile, `/\`) {
		return Extraction{}, fmt.Errorf("%w: output file must be a file name, not a path: %s", common.ErrInvalidConfig, cfg.OutputFile)
	}

	return cfg, nil
}
