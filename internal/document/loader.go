// Package document reads input files into plain text.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/model"
)

type decodeFunc func(data []byte) (string, error)

var decoders = map[string]decodeFunc{
	".txt":  decodeText,
	".pdf":  decodePDF,
	".docx": decodeWord,
	".doc":  decodeWord,
	".html": decodeHTML,
	".htm":  decodeHTML,
}

// Supported reports whether path has a readable extension.
func Supported(path string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Failure records a file that could not be decoded.
type Failure struct {
	Err      error
	Filename string
}

// Scan is the outcome of reading a directory.
type Scan struct {
	Documents []model.Document
	Failures  []Failure
	Skipped   []string
}

// Loader reads documents from disk.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: common.LoggerOrDefault(logger)}
}

// ProcessDirectory reads every supported file directly inside dir, in name
// order. Unsupported files are skipped; files that fail to decode are logged
// and reported in Failures without stopping the scan.
func (l *Loader) ProcessDirectory(ctx context.Context, dir string) (*Scan, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("directory %s: %w", dir, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	scan := &Scan{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return scan, err
		}
		if entry.IsDir() {
			continue
		}
		if !Supported(entry.Name()) {
			scan.Skipped = append(scan.Skipped, entry.Name())
			continue
		}

		doc, err := l.ReadDocument(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			l.logger.Error("Failed to process document", "filename", entry.Name(), "error", err)
			scan.Failures = append(scan.Failures, Failure{Filename: entry.Name(), Err: err})
			continue
		}
		l.logger.Info("Read document", "filename", doc.Filename, "size", doc.Size)
		scan.Documents = append(scan.Documents, doc)
	}
	return scan, nil
}

// ReadDocument decodes a single file by extension. Files with no text are
// rejected with common.ErrEmptyDocument.
func (l *Loader) ReadDocument(ctx context.Context, path string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return model.Document{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Document{}, fmt.Errorf("file %s: %w", path, common.ErrNotFound)
		}
		return model.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := decode(data)
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(text) == "" {
		return model.Document{}, fmt.Errorf("%s: %w", filepath.Base(path), common.ErrEmptyDocument)
	}

	return model.Document{
		Filename: filepath.Base(path),
		Path:     path,
		Text:     text,
		Size:     int64(len(data)),
	}, nil
}
