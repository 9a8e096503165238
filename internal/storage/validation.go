// Package storage keeps the history of extraction runs in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-data-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidDocument = errors.New("invalid document result")
	ErrInvalidStatus   = errors.New("invalid run status")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateDocument(doc *model.DocumentResult, position int) error {
	if doc == nil {
		return fmt.Errorf("%w: document", ErrNilParameter)
	}
	if strings.TrimSpace(doc.Filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidDocument)
	}
	if position < 0 {
		return fmt.Errorf("%w: negative position %d", ErrInvalidDocument, position)
	}
	return nil
}

func validateStatus(status RunStatus) error {
	switch status {
	case StatusRunning, StatusCompleted, StatusInterrupted, StatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}
