// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Document errors.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoDocuments       = errors.New("no supported documents found")
	ErrEmptyDocument     = errors.New("document contains no text")
	ErrMalformedDocument = errors.New("malformed document")

	// Extraction errors.
	ErrNoResults        = errors.New("no documents produced usable results")
	ErrExtractorPanic   = errors.New("extractor panicked")
	ErrNilResult        = errors.New("extractor returned no result")
	ErrUnknownExtractor = errors.New("unknown extractor")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsConfigError reports whether err stems from missing or invalid configuration.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingConfig) || errors.Is(err, ErrInvalidConfig)
}
