package errors

import (
	"fmt"
	"time"
)

// Error types for the codegraph extraction engine
type ErrorType string

const (
	// Extraction errors
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeAnalyze  ErrorType = "analyze"
	ErrorTypeLanguage ErrorType = "language"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// ParseError represents a CST provider failure for a single file. It is a
// hard failure for that file only; other files and cache state are unaffected.
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Language   string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error with file context
func NewParseError(path, language string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Language:   language,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("parse failed for %s (%s): %v", e.FilePath, e.Language, e.Underlying)
	}
	return fmt.Sprintf("parse failed for %s: %v", e.FilePath, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// UnsupportedLanguageError is returned when no grammar is registered for a
// file's extension.
type UnsupportedLanguageError struct {
	Type      ErrorType
	FilePath  string
	Extension string
}

// NewUnsupportedLanguageError creates an error for a missing grammar
func NewUnsupportedLanguageError(path, ext string) *UnsupportedLanguageError {
	return &UnsupportedLanguageError{
		Type:      ErrorTypeLanguage,
		FilePath:  path,
		Extension: ext,
	}
}

// Error implements the error interface
func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("no grammar registered for %s (extension %q)", e.FilePath, e.Extension)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}
