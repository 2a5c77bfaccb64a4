// Package errors defines the sentinel errors shared by the indexer, the store
// and the query engine, and maps them to process exit codes for the CLI.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery     = errors.New("invalid query")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrDocumentNotFound = errors.New("document not found")
	ErrIndexNotFound    = errors.New("index not found")
	ErrWriterLocked     = errors.New("index is locked by another writer")
	ErrCorruptSegment   = errors.New("corrupt segment")
	ErrAnalyzerMismatch = errors.New("analyzer configuration does not match index")
	ErrClosed           = errors.New("closed")
)

// Exit codes used by the command line front end.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitInvalid = 2
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// ExitCode reports the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidQuery):
		return ExitInvalid
	default:
		return ExitFatal
	}
}
