// Package validator checks documents before they reach the index builder.
// It enforces a non-empty key, valid UTF-8 and the configured size limit, and
// returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

const maxFilenameLength = 4096

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidDocument
}

// ValidateDocument checks doc against the limits. maxContentSize <= 0
// disables the size check. Deletions only need a filename.
func ValidateDocument(doc ingestion.Document, maxContentSize int) error {
	errs := make(map[string]string)

	switch {
	case strings.TrimSpace(doc.Filename) == "":
		errs["filename"] = "filename is required"
	case len(doc.Filename) > maxFilenameLength:
		errs["filename"] = fmt.Sprintf("filename must be at most %d bytes", maxFilenameLength)
	case !utf8.ValidString(doc.Filename):
		errs["filename"] = "filename is not valid UTF-8"
	}
	if !doc.Deleted {
		if !utf8.ValidString(doc.Content) {
			errs["content"] = "content is not valid UTF-8"
		} else if maxContentSize > 0 && len(doc.Content) > maxContentSize {
			errs["content"] = fmt.Sprintf("content must be at most %d bytes, got %d", maxContentSize, len(doc.Content))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
