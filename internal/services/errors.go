package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFetch      = errors.New("fetch error")
	ErrValidation = errors.New("validation error")
	ErrParse      = errors.New("parse error")
	ErrCache      = errors.New("cache error")
	ErrNotFound   = errors.New("not found")
	ErrConfig     = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrFetch
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the marker carried by err, suitable for
// metrics labels and CLI exit reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrCache):
		return "cache"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfig):
		return "config"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "resolution failure"
	}
	return strings.Join(parts, ": ")
}
