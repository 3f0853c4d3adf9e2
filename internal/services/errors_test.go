package services_test

import (
	"errors"
	"strings"
	"testing"

	"moviemeta/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrFetch, "lookup", "search", "fetch failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"lookup", "search", "fetch failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "details", "", "", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if got := err.Error(); got != "validation error: details" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{services.Wrap(services.ErrFetch, "a", "b", "c", nil), "fetch"},
		{services.Wrap(services.ErrParse, "a", "b", "c", nil), "parse"},
		{services.Wrap(services.ErrCache, "a", "b", "c", errors.New("disk")), "cache"},
		{services.ErrValidation, "validation"},
		{errors.New("other"), "unknown"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Fatalf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
