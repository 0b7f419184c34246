package logging

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNewOperationErrorNil(t *testing.T) {
	if err := NewOperationError("pipeline.extract", "req-1", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewOperationError("pipeline.score", "req-2", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find cause in %v", err)
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "pipeline.score" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
	if got, want := err.Error(), "pipeline.score [req-2]: boom"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestOperationErrorWithoutRequestID(t *testing.T) {
	err := NewOperationError("pipeline.decode", "", errors.New("bad bytes"))
	if got, want := err.Error(), "pipeline.decode: bad bytes"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestOperationOfAndErrorFields(t *testing.T) {
	wrapped := fmt.Errorf("predict: %w", NewOperationError("pipeline.extract", "req-3", errors.New("empty")))
	if op := OperationOf(wrapped); op != "pipeline.extract" {
		t.Fatalf("expected pipeline.extract, got %q", op)
	}
	if fields := ErrorFields(wrapped); len(fields) != 2 || fields[1].String != "pipeline.extract" {
		t.Fatalf("unexpected fields %+v", fields)
	}

	plain := errors.New("plain")
	if op := OperationOf(plain); op != "" {
		t.Fatalf("expected no operation, got %q", op)
	}
	if fields := ErrorFields(plain); len(fields) != 1 {
		t.Fatalf("expected only the error field, got %+v", fields)
	}
}

func TestRequestIDContext(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
	ctx := ContextWithRequestID(context.Background(), "abc")
	if id := RequestIDFromContext(ctx); id != "abc" {
		t.Fatalf("expected abc, got %q", id)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	logger, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Fatal("expected debug level to be enabled")
	}
}
