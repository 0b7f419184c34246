package logging

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// OperationError ties a failure to the request and the step that produced
// it, e.g. "pipeline.decode" or "auth.verify".
type OperationError struct {
	Operation string
	RequestID string
	Err       error
}

func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.RequestID == "" {
		return e.Operation + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s [%s]: %v", e.Operation, e.RequestID, e.Err)
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError returns nil for a nil err.
func NewOperationError(operation, requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RequestID: requestID, Err: err}
}

// OperationOf reports the step recorded on err, or "" if there is none.
func OperationOf(err error) string {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Operation
	}
	return ""
}

// ErrorFields renders err for a log line, lifting the failed step out of an
// OperationError into its own field.
func ErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if op := OperationOf(err); op != "" {
		fields = append(fields, zap.String("failed_operation", op))
	}
	return fields
}
