package logging

import (
	"errors"
	"fmt"
)

// OperationError annotates an error with the operation that failed and the submission it belonged to.
type OperationError struct {
	Operation string
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request_id=%s): %v", e.Operation, e.RequestID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps an error with structured context about where it occurred.
func NewOperationError(operation, requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RequestID: requestID, Err: err}
}

// Cause strips every OperationError layer and returns the innermost error, which is what the
// client screen shows to the user.
func Cause(err error) error {
	for {
		var opErr *OperationError
		if !errors.As(err, &opErr) || opErr.Err == nil {
			return err
		}
		err = opErr.Err
	}
}
