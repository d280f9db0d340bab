// Package classifier talks to the remote forgery detection service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrTransport covers DNS, connect and transfer failures.
	ErrTransport = errors.New("classification service unreachable")
	// ErrDecode covers bodies that are not JSON or lack a result field.
	ErrDecode = errors.New("unreadable classification response")
)

// Result is the outcome returned by the classification service. Label is opaque to the client.
type Result struct {
	Label      string
	StatusCode int
}

// Client exposes the one call the verification flow makes.
type Client interface {
	Classify(ctx context.Context, requestID string, baseString *string) (*Result, error)
}

// Request is the wire body. A nil BaseString is sent as JSON null.
type Request struct {
	BaseString *string `json:"baseString"`
}

// Response is the wire answer. Result is kept raw because the service does not promise a string.
type Response struct {
	Result json.RawMessage `json:"result"`
}

// StatusError is returned for non-2xx answers whose body is not JSON.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("classification service returned status %d", e.Code)
	}
	return fmt.Sprintf("classification service returned status %d: %s", e.Code, e.Body)
}

// Label turns the raw result into display text: JSON strings are unquoted, a missing or null
// result is the empty label, anything else is shown as the JSON literal.
func (r Response) Label() (string, error) {
	raw := bytes.TrimSpace(r.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return label, nil
	}
	return string(raw), nil
}
