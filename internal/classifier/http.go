package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/logging"
)

// DefaultEndpoint is where the detection service listens on the development network.
const DefaultEndpoint = "http://192.168.29.32:5000/"

const (
	maxErrorBody    = 512
	maxResponseBody = 1 << 20
)

// Options configures HTTPClient.
type Options struct {
	Endpoint string
	// Origin is sent as the Origin header so a CORS-aware service treats the call as cross-origin.
	Origin string
	// Timeout bounds the whole exchange. Zero leaves the request unbounded.
	Timeout time.Duration
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// HTTPClient posts image references to the classification service as JSON.
type HTTPClient struct {
	endpoint string
	origin   string
	httpc    *http.Client
	logger   *zap.Logger
}

// NewHTTPClient returns a ready-to-use classification client.
func NewHTTPClient(opts Options, logger *zap.Logger) *HTTPClient {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPClient{
		endpoint: endpoint,
		origin:   opts.Origin,
		httpc:    &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		logger:   logger.Named("classifier"),
	}
}

// Endpoint returns the URL requests are sent to.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Classify sends one POST and maps the answer. There is no retry.
func (c *HTTPClient) Classify(ctx context.Context, requestID string, baseString *string) (*Result, error) {
	opLogger := logging.WithOperation(c.logger, "classifier.classify", requestID)

	payload, err := json.Marshal(Request{BaseString: baseString})
	if err != nil {
		return nil, logging.NewOperationError("classifier.encode_request", requestID, err)
	}
	opLogger.Debug("sending classification request",
		zap.String("endpoint", c.endpoint),
		logging.Payload("baseString", baseString),
		zap.Int("body_bytes", len(payload)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, logging.NewOperationError("classifier.build_request", requestID, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	started := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("classifier.classify", requestID, fmt.Errorf("%w: %v", ErrTransport, err))
		opLogger.Error("classification request failed", zap.Error(wrapped))
		return nil, wrapped
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		wrapped := logging.NewOperationError("classifier.classify", requestID, fmt.Errorf("%w: %v", ErrTransport, err))
		opLogger.Error("classification response read failed", zap.Error(wrapped))
		return nil, wrapped
	}

	// Any status is accepted as long as the body parses; only an unparseable body fails.
	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			wrapped := logging.NewOperationError("classifier.classify", requestID, &StatusError{
				Code: resp.StatusCode,
				Body: logging.Truncate(strings.TrimSpace(string(body)), maxErrorBody),
			})
			opLogger.Error("classification service rejected request", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
			return nil, wrapped
		}
		wrapped := logging.NewOperationError("classifier.decode_response", requestID, fmt.Errorf("%w: %v", ErrDecode, err))
		opLogger.Error("failed to decode classification response", zap.Error(wrapped))
		return nil, wrapped
	}
	label, err := out.Label()
	if err != nil {
		wrapped := logging.NewOperationError("classifier.decode_response", requestID, err)
		opLogger.Error("classification response has no usable result", zap.Error(wrapped))
		return nil, wrapped
	}

	opLogger.Info("classification completed",
		zap.String("result", label),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)),
	)
	return &Result{Label: label, StatusCode: resp.StatusCode}, nil
}

var _ Client = (*HTTPClient)(nil)
