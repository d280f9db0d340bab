package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/forgery-check/internal/logging"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func strPtr(s string) *string { return &s }

func TestClassifySendsWireContract(t *testing.T) {
	var (
		gotMethod string
		gotBody   string
		gotHeader http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result": "authentic"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(Options{Endpoint: srv.URL + "/", Origin: "http://localhost"}, zap.NewNop())
	res, err := client.Classify(context.Background(), "req-1", strPtr("data:image/jpeg;base64,/9j/4AAQ"))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res.Label != "authentic" {
		t.Fatalf("unexpected label: %q", res.Label)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotBody != `{"baseString":"data:image/jpeg;base64,/9j/4AAQ"}` {
		t.Fatalf("unexpected body: %s", gotBody)
	}
	if gotHeader.Get("Accept") != "application/json" || gotHeader.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected headers: %v", gotHeader)
	}
	if gotHeader.Get("Origin") != "http://localhost" {
		t.Fatalf("expected origin header, got %q", gotHeader.Get("Origin"))
	}
	if gotHeader.Get("X-Request-ID") != "req-1" {
		t.Fatalf("expected request id header, got %q", gotHeader.Get("X-Request-ID"))
	}
}

func TestClassifySendsNullWithoutImage(t *testing.T) {
	var gotBody string
	client := NewHTTPClient(Options{
		Endpoint: "http://classifier.test/",
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"result":"no image provided"}`)),
				Header:     make(http.Header),
			}, nil
		}),
	}, zap.NewNop())

	res, err := client.Classify(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if gotBody != `{"baseString":null}` {
		t.Fatalf("unexpected body: %s", gotBody)
	}
	if res.Label != "no image provided" {
		t.Fatalf("unexpected label: %q", res.Label)
	}
}

func TestClassifyTransportFailureIsLoggedAndWrapped(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	client := NewHTTPClient(Options{
		Endpoint: "http://classifier.test/",
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}),
	}, zap.New(core))

	_, err := client.Classify(context.Background(), "req-9", strPtr("x"))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) || opErr.RequestID != "req-9" {
		t.Fatalf("expected OperationError with request id, got %v", err)
	}
	if logs.FilterMessage("classification request failed").Len() != 1 {
		t.Fatalf("expected failure to be logged, got %v", logs.All())
	}
}

func TestClassifyShowsResultOfNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"result":"invalid image"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(Options{Endpoint: srv.URL}, zap.NewNop())
	res, err := client.Classify(context.Background(), "req-3", strPtr("x"))
	if err != nil {
		t.Fatalf("expected the answer to be used, got error: %v", err)
	}
	if res.Label != "invalid image" || res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestClassifyRejectsNonSuccessStatusWithoutJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(Options{Endpoint: srv.URL}, zap.NewNop())
	_, err := client.Classify(context.Background(), "req-2", strPtr("x"))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable || statusErr.Body != "model not loaded" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestClassifyRejectsUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	client := NewHTTPClient(Options{Endpoint: srv.URL}, zap.NewNop())
	if _, err := client.Classify(context.Background(), "", strPtr("x")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestClassifyTreatsMissingResultAsEmptyLabel(t *testing.T) {
	for _, body := range []string{`{}`, `{"result": null}`, `{"result": ""}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client := NewHTTPClient(Options{Endpoint: srv.URL}, zap.NewNop())
		res, err := client.Classify(context.Background(), "", strPtr("x"))
		srv.Close()
		if err != nil {
			t.Fatalf("body %s: expected success, got %v", body, err)
		}
		if res.Label != "" {
			t.Fatalf("body %s: expected empty label, got %q", body, res.Label)
		}
	}
}

func TestClassifyKeepsNonStringResultVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": 0.93}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(Options{Endpoint: srv.URL}, zap.NewNop())
	res, err := client.Classify(context.Background(), "", strPtr("x"))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res.Label != "0.93" {
		t.Fatalf("unexpected label: %q", res.Label)
	}
}

func TestClassifyHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(Options{Endpoint: "http://classifier.test/"}, zap.NewNop())
	if _, err := client.Classify(ctx, "", nil); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport for cancelled context, got %v", err)
	}
}

func TestNewHTTPClientDefaultsEndpoint(t *testing.T) {
	client := NewHTTPClient(Options{}, zap.NewNop())
	if client.Endpoint() != DefaultEndpoint {
		t.Fatalf("unexpected endpoint: %s", client.Endpoint())
	}
}
