package models

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, contentType string, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestOllamaTransport_PassesJSON(t *testing.T) {
	for _, ct := range []string{"application/json", "application/x-ndjson"} {
		url := serve(t, ct, 200, `{"model":"test"}`)

		transport := &ollamaTransport{inner: http.DefaultTransport, provider: "ollama"}
		req, _ := http.NewRequest("POST", url, nil)
		resp, err := transport.RoundTrip(req)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", ct, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != `{"model":"test"}` {
			t.Errorf("%s: body = %q", ct, body)
		}
	}
}

func TestOllamaTransport_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		status      int
		body        string
	}{
		{"plain text proxy page", "text/plain", 200, "no available server"},
		{"server error", "", 503, "service unavailable"},
	}
	for _, tt := range tests {
		url := serve(t, tt.contentType, tt.status, tt.body)

		transport := &ollamaTransport{inner: http.DefaultTransport, provider: "ollama"}
		req, _ := http.NewRequest("POST", url, nil)
		_, err := transport.RoundTrip(req)

		var unavail *ErrModelUnavailable
		if !errors.As(err, &unavail) {
			t.Fatalf("%s: expected ErrModelUnavailable, got %T: %v", tt.name, err, err)
		}
		if !strings.Contains(unavail.Body, tt.body) {
			t.Errorf("%s: body = %q, want to contain %q", tt.name, unavail.Body, tt.body)
		}
		if !strings.Contains(err.Error(), "ollama unavailable") {
			t.Errorf("%s: message = %q", tt.name, err)
		}
	}
}

func TestOllamaTransport_ConnectionError(t *testing.T) {
	transport := &ollamaTransport{inner: http.DefaultTransport, provider: "ollama"}
	req, _ := http.NewRequest("POST", "http://127.0.0.1:1", nil) // nothing listening
	_, err := transport.RoundTrip(req)

	var unavail *ErrModelUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrModelUnavailable, got %T: %v", err, err)
	}
	if errors.Unwrap(unavail) == nil {
		t.Error("expected the dial error to be preserved as cause")
	}
}
