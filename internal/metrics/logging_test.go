package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func captureLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel))
}

func serveLogged(t *testing.T, status int, req *http.Request) (map[string]any, *httptest.ResponseRecorder, string) {
	t.Helper()
	var buf bytes.Buffer
	var seenID string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestID(r.Context())
		w.WriteHeader(status)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(captureLogger(&buf))(mux).ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v, log: %s", err, buf.String())
	}
	return entry, w, seenID
}

func TestLoggingMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/runs/01HX", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	entry, w, seenID := serveLogged(t, http.StatusOK, req)

	if entry["method"] != "GET" {
		t.Errorf("expected method GET, got %v", entry["method"])
	}
	if entry["path"] != "/api/v1/runs/01HX" {
		t.Errorf("expected concrete path, got %v", entry["path"])
	}
	if entry["route"] != "GET /api/v1/runs/{id}" {
		t.Errorf("expected matched pattern as route, got %v", entry["route"])
	}
	if entry["status"].(float64) != 200 {
		t.Errorf("expected status 200, got %v", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
	if entry["client_ip"] != "192.168.1.1" {
		t.Errorf("expected client_ip without port, got %v", entry["client_ip"])
	}

	requestID := w.Header().Get(RequestIDHeader)
	if requestID == "" {
		t.Fatal("expected X-Request-ID header")
	}
	if entry["request_id"] != requestID || seenID != requestID {
		t.Errorf("request id mismatch: header %s, log %v, handler %s", requestID, entry["request_id"], seenID)
	}
}

func TestLoggingMiddleware_ReusesRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/runs/01HX", nil)
	req.Header.Set(RequestIDHeader, "req-42")

	entry, w, seenID := serveLogged(t, http.StatusOK, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("expected caller's request id echoed, got %q", got)
	}
	if entry["request_id"] != "req-42" || seenID != "req-42" {
		t.Errorf("expected req-42 in log and context, got %v, %q", entry["request_id"], seenID)
	}
}

func TestLoggingMiddleware_Level(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusNotFound, "warn"},
		{http.StatusBadGateway, "error"},
	}
	for _, tt := range tests {
		entry, _, _ := serveLogged(t, tt.status, httptest.NewRequest("GET", "/api/v1/runs/x", nil))
		if entry["level"] != tt.level {
			t.Errorf("status %d logged at %v, want %s", tt.status, entry["level"], tt.level)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"remote addr", "", "10.0.0.1:54321", "10.0.0.1"},
		{"forwarded single", "203.0.113.50", "10.0.0.1:54321", "203.0.113.50"},
		{"forwarded chain", "203.0.113.50, 70.41.3.18", "10.0.0.1:54321", "203.0.113.50"},
		{"no port", "", "unix", "unix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
