package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sextant/internal/notifier"
)

func sampleEvent() notifier.Event {
	return notifier.Event{
		Kind:   notifier.KindBacktest,
		Status: notifier.StatusComplete,
		Name:   "BTCUSDT 1h 30d",
		Runs: []notifier.RunSummary{
			{ID: "01HQ", Name: "BTCUSDT 1h 30d", Symbol: "BTCUSDT", Timeframe: "1h", TotalReturnPct: 2.5},
		},
		Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
	assert.Equal(t, "webhook", New("", nil).Name())
}

func TestWebhook_Init(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"missing url", map[string]any{}, true},
		{"relative url", map[string]any{"url": "/hook"}, true},
		{"unsupported scheme", map[string]any{"url": "ftp://example.com/hook"}, true},
		{"bad timeout", map[string]any{"url": "http://example.com/hook", "timeout": "soon"}, true},
		{"negative timeout", map[string]any{"url": "http://example.com/hook", "timeout": "-1s"}, true},
		{"minimal", map[string]any{"url": "https://example.com/hook"}, false},
		{"full", map[string]any{
			"url":     "http://example.com/hook",
			"headers": map[string]any{"X-Token": "abc", "X-Retry": 3},
			"secret":  "s3cret",
			"timeout": "5s",
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Webhook{}
			err := w.Init(notifier.Config{Type: "webhook", Params: tt.params})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, w.client)
		})
	}

	w := &Webhook{}
	require.NoError(t, w.Init(notifier.Config{Params: map[string]any{
		"url":     "http://example.com/hook",
		"headers": map[string]any{"X-Retry": 3},
		"timeout": "5s",
	}}))
	assert.Equal(t, "3", w.headers["X-Retry"], "untyped header values are stringified")
	assert.Equal(t, 5*time.Second, w.client.Timeout)
}

func TestWebhook_Send(t *testing.T) {
	var (
		payload map[string]any
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wh := New(server.URL, map[string]string{"Authorization": "Bearer test-token"})
	require.NoError(t, wh.Send(context.Background(), sampleEvent()))

	assert.Equal(t, "backtest", payload["kind"])
	assert.Equal(t, "complete", payload["status"])
	runs := payload["runs"].([]any)
	assert.Equal(t, 2.5, runs[0].(map[string]any)["total_return_pct"])

	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "Bearer test-token", headers.Get("Authorization"))
	assert.Empty(t, headers.Get(SignatureHeader), "no secret, no signature")
}

func TestWebhook_SignsBody(t *testing.T) {
	var body []byte
	var signature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get(SignatureHeader)
	}))
	defer server.Close()

	wh := &Webhook{}
	require.NoError(t, wh.Init(notifier.Config{Params: map[string]any{"url": server.URL, "secret": "s3cret"}}))
	require.NoError(t, wh.Send(context.Background(), sampleEvent()))

	assert.True(t, strings.HasPrefix(signature, "sha256="))
	assert.Equal(t, Sign([]byte("s3cret"), body), signature)
	assert.NotEqual(t, Sign([]byte("other"), body), signature)
}

func TestWebhook_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := New(server.URL, nil).Send(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, New(server.URL, nil).Send(ctx, sampleEvent()), "canceled context")
}
