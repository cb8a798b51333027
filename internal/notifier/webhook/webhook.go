// Package webhook posts run events as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newthinker/sextant/internal/notifier"
)

const (
	// SignatureHeader carries "sha256=<hex hmac of the body>" when a secret
	// is configured.
	SignatureHeader = "X-Sextant-Signature"

	defaultTimeout = 30 * time.Second
)

type Webhook struct {
	url     string
	headers map[string]string
	secret  []byte
	client  *http.Client
}

func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Init reads url, headers, secret and timeout from cfg.Params.
func (w *Webhook) Init(cfg notifier.Config) error {
	if raw, ok := cfg.Params["url"].(string); ok {
		w.url = raw
	}
	switch headers := cfg.Params["headers"].(type) {
	case map[string]string:
		w.headers = headers
	case map[string]any:
		// viper decodes nested maps untyped
		w.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			w.headers[k] = fmt.Sprint(v)
		}
	}
	if secret, ok := cfg.Params["secret"].(string); ok {
		w.secret = []byte(secret)
	}

	u, err := url.Parse(w.url)
	if w.url == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook: url must be an absolute http(s) URL, got %q", w.url)
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: defaultTimeout}
	}
	if raw, ok := cfg.Params["timeout"]; ok {
		d, err := time.ParseDuration(fmt.Sprint(raw))
		if err != nil || d <= 0 {
			return fmt.Errorf("webhook: invalid timeout %v", raw)
		}
		w.client.Timeout = d
	}
	return nil
}

// Send posts the event as JSON. Any non-2xx answer is an error.
func (w *Webhook) Send(ctx context.Context, event notifier.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sextant-webhook")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	if len(w.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
