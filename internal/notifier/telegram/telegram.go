package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/sextant/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if base, ok := cfg.Params["api_base"].(string); ok && base != "" {
		t.apiBase = base
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

// Send posts a formatted summary of the event to the chat.
func (t *Telegram) Send(ctx context.Context, event notifier.Event) error {
	return t.sendMessage(ctx, t.formatEvent(event))
}

func (t *Telegram) formatEvent(e notifier.Event) string {
	var sb strings.Builder

	emoji := "✅"
	if e.Status == notifier.StatusFailed {
		emoji = "❌"
	}
	sb.WriteString(fmt.Sprintf("%s *%s %s* - %s\n", emoji, e.Kind, e.Status, e.Name))

	if e.Error != "" {
		sb.WriteString(fmt.Sprintf("💡 Error: %s\n", e.Error))
	}

	if len(e.Runs) == 1 {
		r := e.Runs[0]
		sb.WriteString(fmt.Sprintf("📊 %s %s\n", r.Symbol, r.Timeframe))
		sb.WriteString(fmt.Sprintf("💰 Return: %.2f%% (buy & hold %.2f%%)\n", r.TotalReturnPct, r.BuyHoldReturnPct))
		sb.WriteString(fmt.Sprintf("📉 Max drawdown: %.2f%%\n", r.MaxDrawdownPct))
		sb.WriteString(fmt.Sprintf("🔁 Trades: %d\n", r.TradeCount))
	} else if best, ok := e.Best(); ok {
		sb.WriteString(fmt.Sprintf("📊 %d runs\n", len(e.Runs)))
		sb.WriteString(fmt.Sprintf("🏆 Best: %s (%.2f%%)\n", best.Name, best.TotalReturnPct))
	}

	sb.WriteString(fmt.Sprintf("⏰ Time: %s", e.Time.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
