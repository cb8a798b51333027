package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/sextant/internal/notifier"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_Name(t *testing.T) {
	tg := New("token", "chatid")
	if tg.Name() != "telegram" {
		t.Errorf("expected 'telegram', got '%s'", tg.Name())
	}
}

func TestTelegram_Init(t *testing.T) {
	tg := &Telegram{}

	cfg := notifier.Config{
		Params: map[string]any{
			"bot_token": "test-token",
			"chat_id":   "test-chat",
		},
	}

	if err := tg.Init(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tg.botToken != "test-token" {
		t.Errorf("expected bot_token 'test-token', got '%s'", tg.botToken)
	}
	if tg.chatID != "test-chat" {
		t.Errorf("expected chat_id 'test-chat', got '%s'", tg.chatID)
	}
	if tg.apiBase != defaultAPIBase {
		t.Errorf("expected default api base, got %s", tg.apiBase)
	}
}

func TestTelegram_Init_MissingToken(t *testing.T) {
	tg := &Telegram{}

	err := tg.Init(notifier.Config{Params: map[string]any{"chat_id": "test-chat"}})
	if err == nil {
		t.Error("expected error for missing bot_token")
	}
}

func TestTelegram_Init_MissingChatID(t *testing.T) {
	tg := &Telegram{}

	err := tg.Init(notifier.Config{Params: map[string]any{"bot_token": "test-token"}})
	if err == nil {
		t.Error("expected error for missing chat_id")
	}
}

func TestTelegram_Send(t *testing.T) {
	var receivedPayload map[string]any
	var receivedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	tg := New("test-token", "test-chat")
	tg.apiBase = server.URL

	event := notifier.Event{
		Kind:   notifier.KindBacktest,
		Status: notifier.StatusComplete,
		Name:   "oversold 25",
		Runs: []notifier.RunSummary{{
			Name: "oversold 25", Symbol: "BTCUSDT", Timeframe: "1h",
			TotalReturnPct: 4.25, BuyHoldReturnPct: 1.5, MaxDrawdownPct: 3.1, TradeCount: 6,
		}},
		Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	if err := tg.Send(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPath != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path %s", receivedPath)
	}
	if receivedPayload["chat_id"] != "test-chat" {
		t.Errorf("expected chat_id, got %v", receivedPayload["chat_id"])
	}
	text := receivedPayload["text"].(string)
	for _, want := range []string{"oversold 25", "BTCUSDT 1h", "4.25%", "1.50%", "Trades: 6", "2024-01-15 10:30:00"} {
		if !strings.Contains(text, want) {
			t.Errorf("message should contain %q:\n%s", want, text)
		}
	}
}

func TestTelegram_FormatEvent_Failed(t *testing.T) {
	tg := New("token", "chat")

	formatted := tg.formatEvent(notifier.Event{
		Kind:   notifier.KindSweep,
		Status: notifier.StatusFailed,
		Name:   "grid",
		Error:  "[NO_DATA] no data available",
		Time:   time.Now(),
	})

	if !strings.Contains(formatted, "❌") {
		t.Error("failed event should use the failure marker")
	}
	if !strings.Contains(formatted, "NO_DATA") {
		t.Error("failed event should contain the error")
	}
}

func TestTelegram_FormatEvent_Sweep(t *testing.T) {
	tg := New("token", "chat")

	formatted := tg.formatEvent(notifier.Event{
		Kind:   notifier.KindSweep,
		Status: notifier.StatusComplete,
		Name:   "grid",
		Runs: []notifier.RunSummary{
			{Name: "rsi_oversold=25", TotalReturnPct: 1},
			{Name: "rsi_oversold=30", TotalReturnPct: 2},
		},
		Time: time.Now(),
	})

	if !strings.Contains(formatted, "2 runs") {
		t.Error("sweep event should count runs")
	}
	if !strings.Contains(formatted, "Best: rsi_oversold=30") {
		t.Errorf("sweep event should name the best run:\n%s", formatted)
	}
}

func TestTelegram_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer server.Close()

	tg := New("token", "chat")
	tg.apiBase = server.URL

	if err := tg.Send(context.Background(), notifier.Event{Time: time.Now()}); err == nil {
		t.Error("expected error for API failure")
	}
}
