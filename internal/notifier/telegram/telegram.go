package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/notifier"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
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

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, signal core.EnhancedSignal) error {
	return t.sendMessage(ctx, t.formatSignal(signal))
}

func (t *Telegram) formatSignal(signal core.EnhancedSignal) string {
	var sb strings.Builder

	actionEmoji := "⏸️"
	switch strings.ToUpper(signal.Action) {
	case "BUY", "LONG":
		actionEmoji = "📈"
	case "SELL", "SHORT":
		actionEmoji = "📉"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* %s - %s\n", actionEmoji, signal.Pair, signal.Timeframe, signal.Action))
	sb.WriteString(fmt.Sprintf("📊 Confidence: %.1f%% → %.1f%% (%+.1f%%)\n",
		signal.OriginalConfidence*100, signal.EnhancedConfidence*100, signal.ConfidenceDelta*100))
	sb.WriteString(fmt.Sprintf("💪 Strength: %s\n", signal.Strength))

	if signal.Matched {
		sb.WriteString(fmt.Sprintf("⚡ Pattern upgrade applied, expected return %.1f%%\n", signal.ExpectedReturn))
	}

	if signal.EnhancedPositionSize > 0 {
		sb.WriteString(fmt.Sprintf("📐 Position: %.2f → %.2f (Kelly x%.2f)\n",
			signal.OriginalPositionSize, signal.EnhancedPositionSize, signal.KellyMultiplier))
	}

	sb.WriteString(fmt.Sprintf("⏰ Time: %s", signal.Timestamp.UTC().Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

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
