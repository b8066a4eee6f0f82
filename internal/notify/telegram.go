package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTelegramAPIBaseURL = "https://api.telegram.org"

var ErrNotConfigured = errors.New("notifier is not configured")

// Notifier pushes a pre-formatted text message to an external channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

type Noop struct{}

func (Noop) Send(context.Context, string) error {
	return ErrNotConfigured
}

type TelegramConfig struct {
	BotToken   string
	ChatID     string
	APIBaseURL string
	Timeout    time.Duration
}

type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if base == "" {
		base = DefaultTelegramAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Telegram{
		token:   strings.TrimSpace(cfg.BotToken),
		chatID:  strings.TrimSpace(cfg.ChatID),
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

// New returns a Telegram notifier when a bot token and chat are configured
// and a Noop otherwise.
func New(cfg TelegramConfig) Notifier {
	if strings.TrimSpace(cfg.BotToken) == "" || strings.TrimSpace(cfg.ChatID) == "" {
		return Noop{}
	}
	return NewTelegram(cfg)
}

type telegramAPIBasicResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("telegram: empty message")
	}
	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	return t.callJSON(ctx, "sendMessage", payload, nil)
}

func (t *Telegram) callJSON(ctx context.Context, method string, payload interface{}, out interface{}) error {
	if t.token == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var parsed telegramAPIBasicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("telegram %s: status %d: %w", method, resp.StatusCode, err)
	}
	if !parsed.OK {
		desc := strings.TrimSpace(parsed.Description)
		if desc == "" {
			desc = "telegram request failed"
		}
		return errors.New(desc)
	}
	if out != nil && len(parsed.Result) > 0 {
		if err := json.Unmarshal(parsed.Result, out); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telegram) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, strings.TrimSpace(method))
}
