package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BotClient communicates with the bot's internal HTTP API, which owns the
// actual Telegram connection. It implements Notifier.
type BotClient struct {
	baseURL    string
	capacity   int
	httpClient *http.Client
	log        *zap.Logger
}

func NewBotClient(baseURL string, capacity int, log *zap.Logger) *BotClient {
	if capacity <= 0 {
		capacity = 10
	}
	return &BotClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		capacity: capacity,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *BotClient) Capacity() int {
	return c.capacity
}

type notifyRequest struct {
	TelegramUserID int64  `json:"telegram_user_id"`
	Text           string `json:"text"`
}

func (c *BotClient) SendMessage(ctx context.Context, actorID int64, text string) error {
	body, err := json.Marshal(notifyRequest{
		TelegramUserID: actorID,
		Text:           text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/internal/notify", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("bot service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bot service returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
