package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/db"
	"github.com/escrowdesk/backend/internal/events"
)

// notify-bridge subscribes to addressed notification events published by
// the API and forwards them to the bot's internal API. It lets the bot
// process stay a dumb chat adapter with no Redis dependency of its own.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)

	log.Info("notify-bridge started")

	// The deal stream feeds the websocket hub; only the notification
	// stream carries addressed messages for the bot.
	_ = subscriber.Subscribe(ctx, events.StreamBroadcast, func(event events.Event) {
		if event.Type != events.EventBotNotification {
			return
		}
		log.Info("forwarding notification to bot", zap.String("type", event.Type))
		forwardToBot(cfg.BotInternalURL, event, log)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}

func forwardToBot(baseURL string, event events.Event, log *zap.Logger) {
	telegramUserID, ok := event.Payload["telegram_user_id"]
	if !ok {
		return
	}

	text, _ := event.Payload["text"].(string)
	if text == "" {
		text = fmt.Sprintf("Event: %s", event.Type)
	}

	body, _ := json.Marshal(map[string]any{
		"telegram_user_id": telegramUserID,
		"text":             text,
	})

	url := fmt.Sprintf("%s/internal/notify", strings.TrimRight(baseURL, "/"))
	resp, err := http.Post(url, "application/json", strings.NewReader(string(body)))
	if err != nil {
		log.Warn("failed to forward notification", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("bot notification returned non-200", zap.Int("status", resp.StatusCode))
	}
}
