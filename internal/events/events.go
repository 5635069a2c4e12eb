package events

import "context"

// Streams
const (
	StreamDeal      = "events:deal"
	StreamBroadcast = "events:broadcast"
)

// Event types
const (
	EventDealStatusChanged = "deal_status_changed"
	EventActorBlocked      = "actor_blocked"
	EventBotNotification   = "bot_notification"
	EventBroadcastFinished = "broadcast_finished"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
