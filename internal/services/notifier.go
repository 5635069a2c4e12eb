package services

import "context"

// Notifier is the synchronous delivery transport used by broadcast, where
// per-recipient success and failure must be counted. Single deal
// notifications do not go through it; they are published as addressed
// events and forwarded by the notify-bridge.
type Notifier interface {
	// SendMessage delivers free-form text to one actor.
	SendMessage(ctx context.Context, actorID int64, text string) error

	// Capacity is the number of in-flight deliveries the transport can
	// sustain. Broadcast fan-out never exceeds it.
	Capacity() int
}
