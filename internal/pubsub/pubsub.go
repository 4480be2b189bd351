package pubsub

import "context"

// Message is the structure passed between components on the bus.
// It is intentionally simple to act as a wrapper for raw data.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g. "room_lobby").
	Topic string
	// User is the display name of the user who caused the message, if any.
	User string
	// Payload contains the raw message data (JSON).
	Payload []byte
	// Metadata can contain arbitrary key-value pairs for context.
	Metadata map[string]string
}

// Publisher defines the contract for sending messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber owns one consumer's worth of topic subscriptions. The bus
// contract is replace-not-append: there is no incremental add or remove, only
// an atomic swap of the entire topic set.
type Subscriber interface {
	// Replace swaps the full subscription set and returns a fresh channel
	// merging every topic in the new set. Any previous receive fan-in has
	// fully stopped by the time Replace returns; its channel is closed and
	// no goroutine is still reading the old set. The returned channel closes
	// when ctx is cancelled or on the next Replace or Close.
	Replace(ctx context.Context, topics []string) (<-chan Message, error)

	// Close tears the subscriber down, synchronously.
	Close() error
}

// Bus is the publish/subscribe backbone the relay core runs on.
type Bus interface {
	Publisher

	// NewSubscriber returns an independent subscriber with an empty topic set.
	NewSubscriber() Subscriber
}
