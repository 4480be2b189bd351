package domain

import "context"

// RoomRegistry resolves room IDs to room records. Registries are shared by
// every session and must be safe for concurrent use.
type RoomRegistry interface {
	// GetOrCreate returns the room with the given ID, creating it with an
	// empty topic on first reference. The second return reports whether the
	// room was created by this call.
	GetOrCreate(ctx context.Context, id string) (*Room, bool, error)

	// Get returns the room or ErrRoomNotFound. It never creates.
	Get(ctx context.Context, id string) (*Room, error)

	// SetTopic persists a new topic and bumps the modification timestamp.
	// Returns ErrRoomNotFound if the room does not exist.
	SetTopic(ctx context.Context, id, topic string) (*Room, error)
}

// EventStore is the append-only log of room events. Appending an event also
// publishes its wire form on the room's bus topic, in that order; delivery is
// best-effort but the durable write must succeed.
type EventStore interface {
	// Append records the event and publishes it. The returned event carries
	// store-assigned fields such as the ID.
	Append(ctx context.Context, ev *Event) (*Event, error)

	// Recent returns up to limit events of the given kinds for a room,
	// newest first.
	Recent(ctx context.Context, roomID string, kinds []EventKind, limit int) ([]*Event, error)
}
