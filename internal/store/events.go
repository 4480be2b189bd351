package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/relay/internal/database"
	"github.com/nfrund/relay/internal/domain"
	"github.com/nfrund/relay/internal/pubsub"
	"github.com/surrealdb/surrealdb.go"
)

// Events is the SurrealDB-backed event store. Appending has two effects in
// strict order: the durable write, then a best-effort publish of the event's
// wire form on the room's topic key. A failed publish is logged and
// swallowed; a failed write aborts.
type Events struct {
	db  *surrealdb.DB
	pub pubsub.Publisher
}

var _ domain.EventStore = (*Events)(nil)

// NewEvents creates an event store that publishes through pub.
func NewEvents(db *surrealdb.DB, pub pubsub.Publisher) *Events {
	return &Events{db: db, pub: pub}
}

// eventRecord mirrors the event table.
type eventRecord struct {
	Room    string    `json:"room"`
	Kind    string    `json:"kind"`
	User    string    `json:"user"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

func (r *eventRecord) toDomain() *domain.Event {
	return &domain.Event{
		Room:    r.Room,
		Kind:    domain.EventKind(r.Kind),
		User:    r.User,
		Message: r.Message,
		Created: r.Created,
	}
}

// Append records the event, then publishes it to the room's topic.
func (s *Events) Append(ctx context.Context, ev *domain.Event) (*domain.Event, error) {
	query := `
		CREATE event CONTENT {
			room: $room,
			kind: $kind,
			user: $user,
			message: $message,
			created: type::datetime($created)
		} RETURN AFTER
	`
	params := map[string]any{
		"room":    ev.Room,
		"kind":    string(ev.Kind),
		"user":    ev.User,
		"message": ev.Message,
		"created": ev.Created.UTC().Format(time.RFC3339Nano),
	}

	rec, err := database.QueryOne[eventRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("event was not created")
	}

	created := rec.toDomain()
	s.publish(ctx, created)
	return created, nil
}

// publish sends the event's wire form on the room's topic key. The event is
// already durable at this point, so delivery failures only get logged.
func (s *Events) publish(ctx context.Context, ev *domain.Event) {
	payload, err := json.Marshal(ev.Wire())
	if err != nil {
		slog.Error("encode event for publish failed", "room", ev.Room, "kind", ev.Kind, "error", err)
		return
	}

	msg := pubsub.Message{
		Topic:   domain.TopicKey(ev.Room),
		User:    ev.User,
		Payload: payload,
	}
	if err := s.pub.Publish(ctx, msg); err != nil {
		slog.Error("publish event failed", "room", ev.Room, "kind", ev.Kind, "error", err)
	}
}

// Recent returns up to limit events of the given kinds for a room, newest
// first.
func (s *Events) Recent(ctx context.Context, roomID string, kinds []domain.EventKind, limit int) ([]*domain.Event, error) {
	kindStrings := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrings[i] = string(k)
	}

	query := `
		SELECT room, kind, user, message, created FROM event
		WHERE room = $room AND kind IN $kinds
		ORDER BY created DESC
		LIMIT $limit
	`
	params := map[string]any{
		"room":  roomID,
		"kinds": kindStrings,
		"limit": limit,
	}

	recs, err := database.Query[eventRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("fetch recent events for room %s: %w", roomID, err)
	}

	events := make([]*domain.Event, len(recs))
	for i := range recs {
		events[i] = recs[i].toDomain()
	}
	return events, nil
}
