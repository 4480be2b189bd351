package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nfrund/relay/internal/database"
	"github.com/nfrund/relay/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// Rooms is the SurrealDB-backed room registry.
type Rooms struct {
	db *surrealdb.DB
}

var _ domain.RoomRegistry = (*Rooms)(nil)

// NewRooms creates a registry over an open SurrealDB connection.
func NewRooms(db *surrealdb.DB) *Rooms {
	return &Rooms{db: db}
}

// roomRecord mirrors the room table. The record ID is derived from the slug,
// which gives per-slug write atomicity on upserts.
type roomRecord struct {
	Slug     string    `json:"slug"`
	Topic    string    `json:"topic"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func (r *roomRecord) toDomain() *domain.Room {
	return &domain.Room{
		ID:       r.Slug,
		Topic:    r.Topic,
		Created:  r.Created,
		Modified: r.Modified,
	}
}

// Get returns the room or domain.ErrRoomNotFound. It never creates.
func (s *Rooms) Get(ctx context.Context, id string) (*domain.Room, error) {
	query := `SELECT slug, topic, created, modified FROM type::thing("room", $slug)`
	rec, err := database.QueryOne[roomRecord](ctx, s.db, query, map[string]any{"slug": id})
	if err != nil {
		return nil, fmt.Errorf("fetch room %s: %w", id, err)
	}
	if rec == nil || rec.Slug == "" {
		return nil, domain.ErrRoomNotFound
	}
	return rec.toDomain(), nil
}

// GetOrCreate returns the room with the given ID, creating it with an empty
// topic on first reference.
func (s *Rooms) GetOrCreate(ctx context.Context, id string) (*domain.Room, bool, error) {
	room, err := s.Get(ctx, id)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, domain.ErrRoomNotFound) {
		return nil, false, err
	}

	// UPSERT keyed on the slug-derived record ID, so two sessions joining a
	// brand new room at once converge on the same record.
	query := `
		UPSERT type::thing("room", $slug) SET
			slug = $slug,
			topic = topic OR "",
			created = created OR time::now(),
			modified = modified OR time::now()
		RETURN AFTER
	`
	rec, err := database.QueryOne[roomRecord](ctx, s.db, query, map[string]any{"slug": id})
	if err != nil {
		return nil, false, fmt.Errorf("create room %s: %w", id, err)
	}
	if rec == nil {
		return nil, false, fmt.Errorf("room %s was not created", id)
	}
	return rec.toDomain(), true, nil
}

// SetTopic persists a new topic and bumps the modification timestamp.
func (s *Rooms) SetTopic(ctx context.Context, id, topic string) (*domain.Room, error) {
	query := `
		UPDATE type::thing("room", $slug) SET
			topic = $topic,
			modified = time::now()
		WHERE slug = $slug
		RETURN AFTER
	`
	rec, err := database.QueryOne[roomRecord](ctx, s.db, query, map[string]any{
		"slug":  id,
		"topic": topic,
	})
	if err != nil {
		return nil, fmt.Errorf("set topic on room %s: %w", id, err)
	}
	if rec == nil || rec.Slug == "" {
		return nil, domain.ErrRoomNotFound
	}
	return rec.toDomain(), nil
}
