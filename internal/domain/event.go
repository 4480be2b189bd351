package domain

import (
	"fmt"
	"time"
)

// EventKind enumerates the closed set of things that can happen in a room.
type EventKind string

const (
	KindStatement  EventKind = "statement"
	KindUserJoined EventKind = "user_joined"
	KindUserLeft   EventKind = "user_left"
	KindTopicSet   EventKind = "topic_set"
)

// TimestampLayout is the wire format for event timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Event is a single occurrence within a room. Events are append-only: once
// recorded they are never mutated.
type Event struct {
	ID      string    `json:"id,omitempty"`
	Room    string    `json:"room"`
	Kind    EventKind `json:"kind"`
	User    string    `json:"user"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// NewEvent builds a normalized event for a room. Join and leave announcements
// are always composed server-side from the display name; any client-supplied
// message for those kinds is discarded.
func NewEvent(roomID string, kind EventKind, user, message string) *Event {
	switch kind {
	case KindUserJoined:
		message = fmt.Sprintf("%s has joined the room.", user)
	case KindUserLeft:
		message = fmt.Sprintf("%s has left the room.", user)
	}
	return &Event{
		Room:    roomID,
		Kind:    kind,
		User:    user,
		Message: message,
		Created: time.Now().UTC(),
	}
}

// WireEvent is the serialized form of an Event sent down to clients.
type WireEvent struct {
	Room      string `json:"room"`
	Type      string `json:"type"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Topic     string `json:"topic,omitempty"`
}

// Wire returns the client-facing representation of the event. Storage always
// holds the raw message; the presentational rewrite for topic changes happens
// only here. A topic_set event goes out with a composed sentence in Message
// and the raw topic text in the separate Topic field.
func (e *Event) Wire() WireEvent {
	w := WireEvent{
		Room:      e.Room,
		Type:      string(e.Kind),
		User:      e.User,
		Message:   e.Message,
		Timestamp: e.Created.UTC().Format(TimestampLayout),
	}
	if e.Kind == KindTopicSet {
		w.Topic = e.Message
		w.Message = fmt.Sprintf("%s set the topic to \"%s\".", e.User, e.Message)
	}
	return w
}
