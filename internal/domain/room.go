package domain

import (
	"strings"
	"time"
)

// topicKeyPrefix turns a room ID into a bus topic key. RoomID must stay the
// exact inverse of TopicKey.
const topicKeyPrefix = "room_"

// Room represents a chat room. Rooms have a short URL-safe slug that serves as
// both their primary key and the base of their bus topic key, plus a free-form
// topic line.
type Room struct {
	ID       string    `json:"id"`
	Topic    string    `json:"topic"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// WireRoom is the serialized form of a Room sent down to clients.
type WireRoom struct {
	Slug  string `json:"slug"`
	Topic string `json:"topic"`
}

// Wire returns the client-facing representation of the room.
func (r *Room) Wire() WireRoom {
	return WireRoom{Slug: r.ID, Topic: r.Topic}
}

// TopicKey derives the bus topic key for a room ID.
func TopicKey(roomID string) string {
	return topicKeyPrefix + roomID
}

// RoomID recovers the room ID from a bus topic key.
func RoomID(topicKey string) string {
	return strings.TrimPrefix(topicKey, topicKeyPrefix)
}
