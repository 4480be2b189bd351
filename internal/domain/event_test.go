package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/relay/internal/domain"
)

func TestNewEventNormalizesAnnouncements(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.EventKind
		message string
		want    string
	}{
		{
			name:    "join message is composed server-side",
			kind:    domain.KindUserJoined,
			message: "client supplied text is ignored",
			want:    "alice has joined the room.",
		},
		{
			name:    "leave message is composed server-side",
			kind:    domain.KindUserLeft,
			message: "",
			want:    "alice has left the room.",
		},
		{
			name:    "statement text passes through",
			kind:    domain.KindStatement,
			message: "hello there",
			want:    "hello there",
		},
		{
			name:    "topic text is stored raw",
			kind:    domain.KindTopicSet,
			message: "gophers only",
			want:    "gophers only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := domain.NewEvent("lobby", tt.kind, "alice", tt.message)
			assert.Equal(t, tt.want, ev.Message)
			assert.Equal(t, "lobby", ev.Room)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.False(t, ev.Created.IsZero())
		})
	}
}

func TestWireEventTopicSet(t *testing.T) {
	ev := domain.NewEvent("lobby", domain.KindTopicSet, "alice", "all things Go")
	ev.Created = time.Date(2024, 3, 9, 17, 30, 5, 0, time.UTC)

	w := ev.Wire()

	assert.Equal(t, `alice set the topic to "all things Go".`, w.Message)
	assert.Equal(t, "all things Go", w.Topic)
	assert.Equal(t, "topic_set", w.Type)
	assert.Equal(t, "2024-03-09 17:30:05", w.Timestamp)

	// The raw form in storage must stay untouched.
	assert.Equal(t, "all things Go", ev.Message)
}

func TestWireEventStatement(t *testing.T) {
	ev := domain.NewEvent("lobby", domain.KindStatement, "bob", "hi")
	w := ev.Wire()

	require.Empty(t, w.Topic)
	assert.Equal(t, "hi", w.Message)
	assert.Equal(t, "lobby", w.Room)
	assert.Equal(t, "bob", w.User)
}

func TestTopicKeyRoundTrip(t *testing.T) {
	key := domain.TopicKey("lobby")
	assert.Equal(t, "room_lobby", key)
	assert.Equal(t, "lobby", domain.RoomID(key))
}

func TestRoomWire(t *testing.T) {
	room := &domain.Room{ID: "lobby", Topic: "welcome"}
	w := room.Wire()
	assert.Equal(t, "lobby", w.Slug)
	assert.Equal(t, "welcome", w.Topic)
}
