package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/nfrund/relay/internal/domain"
	"github.com/nfrund/relay/internal/pubsub"
)

// backlogLimit is how many historical events a client receives on join.
const backlogLimit = 50

// backlogKinds are the chat-relevant kinds served as backlog. Join and leave
// announcements are live-stream only.
var backlogKinds = []domain.EventKind{domain.KindStatement, domain.KindTopicSet}

// Conn is the outbound half of a client connection. Emit sends one named
// event with a structured payload down to the client.
type Conn interface {
	Emit(name string, data any) error
}

// Ack is the payload for private acknowledgement and error events.
type Ack struct {
	Reason string `json:"reason"`
}

// RoomAck is an acknowledgement that also carries the room it concerns.
type RoomAck struct {
	Reason string          `json:"reason"`
	Room   domain.WireRoom `json:"room"`
}

// JoinAck is the payload of the room_joined event: the backlog, a success
// message, and the joined room.
type JoinAck struct {
	Backlog []domain.WireEvent `json:"backlog"`
	Reason  string             `json:"reason"`
	Room    domain.WireRoom    `json:"room"`
}

// Session is the per-connection state machine. It owns the user's display
// name, the subscription key set, and the listener that forwards live bus
// traffic to the connection.
//
// Commands are processed one at a time per session; nothing here is safe for
// concurrent use from two command-handling goroutines. The registry, event
// store, and bus are shared collaborators and carry their own concurrency
// guarantees.
type Session struct {
	conn   Conn
	rooms  domain.RoomRegistry
	events domain.EventStore
	sub    pubsub.Subscriber

	// ctx bounds everything the session spawns; cancelled on disconnect.
	ctx    context.Context
	cancel context.CancelFunc

	name       string
	subscribed []string // topic keys; membership matters, order does not
	listener   *Listener
}

// NewSession binds a fresh session to a connection. The context should cover
// the connection's lifetime.
func NewSession(ctx context.Context, conn Conn, rooms domain.RoomRegistry, events domain.EventStore, sub pubsub.Subscriber) *Session {
	sctx, cancel := context.WithCancel(ctx)
	return &Session{
		conn:   conn,
		rooms:  rooms,
		events: events,
		sub:    sub,
		ctx:    sctx,
		cancel: cancel,
		name:   defaultName(),
	}
}

// defaultName generates a throwaway display name: "user_" plus eight
// lowercase hex characters. Not guaranteed unique, and that's fine.
func defaultName() string {
	return "user_" + uuid.NewString()[:8]
}

// Name returns the session's current display name.
func (s *Session) Name() string {
	return s.name
}

// SetName replaces the display name. An empty name is silently ignored.
func (s *Session) SetName(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	s.name = name
	return s.conn.Emit("nick_set", Ack{Reason: "Username set successfully."})
}

// Statement posts a message to a room. Empty room or text is a silent no-op;
// a missing room yields a private error and records nothing.
func (s *Session) Statement(ctx context.Context, roomID, text string) error {
	if roomID == "" || text == "" {
		return nil
	}

	room, err := s.rooms.Get(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return s.emitRoomMissing(roomID)
	}
	if err != nil {
		slog.Error("statement: room lookup failed", "room", roomID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not post message."})
	}

	if _, err := s.events.Append(ctx, domain.NewEvent(room.ID, domain.KindStatement, s.name, text)); err != nil {
		slog.Error("statement: append failed", "room", room.ID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not post message."})
	}

	return s.conn.Emit("statement_ok", Ack{Reason: "Message posted successfully."})
}

// Join subscribes the session to a room, creating the room on first
// reference. The sequence below is strictly ordered: stop the old listener,
// grow the key set, swap the bus subscription, start a new listener, fetch
// the backlog, then announce the join. The backlog is fetched after the
// subscription is live so nothing posted in between is lost; the join
// announcement itself is therefore always observed as a live event, never as
// backlog.
func (s *Session) Join(ctx context.Context, roomID string) error {
	if roomID == "" {
		return nil
	}

	room, created, err := s.rooms.GetOrCreate(ctx, roomID)
	if err != nil {
		slog.Error("join: get-or-create failed", "room", roomID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not join room."})
	}
	if created {
		slog.Info("room created on first join", "room", room.ID, "user", s.name)
	}

	// The old listener must have fully stopped reading before the
	// subscription set changes underneath it.
	s.stopListener()

	key := domain.TopicKey(room.ID)
	if !slices.Contains(s.subscribed, key) {
		s.subscribed = append(s.subscribed, key)
	}

	if err := s.resubscribe(); err != nil {
		slog.Error("join: resubscribe failed", "room", room.ID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not join room."})
	}

	backlog, err := s.events.Recent(ctx, room.ID, backlogKinds, backlogLimit)
	if err != nil {
		slog.Error("join: backlog fetch failed", "room", room.ID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not join room."})
	}

	// The store returns newest first; clients read oldest first.
	wire := make([]domain.WireEvent, len(backlog))
	for i, ev := range backlog {
		wire[len(backlog)-1-i] = ev.Wire()
	}

	if _, err := s.events.Append(ctx, domain.NewEvent(room.ID, domain.KindUserJoined, s.name, "")); err != nil {
		slog.Error("join: append failed", "room", room.ID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not join room."})
	}

	return s.conn.Emit("room_joined", JoinAck{
		Backlog: wire,
		Reason:  fmt.Sprintf("Joined room %s.", room.ID),
		Room:    room.Wire(),
	})
}

// Topic changes a room's topic. Unlike Join, Topic never creates a room.
func (s *Session) Topic(ctx context.Context, roomID, text string) error {
	if roomID == "" {
		return nil
	}

	room, err := s.rooms.SetTopic(ctx, roomID, text)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return s.emitRoomMissing(roomID)
	}
	if err != nil {
		slog.Error("topic: update failed", "room", roomID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not set topic."})
	}

	if _, err := s.events.Append(ctx, domain.NewEvent(room.ID, domain.KindTopicSet, s.name, text)); err != nil {
		slog.Error("topic: append failed", "room", room.ID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not set topic."})
	}

	return s.conn.Emit("topic_changed", RoomAck{
		Reason: fmt.Sprintf("Topic successfully set on room %s.", room.ID),
		Room:   room.Wire(),
	})
}

// Leave announces the user's departure from a room and, unless announceOnly,
// drops the room from the bus subscription. announceOnly is used during
// disconnect, when the connection no longer cares about actual delivery.
func (s *Session) Leave(ctx context.Context, roomID string, announceOnly bool) error {
	room, err := s.rooms.Get(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return s.emitRoomMissing(roomID)
	}
	if err != nil {
		slog.Error("leave: room lookup failed", "room", roomID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not leave room."})
	}

	if _, err := s.events.Append(ctx, domain.NewEvent(room.ID, domain.KindUserLeft, s.name, "")); err != nil {
		slog.Error("leave: append failed", "room", room.ID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not leave room."})
	}

	if announceOnly {
		return nil
	}

	s.stopListener()

	key := domain.TopicKey(room.ID)
	if i := slices.Index(s.subscribed, key); i >= 0 {
		s.subscribed = slices.Delete(s.subscribed, i, i+1)
	}

	if err := s.resubscribe(); err != nil {
		slog.Error("leave: resubscribe failed", "room", room.ID, "error", err)
		return s.conn.Emit("error", Ack{Reason: "Could not leave room."})
	}

	return s.conn.Emit("room_left", RoomAck{
		Reason: fmt.Sprintf("Left room %s.", room.ID),
		Room:   room.Wire(),
	})
}

// Ping echoes the raw arguments back under the ping event. No side effects.
func (s *Session) Ping(args []json.RawMessage) error {
	return s.conn.Emit("ping", args)
}

// Disconnect announces the user's departure from every subscribed room, then
// tears the session down. The leaves are announce-only: the connection is
// already going away, so nobody needs the bus unsubscribed or a room_left
// acknowledgement.
func (s *Session) Disconnect(ctx context.Context) {
	for _, key := range slices.Clone(s.subscribed) {
		roomID := domain.RoomID(key)
		if err := s.Leave(ctx, roomID, true); err != nil {
			slog.Error("disconnect: leave announcement failed", "room", roomID, "error", err)
		}
	}

	s.stopListener()
	if err := s.sub.Close(); err != nil {
		slog.Error("disconnect: subscriber close failed", "user", s.name, "error", err)
	}
	s.cancel()
	s.subscribed = nil
}

// resubscribe points the bus subscription at the session's current key set
// and starts a fresh listener over the merged stream. Callers stop the old
// listener before mutating the set; stopListener here is a no-op then.
func (s *Session) resubscribe() error {
	s.stopListener()
	ch, err := s.sub.Replace(s.ctx, slices.Clone(s.subscribed))
	if err != nil {
		return err
	}
	s.listener = startListener(s.ctx, ch, s.conn)
	return nil
}

// stopListener cancels the running listener, if any, and blocks until its
// loop has exited.
func (s *Session) stopListener() {
	if s.listener == nil {
		return
	}
	s.listener.Stop()
	s.listener = nil
}

func (s *Session) emitRoomMissing(roomID string) error {
	return s.conn.Emit("error", Ack{Reason: fmt.Sprintf("Room %s does not exist.", roomID)})
}
