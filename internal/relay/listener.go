package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nfrund/relay/internal/pubsub"
)

// eventNameSuffix is appended to the room ID embedded in a bus payload to
// form the outbound event name, e.g. "lobby" -> "lobby_event".
const eventNameSuffix = "_event"

// Listener is the background task that consumes bus messages for a session
// and forwards them to the connection. Exactly one listener runs per session
// at a time, bound to the merged channel handed to it at start; it runs until
// that channel closes or Stop is called.
type Listener struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startListener spawns the forwarding loop over ch.
func startListener(ctx context.Context, ch <-chan pubsub.Message, conn Conn) *Listener {
	lctx, cancel := context.WithCancel(ctx)
	l := &Listener{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.run(lctx, ch, conn)
	return l
}

func (l *Listener) run(ctx context.Context, ch <-chan pubsub.Message, conn Conn) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			forward(msg, conn)
		}
	}
}

// Stop cancels the listener and blocks until its loop has exited. After Stop
// returns it is safe to swap the bus subscription out from under it.
func (l *Listener) Stop() {
	l.cancel()
	<-l.done
}

// forward relays one bus message to the connection. Payloads that are not
// JSON objects naming a room are dropped silently; other producers on the
// bus must not be able to take a session down.
func forward(msg pubsub.Message, conn Conn) {
	var payload map[string]any
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return
	}
	roomID, ok := payload["room"].(string)
	if !ok || roomID == "" {
		return
	}

	if err := conn.Emit(roomID+eventNameSuffix, payload); err != nil {
		slog.Warn("listener: emit failed", "room", roomID, "error", err)
	}
}
