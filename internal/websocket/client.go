package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/nfrund/relay/internal/relay"
)

// writeTimeout bounds a single outbound websocket write.
const writeTimeout = 10 * time.Second

// outboundFrame is the envelope for every event sent to a client.
type outboundFrame struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// Client is one connected chat client: the websocket connection, its
// outbound queue, and the session it drives.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	session *relay.Session
}

// newClient wraps an accepted websocket connection.
func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Emit implements relay.Conn. It marshals the named event onto the client's
// send queue; a full queue drops the event rather than blocking the sender.
func (c *Client) Emit(name string, data any) error {
	payload, err := json.Marshal(outboundFrame{Name: name, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}

	select {
	case c.send <- payload:
	default:
		slog.Warn("Client send channel full, dropping event", "event", name)
	}
	return nil
}

// readPump reads command frames from the connection and dispatches them to
// the session one at a time. It returns when the connection dies, after the
// session has been torn down.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		// Disconnect stops the listener before the send channel closes, so
		// nothing emits into a closed channel.
		c.session.Disconnect(ctx)
		close(c.send)
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				slog.Info("WebSocket closed normally by client", "user", c.session.Name())
			} else if err != io.EOF && ctx.Err() == nil {
				slog.Error("WebSocket read error", "user", c.session.Name(), "error", err)
			}
			return
		}

		var cmd relay.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Debug("discarding malformed frame", "user", c.session.Name(), "error", err)
			continue
		}

		// Commands run sequentially; a session never handles two of its own
		// commands at once.
		if err := relay.Dispatch(ctx, c.session, cmd); err != nil {
			slog.Error("command failed", "command", cmd.Name, "user", c.session.Name(), "error", err)
		}
	}
}

// writePump pumps messages from the send channel to the websocket connection.
func (c *Client) writePump() {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			slog.Error("WebSocket write error", "user", c.session.Name(), "error", err)
			return
		}
	}
}
