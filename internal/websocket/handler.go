package websocket

import (
	"log/slog"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/relay/internal/domain"
	"github.com/nfrund/relay/internal/pubsub"
	"github.com/nfrund/relay/internal/relay"
)

// Handler upgrades chat connections and binds each one to a fresh session.
type Handler struct {
	bus    pubsub.Bus
	rooms  domain.RoomRegistry
	events domain.EventStore
}

// NewHandler creates the websocket entry point for the relay core.
func NewHandler(bus pubsub.Bus, rooms domain.RoomRegistry, events domain.EventStore) *Handler {
	return &Handler{
		bus:    bus,
		rooms:  rooms,
		events: events,
	}
}

// Serve handles a websocket upgrade request. It blocks for the lifetime of
// the connection: the read loop runs on the handler goroutine, the write
// pump on its own.
func (h *Handler) Serve(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // In production, check origin.
	})
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return err
	}

	ctx := c.Request().Context()
	client := newClient(conn)
	client.session = relay.NewSession(ctx, client, h.rooms, h.events, h.bus.NewSubscriber())
	slog.Info("Chat client connected", "user", client.session.Name())

	go client.writePump()
	client.readPump(ctx)
	return nil
}
