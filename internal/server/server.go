package server

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/relay/internal/config"
	"github.com/nfrund/relay/internal/database"
	"github.com/nfrund/relay/internal/logging"
	"github.com/nfrund/relay/internal/pubsub"
	"github.com/nfrund/relay/internal/store"
	ws "github.com/nfrund/relay/internal/websocket"
	"github.com/surrealdb/surrealdb.go"
)

// Server holds the dependencies for the chat relay.
type Server struct {
	E   *echo.Echo
	DB  *surrealdb.DB
	Bus pubsub.Bus
	Cfg *config.Config

	chatHandler *ws.Handler
}

// New creates a new Server instance with all collaborators wired up.
func New() *Server {
	// Load environment variables from .env file if it exists.
	if err := godotenv.Load(); err != nil {
		// slog isn't configured yet, so the standard logger has to do here.
		log.Println("No .env file found, relying on environment variables")
	}

	logging.New()
	cfg := config.New()

	db, err := database.NewDB(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	bus := pubsub.NewWatermillBus()
	rooms := store.NewRooms(db)
	events := store.NewEvents(db, bus)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	return &Server{
		E:           e,
		DB:          db,
		Bus:         bus,
		Cfg:         cfg,
		chatHandler: ws.NewHandler(bus, rooms, events),
	}
}
