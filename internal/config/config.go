package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string

	// SurrealDB connection settings.
	DBURL  string
	DBUser string
	DBPass string
	DBNs   string
	DBDb   string
}

// New loads configuration from environment variables. Missing database
// settings are fatal; the relay cannot run without its event store.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Addr:   os.Getenv("RELAY_ADDR"),
		DBURL:  os.Getenv("SURREAL_URL"),
		DBUser: os.Getenv("SURREAL_USER"),
		DBPass: os.Getenv("SURREAL_PASS"),
		DBNs:   os.Getenv("SURREAL_NS"),
		DBDb:   os.Getenv("SURREAL_DB"),
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	if cfg.DBURL == "" || cfg.DBNs == "" || cfg.DBDb == "" {
		log.Fatal("Required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set.")
	}

	return cfg
}
