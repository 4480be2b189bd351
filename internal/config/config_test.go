package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nfrund/relay/internal/config"
)

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("SURREAL_URL", "ws://localhost:8000/rpc")
	t.Setenv("SURREAL_USER", "root")
	t.Setenv("SURREAL_PASS", "root")
	t.Setenv("SURREAL_NS", "relay")
	t.Setenv("SURREAL_DB", "chat")
	t.Setenv("RELAY_ADDR", ":9999")

	cfg := config.New()

	assert.Equal(t, "ws://localhost:8000/rpc", cfg.DBURL)
	assert.Equal(t, "relay", cfg.DBNs)
	assert.Equal(t, "chat", cfg.DBDb)
	assert.Equal(t, ":9999", cfg.Addr)
}

func TestNewDefaultsAddr(t *testing.T) {
	t.Setenv("SURREAL_URL", "ws://localhost:8000/rpc")
	t.Setenv("SURREAL_NS", "relay")
	t.Setenv("SURREAL_DB", "chat")
	t.Setenv("RELAY_ADDR", "")

	cfg := config.New()
	assert.Equal(t, ":8080", cfg.Addr)
}
