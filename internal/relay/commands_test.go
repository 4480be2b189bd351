package relay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawArgs(args ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(args))
	for i, a := range args {
		out[i] = json.RawMessage(a)
	}
	return out
}

func TestDispatchRoutesCommands(t *testing.T) {
	f := newFixture(t)
	s, conn := f.newSession(t)

	err := Dispatch(context.Background(), s, Command{Name: "join", Args: rawArgs(`"lobby"`)})
	require.NoError(t, err)
	require.Equal(t, 1, conn.count("room_joined"))

	err = Dispatch(context.Background(), s, Command{Name: "statement", Args: rawArgs(`"lobby"`, `"hi"`)})
	require.NoError(t, err)
	require.Equal(t, 1, conn.count("statement_ok"))

	err = Dispatch(context.Background(), s, Command{Name: "nick", Args: rawArgs(`"alice"`)})
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Name())
}

func TestDispatchLeaveAnnounceOnly(t *testing.T) {
	f := newFixture(t)
	s, conn := f.newSession(t)

	require.NoError(t, Dispatch(context.Background(), s, Command{Name: "join", Args: rawArgs(`"lobby"`)}))
	require.NoError(t, Dispatch(context.Background(), s, Command{Name: "leave", Args: rawArgs(`"lobby"`, `true`)}))

	// Announce-only: the subscription stays, no acknowledgement goes out.
	assert.Equal(t, []string{"room_lobby"}, s.subscribed)
	assert.Zero(t, conn.count("room_left"))
}

func TestDispatchIgnoresUnknownCommands(t *testing.T) {
	f := newFixture(t)
	s, conn := f.newSession(t)

	require.NoError(t, Dispatch(context.Background(), s, Command{Name: "self_destruct"}))
	assert.Empty(t, conn.all())
}

func TestDispatchToleratesBadArguments(t *testing.T) {
	f := newFixture(t)
	s, conn := f.newSession(t)

	// Non-string room decodes to "", which every handler treats as a no-op.
	require.NoError(t, Dispatch(context.Background(), s, Command{Name: "join", Args: rawArgs(`42`)}))
	require.NoError(t, Dispatch(context.Background(), s, Command{Name: "statement"}))
	require.NoError(t, Dispatch(context.Background(), s, Command{Name: "leave"}))
	assert.Empty(t, conn.all())
}

func TestArgDecoding(t *testing.T) {
	args := rawArgs(`"lobby"`, `true`, `42`)

	got, ok := stringArg(args, 0)
	assert.True(t, ok)
	assert.Equal(t, "lobby", got)

	_, ok = stringArg(args, 2)
	assert.False(t, ok)

	_, ok = stringArg(args, 9)
	assert.False(t, ok)

	b, ok := boolArg(args, 1)
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = boolArg(args, 0)
	assert.False(t, ok)
}
