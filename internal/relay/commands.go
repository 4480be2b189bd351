package relay

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Command is one inbound frame from a connection: a wire name plus
// positional JSON arguments.
type Command struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args"`
}

// handlerFunc decodes a command's positional arguments and runs it against a
// session.
type handlerFunc func(ctx context.Context, s *Session, args []json.RawMessage) error

// handlers is the closed dispatch table from wire name to handler. The
// command set is fixed; unknown names are ignored.
var handlers = map[string]handlerFunc{
	"nick": func(ctx context.Context, s *Session, args []json.RawMessage) error {
		name, _ := stringArg(args, 0)
		return s.SetName(ctx, name)
	},
	"statement": func(ctx context.Context, s *Session, args []json.RawMessage) error {
		roomID, _ := stringArg(args, 0)
		text, _ := stringArg(args, 1)
		return s.Statement(ctx, roomID, text)
	},
	"join": func(ctx context.Context, s *Session, args []json.RawMessage) error {
		roomID, _ := stringArg(args, 0)
		return s.Join(ctx, roomID)
	},
	"topic": func(ctx context.Context, s *Session, args []json.RawMessage) error {
		roomID, _ := stringArg(args, 0)
		text, _ := stringArg(args, 1)
		return s.Topic(ctx, roomID, text)
	},
	"leave": func(ctx context.Context, s *Session, args []json.RawMessage) error {
		roomID, ok := stringArg(args, 0)
		if !ok {
			return nil
		}
		announceOnly, _ := boolArg(args, 1)
		return s.Leave(ctx, roomID, announceOnly)
	},
	"ping": func(ctx context.Context, s *Session, args []json.RawMessage) error {
		return s.Ping(args)
	},
}

// Dispatch routes one decoded command to its handler.
func Dispatch(ctx context.Context, s *Session, cmd Command) error {
	h, ok := handlers[cmd.Name]
	if !ok {
		slog.Debug("ignoring unknown command", "name", cmd.Name)
		return nil
	}
	return h(ctx, s, cmd.Args)
}

// stringArg decodes the i-th positional argument as a string. Missing or
// non-string arguments report false.
func stringArg(args []json.RawMessage, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	var v string
	if err := json.Unmarshal(args[i], &v); err != nil {
		return "", false
	}
	return v, true
}

// boolArg decodes the i-th positional argument as a bool.
func boolArg(args []json.RawMessage, i int) (bool, bool) {
	if i >= len(args) {
		return false, false
	}
	var v bool
	if err := json.Unmarshal(args[i], &v); err != nil {
		return false, false
	}
	return v, true
}
