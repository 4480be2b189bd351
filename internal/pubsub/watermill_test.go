package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/relay/internal/pubsub"
)

func publish(t *testing.T, bus *pubsub.WatermillBus, topic, payload string) {
	t.Helper()
	err := bus.Publish(context.Background(), pubsub.Message{
		Topic:   topic,
		User:    "tester",
		Payload: []byte(payload),
	})
	require.NoError(t, err)
}

func receive(t *testing.T, ch <-chan pubsub.Message) pubsub.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed before a message arrived")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return pubsub.Message{}
	}
}

func TestSubscriberReceivesPublishedMessages(t *testing.T) {
	bus := pubsub.NewWatermillBus()
	defer bus.Close()

	sub := bus.NewSubscriber()
	defer sub.Close()

	ch, err := sub.Replace(context.Background(), []string{"room_lobby"})
	require.NoError(t, err)

	publish(t, bus, "room_lobby", `{"room":"lobby"}`)

	msg := receive(t, ch)
	assert.Equal(t, "room_lobby", msg.Topic)
	assert.Equal(t, "tester", msg.User)
	assert.JSONEq(t, `{"room":"lobby"}`, string(msg.Payload))
}

func TestReplaceMergesMultipleTopics(t *testing.T) {
	bus := pubsub.NewWatermillBus()
	defer bus.Close()

	sub := bus.NewSubscriber()
	defer sub.Close()

	ch, err := sub.Replace(context.Background(), []string{"room_a", "room_b"})
	require.NoError(t, err)

	publish(t, bus, "room_a", `{"room":"a"}`)
	publish(t, bus, "room_b", `{"room":"b"}`)

	got := map[string]bool{}
	got[receive(t, ch).Topic] = true
	got[receive(t, ch).Topic] = true
	assert.True(t, got["room_a"])
	assert.True(t, got["room_b"])
}

func TestReplaceSwapsTheWholeSet(t *testing.T) {
	bus := pubsub.NewWatermillBus()
	defer bus.Close()

	sub := bus.NewSubscriber()
	defer sub.Close()

	old, err := sub.Replace(context.Background(), []string{"room_a"})
	require.NoError(t, err)

	fresh, err := sub.Replace(context.Background(), []string{"room_b"})
	require.NoError(t, err)

	// The old fan-in has fully stopped by the time Replace returns.
	select {
	case _, ok := <-old:
		assert.False(t, ok, "old channel should be closed, not delivering")
	default:
		t.Fatal("old channel still open after Replace returned")
	}

	// Messages on the dropped topic no longer arrive.
	publish(t, bus, "room_a", `{"room":"a"}`)
	publish(t, bus, "room_b", `{"room":"b"}`)

	msg := receive(t, fresh)
	assert.Equal(t, "room_b", msg.Topic)

	select {
	case msg := <-fresh:
		t.Fatalf("unexpected delivery on dropped topic: %s", msg.Topic)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReplaceWithEmptySetStaysOpen(t *testing.T) {
	bus := pubsub.NewWatermillBus()
	defer bus.Close()

	sub := bus.NewSubscriber()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := sub.Replace(ctx, nil)
	require.NoError(t, err)

	select {
	case _, ok := <-ch:
		t.Fatalf("unexpected channel activity (open=%v)", ok)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancellation")
	}
}

func TestSubscriberCloseIsSynchronous(t *testing.T) {
	bus := pubsub.NewWatermillBus()
	defer bus.Close()

	sub := bus.NewSubscriber()
	ch, err := sub.Replace(context.Background(), []string{"room_lobby"})
	require.NoError(t, err)

	require.NoError(t, sub.Close())

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed once Close returns")

	// Closing again is a no-op.
	require.NoError(t, sub.Close())
}
