package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	// Metadata keys used to transfer our Message structure fields through
	// watermill's message.
	metaKeyUser  = "user"
	metaKeyTopic = "topic"
)

// WatermillBus implements Bus using watermill's in-process GoChannel.
// A broker-backed watermill Publisher/Subscriber pair can be swapped in
// without touching the relay core.
type WatermillBus struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger watermill.LoggerAdapter
}

// NewWatermillBus initializes an in-memory bus.
func NewWatermillBus() *WatermillBus {
	logger := watermill.NewStdLogger(false, false)
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{},
		logger,
	)

	return &WatermillBus{
		pub:    goChannel,
		sub:    goChannel,
		logger: logger,
	}
}

// Publish implements the Publisher interface.
func (b *WatermillBus) Publish(ctx context.Context, msg Message) error {
	return b.pub.Publish(msg.Topic, mapToWatermillMessage(msg))
}

// Close shuts the bus down; all subscriber channels close with it.
func (b *WatermillBus) Close() error {
	return b.sub.Close()
}

// NewSubscriber returns a subscriber with an empty topic set.
func (b *WatermillBus) NewSubscriber() Subscriber {
	return &setSubscriber{sub: b.sub}
}

// mapToWatermillMessage converts our pubsub.Message to a watermill message.
func mapToWatermillMessage(msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.Metadata.Set(metaKeyUser, msg.User)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	return wmMsg
}

// mapToPubSubMessage converts a watermill message back to our pubsub.Message.
func mapToPubSubMessage(wmMsg *message.Message) Message {
	metadata := make(map[string]string)
	for k, v := range wmMsg.Metadata {
		if k != metaKeyUser && k != metaKeyTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		User:     wmMsg.Metadata.Get(metaKeyUser),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// setSubscriber tracks one consumer's full topic set. Each Replace subscribes
// to every topic in the new set under a child context and fans the per-topic
// channels into one merged output channel.
type setSubscriber struct {
	sub    message.Subscriber
	cancel context.CancelFunc
	done   chan struct{}
}

// Replace implements the Subscriber interface.
func (s *setSubscriber) Replace(ctx context.Context, topics []string) (<-chan Message, error) {
	// The previous fan-in must have fully stopped before resubscribing;
	// GoChannel does not tolerate a subscription change racing a live read
	// loop.
	s.stop()

	subCtx, cancel := context.WithCancel(ctx)
	chans := make([]<-chan *message.Message, 0, len(topics))
	for _, topic := range topics {
		ch, err := s.sub.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		chans = append(chans, ch)
	}

	out := make(chan Message, 64)
	done := make(chan struct{})

	var wg sync.WaitGroup

	// Hold the merged channel open until cancellation, even when the topic
	// set is empty. A closed channel always means the subscription itself
	// ended, never that the set had no members.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-subCtx.Done()
	}()

	for _, ch := range chans {
		wg.Add(1)
		go func(ch <-chan *message.Message) {
			defer wg.Done()
			for wmMsg := range ch {
				select {
				case out <- mapToPubSubMessage(wmMsg):
					wmMsg.Ack()
				case <-subCtx.Done():
					wmMsg.Nack()
					return
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(out)
		close(done)
	}()

	s.cancel = cancel
	s.done = done
	return out, nil
}

// Close implements the Subscriber interface.
func (s *setSubscriber) Close() error {
	s.stop()
	return nil
}

// stop cancels the current fan-in and blocks until every pump goroutine has
// exited and the output channel is closed.
func (s *setSubscriber) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}
