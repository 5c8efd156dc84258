// Package relay fans claim events out to per-restaurant channels.
// Delivery is at-least-once and best-effort, with no ordering across channels.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// EventFoodClaimed is published when a shelter claims one of a restaurant's posts.
const EventFoodClaimed = "food-claimed"

var ErrClosed = errors.New("relay closed")

// Relay defines the interface that all notification backends must implement
type Relay interface {
	// Publish sends event with a JSON-encoded payload to every subscriber of channel
	Publish(ctx context.Context, channel, event string, payload any) error

	// Subscribe streams messages on channel until ctx ends or the subscription is closed
	Subscribe(ctx context.Context, channel string) (*Subscription, error)

	// Name returns the backend name (e.g., "memory", "redis")
	Name() string

	Close() error
}

// ChannelName returns the channel a restaurant listens on.
func ChannelName(providerID string) string {
	return "restaurant-" + providerID
}

type Message struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// envelope is the wire format for backends that carry a single opaque body.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Subscription delivers messages on C until Close is called or its context ends.
type Subscription struct {
	C <-chan Message

	ch      chan Message
	done    chan struct{}
	once    sync.Once
	cleanup func()
}

const subscriptionBuffer = 64

func newSubscription(cleanup func()) *Subscription {
	ch := make(chan Message, subscriptionBuffer)
	return &Subscription{
		C:       ch,
		ch:      ch,
		done:    make(chan struct{}),
		cleanup: cleanup,
	}
}

// deliver hands msg to the subscriber, giving up when the subscription closes or ctx ends.
func (s *Subscription) deliver(ctx context.Context, msg Message) bool {
	select {
	case s.ch <- msg:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Done is closed once the subscription has been closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.cleanup != nil {
			s.cleanup()
		}
	})
	return nil
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}
