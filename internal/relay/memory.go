package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryRelay delivers events to subscribers inside this process only.
type MemoryRelay struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func NewMemoryRelay() *MemoryRelay {
	return &MemoryRelay{subs: make(map[string]map[*Subscription]struct{})}
}

func (r *MemoryRelay) Name() string { return "memory" }

func (r *MemoryRelay) Publish(ctx context.Context, channel, event string, payload any) error {
	raw, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrClosed
	}

	msg := Message{Channel: channel, Event: event, Payload: raw}
	for sub := range r.subs[channel] {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		default:
			slog.WarnContext(ctx, "relay subscriber buffer full, dropping event", "channel", channel, "event", event)
		}
	}

	return nil
}

func (r *MemoryRelay) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	var sub *Subscription
	sub = newSubscription(func() {
		r.mu.Lock()
		delete(r.subs[channel], sub)
		if len(r.subs[channel]) == 0 {
			delete(r.subs, channel)
		}
		r.mu.Unlock()
	})

	if r.subs[channel] == nil {
		r.subs[channel] = make(map[*Subscription]struct{})
	}
	r.subs[channel][sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Subscribers returns the number of live subscriptions on channel.
func (r *MemoryRelay) Subscribers(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[channel])
}

func (r *MemoryRelay) Close() error {
	r.mu.Lock()
	r.closed = true
	var subs []*Subscription
	for _, set := range r.subs {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}
