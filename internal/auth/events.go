// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import (
	"log/slog"
	"sync"
	"time"
)

// Event records the completion of one authentication attempt. It is
// published strictly after the client-facing result has been enqueued.
type Event struct {
	SessionID     SessionID
	AccountName   string
	Result        Result
	Authenticated bool
	At            time.Time
}

// subscriberBuffer bounds each subscriber channel.
const subscriberBuffer = 64

// Broadcaster fans authentication events out to subscribers (kick poller,
// online-state bookkeeping, metrics). Delivery is best effort: a subscriber
// with a full buffer misses the event.
type Broadcaster struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a new subscriber channel.
func (b *Broadcaster) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("auth event dropped: subscriber buffer full",
				"account", event.AccountName,
				"result", event.Result.String(),
			)
		}
	}
}
