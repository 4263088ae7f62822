// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// channel is the Valkey pub/sub channel carrying poster change events.
const channel = "posters.changes"

// Publisher emits change events. The store publishes after every
// successful table mutation.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber delivers change events to a consumer. Subscribe returns a
// receive channel and a release function; the release function (or the
// context ending) tears down the subscription and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// Valkey is a Publisher/Subscriber backed by Valkey pub/sub. Multiple
// server instances sharing one Valkey see each other's changes.
type Valkey struct {
	client *redis.Client
}

// NewValkey creates a Valkey-backed feed on the given client.
func NewValkey(client *redis.Client) *Valkey {
	return &Valkey{client: client}
}

// Publish sends the event to all current subscribers. Publishing to a
// channel with no subscribers succeeds and is silently dropped.
func (v *Valkey) Publish(ctx context.Context, e Event) error {
	payload, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("feed publish: %w", err)
	}
	if err := v.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("feed publish: %w", err)
	}
	return nil
}

// Subscribe opens a pub/sub subscription and pumps decoded events into
// the returned channel. A malformed payload is logged and skipped; it
// never tears down the subscription. The pump goroutine exits when the
// context ends or the release function runs, closing the event channel.
func (v *Valkey) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	sub := v.client.Subscribe(ctx, channel)

	// Force the subscription to be established before returning so
	// callers never miss events published right after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("feed subscribe: %w", err)
	}

	events := make(chan Event)
	done := make(chan struct{})

	go func() {
		defer close(events)
		src := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				e, err := Unmarshal([]byte(msg.Payload))
				if err != nil {
					slog.Warn("feed: dropping bad event", "error", err)
					continue
				}
				select {
				case events <- e:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	// Release must be safe to call more than once, concurrently included:
	// consumers commonly defer it and also call it on their own shutdown
	// path.
	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			close(done)
			if err := sub.Close(); err != nil {
				slog.Warn("feed: subscription close failed", "error", err)
			}
		})
	}

	return events, release, nil
}
