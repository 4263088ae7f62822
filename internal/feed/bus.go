// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package feed

import (
	"context"
	"sync"
)

// busSub is one registered subscriber on a Bus.
type busSub struct {
	ch   chan Event
	done chan struct{}
}

// Bus is an in-process Publisher/Subscriber. It backs single-node runs
// where Valkey is not configured, and tests.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*busSub
}

// NewBus creates an empty in-process event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*busSub)}
}

// Publish delivers the event to every active subscriber. Delivery to a
// single subscriber blocks until it accepts or unsubscribes, preserving
// per-subscriber arrival order.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	targets := make([]*busSub, 0, len(b.subs))
	for _, s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- e:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscribe registers a new subscriber. The release function (or context
// cancellation) removes it; the event channel is drained by the caller
// until it stops reading.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	s := &busSub{ch: make(chan Event, 16), done: make(chan struct{})}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.done)
		})
	}

	// Honor context cancellation without requiring an explicit release.
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-s.done:
		}
	}()

	return s.ch, release, nil
}
