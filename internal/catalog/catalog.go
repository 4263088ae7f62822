// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog maintains an in-memory mirror of the posters table.
// The mirror is filled by one bulk fetch and kept current by applying
// realtime change events in arrival order. It is best-effort consistent:
// a caller's own mutation may race its feed echo, and readers must treat
// the snapshot as eventually consistent.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"posterpress/internal/feed"
	"posterpress/internal/models"
)

// Loader is the bulk-fetch half of the backend gateway, satisfied by
// store.PosterStore.
type Loader interface {
	List(ctx context.Context) ([]models.Poster, error)
}

// Catalog is a mutex-guarded mirror of the posters table, ordered
// newest-first to match the backend's default fetch order.
type Catalog struct {
	mu      sync.RWMutex
	posters []models.Poster
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Load replaces the mirror with a bulk fetch from the backend. A fetch
// failure leaves the previous contents intact so the gallery can keep
// serving stale data while the caller retries.
func (c *Catalog) Load(ctx context.Context, loader Loader) error {
	posters, err := loader.List(ctx)
	if err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}

	c.mu.Lock()
	c.posters = posters
	c.mu.Unlock()
	return nil
}

// Apply merges a single change event into the mirror.
//
// Insert prepends (newest-first); a duplicate ID is ignored so an event
// echo after an optimistic patch cannot double-insert. Update replaces
// the entry in place, preserving its position. Delete removes the entry.
func (c *Catalog) Apply(e feed.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Op {
	case feed.OpInsert:
		if c.indexOf(e.Poster.ID) >= 0 {
			return nil
		}
		c.posters = append([]models.Poster{*e.Poster}, c.posters...)
		return nil

	case feed.OpUpdate:
		if i := c.indexOf(e.Poster.ID); i >= 0 {
			c.posters[i] = *e.Poster
			return nil
		}
		// Update for a row we never saw: treat as late insert.
		c.posters = append([]models.Poster{*e.Poster}, c.posters...)
		return nil

	case feed.OpDelete:
		if i := c.indexOf(e.ID); i >= 0 {
			c.posters = append(c.posters[:i], c.posters[i+1:]...)
		}
		return nil

	default:
		return fmt.Errorf("catalog apply: unknown op %q", e.Op)
	}
}

// Run consumes change events from the subscriber until the context ends.
// The subscription is always released on exit. A failed event is logged
// and skipped; it never stops the loop.
func (c *Catalog) Run(ctx context.Context, sub feed.Subscriber) error {
	events, release, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("catalog subscribe: %w", err)
	}
	defer release()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := c.Apply(e); err != nil {
				slog.Warn("catalog: event rejected", "op", e.Op, "id", e.ID, "error", err)
			}
		}
	}
}

// Snapshot returns a copy of the current mirror. Callers may filter and
// sort it freely without affecting the catalog.
func (c *Catalog) Snapshot() []models.Poster {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Poster, len(c.posters))
	copy(out, c.posters)
	return out
}

// Get returns the mirrored poster with the given ID.
func (c *Catalog) Get(id int64) (models.Poster, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.posters[i], true
	}
	return models.Poster{}, false
}

// Patch applies an optimistic local update for a poster the caller just
// mutated, ahead of the feed echo. Unknown IDs are ignored.
func (c *Catalog) Patch(p models.Poster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(p.ID); i >= 0 {
		c.posters[i] = p
	}
}

// Len returns the number of mirrored posters.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.posters)
}

// indexOf finds a poster by ID. Caller must hold the lock.
func (c *Catalog) indexOf(id int64) int {
	for i := range c.posters {
		if c.posters[i].ID == id {
			return i
		}
	}
	return -1
}
