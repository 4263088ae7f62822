// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package download implements the gallery download flow: a per-poster
// cooldown, a confirmed counter increment, and the asset fetch. The
// asset is only delivered after the new count is persisted; a counter
// failure skips the save entirely. This is the opposite policy from the
// customization flow, where the artifact is rendered locally and a late
// counter failure cannot claw it back.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"posterpress/internal/models"
)

// DefaultCooldown is how long a poster's download control stays locked
// after a download starts.
const DefaultCooldown = 5 * time.Second

// ErrFetchFailed reports that the asset bytes could not be retrieved
// after the counter was already updated.
var ErrFetchFailed = errors.New("download: asset fetch failed")

// CooldownError rejects a download attempted while the poster's
// cooldown is still running.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("download: cooldown active, retry in %s", e.Remaining.Round(time.Second))
}

// CountStore is the counter slice of the poster table.
type CountStore interface {
	DownloadCount(ctx context.Context, id int64) (int64, error)
	SetDownloadCount(ctx context.Context, id int64, count int64) (*models.Poster, error)
}

// CatalogPatcher applies an optimistic local update to the in-memory
// catalog so the gallery reflects the new count before the realtime
// echo arrives.
type CatalogPatcher interface {
	Patch(p models.Poster)
}

// Downloader runs gallery downloads.
type Downloader struct {
	store    CountStore
	catalog  CatalogPatcher
	client   *http.Client
	cooldown time.Duration

	mu     sync.Mutex
	active map[int64]time.Time

	// now is swapped in tests.
	now func() time.Time
}

// New creates a Downloader. client may be nil, in which case a client
// with a sane timeout is used.
func New(store CountStore, catalog CatalogPatcher, client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Downloader{
		store:    store,
		catalog:  catalog,
		client:   client,
		cooldown: DefaultCooldown,
		active:   make(map[int64]time.Time),
		now:      time.Now,
	}
}

// beginCooldown marks the poster locked. Returns the remaining lock
// time when one is already running.
func (d *Downloader) beginCooldown(id int64) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if until, ok := d.active[id]; ok && now.Before(until) {
		return until.Sub(now), false
	}
	d.active[id] = now.Add(d.cooldown)
	return 0, true
}

// clearCooldown unlocks the poster early. Called on failure paths so a
// failed download never wedges the control for the full window; after a
// success the entry is left to expire on its own.
func (d *Downloader) clearCooldown(id int64) {
	d.mu.Lock()
	delete(d.active, id)
	d.mu.Unlock()
}

// CooldownRemaining reports how much lock time is left for a poster,
// zero when idle.
func (d *Downloader) CooldownRemaining(id int64) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if until, ok := d.active[id]; ok {
		if r := until.Sub(d.now()); r > 0 {
			return r
		}
	}
	return 0
}

// Download runs the full gallery flow for one poster: lock, confirm the
// counter increment, patch the catalog, fetch the asset, and stream it
// to w. Nothing is written to w unless the new count was persisted and
// the fetch returned 200.
//
// A successful download keeps the poster locked until the cooldown
// window expires, so back-to-back requests for the same poster are
// refused. A failed download unlocks immediately to allow a retry.
func (d *Downloader) Download(ctx context.Context, posterID int64, url string, w io.Writer) error {
	remaining, ok := d.beginCooldown(posterID)
	if !ok {
		return &CooldownError{Remaining: remaining}
	}
	if err := d.deliver(ctx, posterID, url, w); err != nil {
		d.clearCooldown(posterID)
		return err
	}
	return nil
}

// deliver performs the counter update and asset fetch for Download.
func (d *Downloader) deliver(ctx context.Context, posterID int64, url string, w io.Writer) error {
	count, err := d.store.DownloadCount(ctx, posterID)
	if err != nil {
		return fmt.Errorf("fetch download count: %w", err)
	}
	updated, err := d.store.SetDownloadCount(ctx, posterID, count+1)
	if err != nil {
		return fmt.Errorf("update download count: %w", err)
	}
	if d.catalog != nil {
		d.catalog.Patch(*updated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("stream asset: %w", err)
	}
	return nil
}
