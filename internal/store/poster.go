// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store contains the database access layer for posters.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"posterpress/internal/feed"
	"posterpress/internal/models"
)

// DefaultTimeout bounds a single database call when no explicit timeout
// is configured.
const DefaultTimeout = 10 * time.Second

// PosterStore handles all poster-related database operations. Successful
// mutations are announced on the change feed so catalog mirrors stay
// consistent without polling.
type PosterStore struct {
	db        *sql.DB
	publisher feed.Publisher
	timeout   time.Duration
}

// NewPosterStore creates a PosterStore. publisher may be nil, in which
// case mutations are not announced. timeout <= 0 falls back to DefaultTimeout.
func NewPosterStore(db *sql.DB, publisher feed.Publisher, timeout time.Duration) *PosterStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PosterStore{db: db, publisher: publisher, timeout: timeout}
}

// posterColumns lists the columns selected in poster queries.
const posterColumns = `id, title, category, download_url, psd_url,
	font_family, is_editable, created_at, download_count`

// scanPoster scans a poster row from the result set.
func scanPoster(scanner interface{ Scan(...any) error }) (*models.Poster, error) {
	var p models.Poster
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Category, &p.DownloadURL, &p.PSDURL,
		&p.FontFamily, &p.IsEditable, &p.CreatedAt, &p.DownloadCount,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// callCtx derives a per-call context honoring the configured timeout.
func (s *PosterStore) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// mapErr translates a deadline hit into the shared timeout kind and wraps
// everything else with the operation name.
func mapErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, models.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// List returns all posters ordered by creation date descending, matching
// the gallery's newest-first default.
func (s *PosterStore) List(ctx context.Context) ([]models.Poster, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+posterColumns+`
		FROM posters
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, mapErr("list posters", err)
	}
	defer rows.Close()

	var items []models.Poster
	for rows.Next() {
		p, err := scanPoster(rows)
		if err != nil {
			return nil, mapErr("scan poster", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list posters", err)
	}
	return items, nil
}

// FindByID retrieves a single poster. Returns models.ErrNotFound when the
// row does not exist.
func (s *PosterStore) FindByID(ctx context.Context, id int64) (*models.Poster, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+posterColumns+` FROM posters WHERE id = $1`, id)
	p, err := scanPoster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, mapErr("find poster", err)
	}
	return p, nil
}

// Create inserts a new poster and returns it with the server-assigned ID
// and creation timestamp. An insert event is published on success.
func (s *PosterStore) Create(ctx context.Context, p *models.Poster) (*models.Poster, error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(callCtx, `
		INSERT INTO posters (title, category, download_url, psd_url, font_family, is_editable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+posterColumns,
		p.Title, p.Category, p.DownloadURL, p.PSDURL, p.FontFamily, p.IsEditable, p.CreatedAt,
	)
	created, err := scanPoster(row)
	if err != nil {
		return nil, mapErr("create poster", err)
	}

	s.announce(ctx, feed.Insert(created))
	return created, nil
}

// Update changes a poster's title and category. Returns models.ErrNotFound
// for a missing row. An update event carrying the new state is published.
func (s *PosterStore) Update(ctx context.Context, id int64, title string, category models.Category) (*models.Poster, error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(callCtx, `
		UPDATE posters SET title = $1, category = $2
		WHERE id = $3
		RETURNING `+posterColumns,
		title, category, id,
	)
	updated, err := scanPoster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, mapErr("update poster", err)
	}

	s.announce(ctx, feed.Update(updated))
	return updated, nil
}

// Delete removes a poster and returns the deleted row so the caller can
// clean up the corresponding storage objects. A delete event is published.
func (s *PosterStore) Delete(ctx context.Context, id int64) (*models.Poster, error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(callCtx, `
		DELETE FROM posters WHERE id = $1
		RETURNING `+posterColumns, id)
	deleted, err := scanPoster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, mapErr("delete poster", err)
	}

	s.announce(ctx, feed.Delete(id))
	return deleted, nil
}

// DownloadCount reads the current download counter for a poster.
func (s *PosterStore) DownloadCount(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT download_count FROM posters WHERE id = $1`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, mapErr("download count", err)
	}
	return count, nil
}

// SetDownloadCount writes an absolute download counter value. The counter
// is monotonically non-decreasing, enforced here rather than by callers.
func (s *PosterStore) SetDownloadCount(ctx context.Context, id int64, count int64) (*models.Poster, error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(callCtx, `
		UPDATE posters SET download_count = GREATEST(download_count, $1)
		WHERE id = $2
		RETURNING `+posterColumns,
		count, id,
	)
	updated, err := scanPoster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, mapErr("set download count", err)
	}

	s.announce(ctx, feed.Update(updated))
	return updated, nil
}

// IncrementDownloadCount atomically bumps a poster's download counter by
// one and returns the updated row.
func (s *PosterStore) IncrementDownloadCount(ctx context.Context, id int64) (*models.Poster, error) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(callCtx, `
		UPDATE posters SET download_count = download_count + 1
		WHERE id = $1
		RETURNING `+posterColumns, id)
	updated, err := scanPoster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, mapErr("increment download count", err)
	}

	s.announce(ctx, feed.Update(updated))
	return updated, nil
}

// announce publishes a change event. Publication failures are logged and
// swallowed: the table write already committed, and catalog mirrors are
// best-effort by contract.
func (s *PosterStore) announce(ctx context.Context, e feed.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.Warn("change feed publish failed", "op", e.Op, "id", e.ID, "error", err)
	}
}
