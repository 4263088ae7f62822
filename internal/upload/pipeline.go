// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package upload implements the admin poster submission pipeline:
// validation, object storage upload, and table insert, with advisory
// progress reporting.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"posterpress/internal/models"
	"posterpress/internal/slug"
	"posterpress/internal/storage"
)

// MaxFileSize is the upload limit for both the asset and the thumbnail.
const MaxFileSize = 50 << 20 // 50 MiB

// ValidationError marks a rejected submission. Handlers report it inline
// to the form as a 400; it never reaches the backend.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// File is one submitted file: its original name, declared size, and content.
type File struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Submission carries the admin upload form.
type Submission struct {
	Asset      *File
	Thumbnail  *File
	Title      string
	Category   models.Category
	IsEditable bool
	FontFamily string
}

// IsPSD reports whether the submitted asset is a layered Photoshop original.
func (s *Submission) IsPSD() bool {
	return s.Asset != nil && strings.EqualFold(filepath.Ext(s.Asset.Name), ".psd")
}

// ObjectStore is the storage half of the backend gateway needed by the pipeline.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, keys ...string) error
	FileURL(key string) string
}

// TableStore is the table half: a single insert.
type TableStore interface {
	Create(ctx context.Context, p *models.Poster) (*models.Poster, error)
}

// Pipeline wires the two backend halves together.
type Pipeline struct {
	objects ObjectStore
	table   TableStore
}

// New creates an upload pipeline.
func New(objects ObjectStore, table TableStore) *Pipeline {
	return &Pipeline{objects: objects, table: table}
}

// Validate checks the submission and returns the first failure found.
// Order matters: missing fields, then the PSD thumbnail requirement, then
// size limits. Nothing touches the backend before this passes.
func (p *Pipeline) Validate(s *Submission) error {
	if strings.TrimSpace(s.Title) == "" || s.Asset == nil {
		return &ValidationError{Reason: "title and poster file are required"}
	}
	if s.IsEditable && s.IsPSD() && s.Thumbnail == nil {
		return &ValidationError{Reason: "a rendered thumbnail is required for editable PSD posters"}
	}
	if s.Asset.Size > MaxFileSize {
		return &ValidationError{Reason: "poster file exceeds the 50 MiB limit"}
	}
	if s.Thumbnail != nil && s.Thumbnail.Size > MaxFileSize {
		return &ValidationError{Reason: "thumbnail exceeds the 50 MiB limit"}
	}
	return nil
}

// Submit validates and persists a submission. On success the created
// poster row is returned and progress has reached 100. On any failure
// the pipeline aborts, best-effort deletes already-uploaded objects, and
// returns the underlying error; progress never reaches 100.
//
// progress may be nil. Reported values are monotonic from 0 to 100, with
// 100 emitted only after the table insert is confirmed.
func (p *Pipeline) Submit(ctx context.Context, s *Submission, progress func(int)) (*models.Poster, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}
	report(0)

	if err := p.Validate(s); err != nil {
		return nil, err
	}
	report(10)

	now := time.Now()
	base := fmt.Sprintf("%d-%s", now.UnixMilli(), slug.ObjectKeyPart(s.Title))

	var assetKey string
	if s.IsPSD() {
		assetKey = storage.PSDPrefix + base + ".psd"
	} else {
		assetKey = storage.ThumbnailPrefix + base + assetExt(s.Asset.Name)
	}

	var uploaded []string
	cleanup := func() {
		if len(uploaded) == 0 {
			return
		}
		// The row never landed, so the objects are orphans. Removal is
		// best-effort: a leftover object is logged, not fatal.
		if err := p.objects.Delete(ctx, uploaded...); err != nil {
			slog.Warn("upload cleanup failed", "keys", uploaded, "error", err)
		}
	}

	if err := p.objects.Upload(ctx, assetKey, contentTypeFor(s.Asset.Name), s.Asset.Reader, s.Asset.Size); err != nil {
		return nil, fmt.Errorf("store asset: %w", err)
	}
	uploaded = append(uploaded, assetKey)
	report(55)

	var thumbKey string
	if s.Thumbnail != nil {
		thumbKey = storage.ThumbnailPrefix + base + assetExt(s.Thumbnail.Name)
		if err := p.objects.Upload(ctx, thumbKey, contentTypeFor(s.Thumbnail.Name), s.Thumbnail.Reader, s.Thumbnail.Size); err != nil {
			cleanup()
			return nil, fmt.Errorf("store thumbnail: %w", err)
		}
		uploaded = append(uploaded, thumbKey)
	}
	report(80)

	// PSD uploads display their thumbnail; the original stays reachable
	// through psd_url. Plain images are their own display asset.
	poster := &models.Poster{
		Title:      strings.TrimSpace(s.Title),
		Category:   s.Category,
		IsEditable: s.IsEditable,
		CreatedAt:  now,
	}
	if s.FontFamily != "" {
		poster.FontFamily = &s.FontFamily
	}
	if thumbKey != "" {
		poster.DownloadURL = p.objects.FileURL(thumbKey)
		if s.IsPSD() {
			psdURL := p.objects.FileURL(assetKey)
			poster.PSDURL = &psdURL
		}
	} else {
		poster.DownloadURL = p.objects.FileURL(assetKey)
	}

	created, err := p.table.Create(ctx, poster)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("insert poster: %w", err)
	}

	report(100)
	return created, nil
}

// assetExt returns the file's extension, defaulting to .png when absent.
func assetExt(name string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		return ext
	}
	return ".png"
}

// contentTypeFor maps a filename to an upload content type.
func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".psd":
		return "image/vnd.adobe.photoshop"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
