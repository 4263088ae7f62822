// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the poster gallery
// API. Handlers are grouped by concern (gallery, admin, customization,
// events) and receive their dependencies through the API struct.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"posterpress/internal/cache"
	"posterpress/internal/catalog"
	"posterpress/internal/download"
	"posterpress/internal/feed"
	"posterpress/internal/models"
	"posterpress/internal/upload"
)

// PosterStore is the slice of the poster table the handlers need.
type PosterStore interface {
	FindByID(ctx context.Context, id int64) (*models.Poster, error)
	Update(ctx context.Context, id int64, title string, category models.Category) (*models.Poster, error)
	Delete(ctx context.Context, id int64) (*models.Poster, error)
	IncrementDownloadCount(ctx context.Context, id int64) (*models.Poster, error)
}

// ObjectRemover removes stored poster assets by key or public URL.
type ObjectRemover interface {
	Delete(ctx context.Context, keys ...string) error
	ExtractKey(rawURL string) (string, bool)
}

// API groups the HTTP handlers and their dependencies. objects, lists,
// and events may be nil: storage-less deployments lose object cleanup,
// cache-less ones recompute every gallery view, and event-less ones
// serve no SSE stream.
type API struct {
	catalog    *catalog.Catalog
	store      PosterStore
	uploader   *upload.Pipeline
	objects    ObjectRemover
	downloader *download.Downloader
	lists      *cache.GalleryCache
	events     feed.Subscriber
	fetch      *http.Client
}

// New creates the handler group.
func New(cat *catalog.Catalog, store PosterStore, uploader *upload.Pipeline, objects ObjectRemover, dl *download.Downloader, lists *cache.GalleryCache, events feed.Subscriber, fetch *http.Client) *API {
	if fetch == nil {
		fetch = http.DefaultClient
	}
	return &API{
		catalog:    cat,
		store:      store,
		uploader:   uploader,
		objects:    objects,
		downloader: dl,
		lists:      lists,
		events:     events,
		fetch:      fetch,
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

// writeError writes the API's JSON error shape.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListPosters serves the gallery: the catalog snapshot filtered and
// sorted per query params, with whole responses cached under the
// normalized query key.
//
//	GET /api/posters?search=diwali&category=festival&sort=popular
func (a *API) ListPosters(w http.ResponseWriter, r *http.Request) {
	q := catalog.Query{
		Search: r.URL.Query().Get("search"),
		Sort:   catalog.Sort(r.URL.Query().Get("sort")),
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		cat, err := models.ParseCategory(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.Category = cat
	}
	switch q.Sort {
	case "", catalog.SortLatest, catalog.SortPopular:
	default:
		writeError(w, http.StatusBadRequest, "unknown sort mode")
		return
	}

	key := q.Key()
	if a.lists != nil {
		if body, ok := a.lists.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(body)
			return
		}
	}

	posters := catalog.Filter(a.catalog.Snapshot(), q)
	body, err := json.Marshal(map[string]any{"posters": posters})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode posters")
		return
	}
	if a.lists != nil {
		a.lists.Set(r.Context(), key, body)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
