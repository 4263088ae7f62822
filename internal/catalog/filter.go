// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package catalog

import (
	"fmt"
	"sort"
	"strings"

	"posterpress/internal/models"
)

// Sort selects the gallery ordering.
type Sort string

const (
	// SortLatest orders by creation time, newest first. Default.
	SortLatest Sort = "latest"
	// SortPopular orders by download count, highest first. Ties keep
	// their relative catalog order.
	SortPopular Sort = "popular"
)

// Query is one gallery view request: free-text search, category filter,
// and sort mode. The zero value means "everything, newest first".
type Query struct {
	Search   string
	Category models.Category // empty = all categories
	Sort     Sort
}

// Key returns a normalized cache key for this query.
func (q Query) Key() string {
	sort := q.Sort
	if sort == "" {
		sort = SortLatest
	}
	return fmt.Sprintf("s=%s|c=%s|o=%s", strings.ToLower(strings.TrimSpace(q.Search)), q.Category, sort)
}

// Filter applies the query to a catalog snapshot and returns a new
// ordered slice. The input is never mutated, and applying the same query
// twice yields the same result.
func Filter(posters []models.Poster, q Query) []models.Poster {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]models.Poster, 0, len(posters))
	for _, p := range posters {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(string(p.Category)), needle) {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].DownloadCount > out[j].DownloadCount
		})
	default: // SortLatest
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	return out
}
