// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the persisted data types shared across the
// poster gallery service.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a poster by occasion.
type Category string

const (
	CategoryFestival Category = "festival"
	CategoryBirthday Category = "birthday"
	CategoryMarriage Category = "marriage"
)

// ParseCategory normalizes and validates a category string.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryFestival, CategoryBirthday, CategoryMarriage:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Poster is a downloadable poster asset. The file itself lives in object
// storage; this row holds its metadata and public URLs.
//
// A poster uploaded as a layered PSD original stores the admin-supplied
// rendered thumbnail in DownloadURL and the PSD itself in PSDURL. For
// plain image uploads PSDURL is nil and DownloadURL points at the image.
type Poster struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Category      Category   `json:"category"`
	DownloadURL   string     `json:"download_url"`
	PSDURL        *string    `json:"psd_url,omitempty"`
	FontFamily    *string    `json:"font_family,omitempty"`
	IsEditable    bool       `json:"is_editable"`
	CreatedAt     time.Time  `json:"created_at"`
	DownloadCount int64      `json:"download_count"`
}

// IsPSDBacked returns true when the poster carries a layered PSD original.
func (p *Poster) IsPSDBacked() bool {
	return p.PSDURL != nil && *p.PSDURL != ""
}

// DisplayURL returns the URL of the image shown in the gallery. This is
// always DownloadURL: PSD-backed posters keep their rendered thumbnail there.
func (p *Poster) DisplayURL() string {
	return p.DownloadURL
}
