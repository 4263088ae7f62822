// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "errors"

// Sentinel errors shared by the backend gateway packages. Handlers map
// these onto HTTP status codes; everything else is a plain 500.
var (
	// ErrNotFound is returned when a poster row does not exist.
	ErrNotFound = errors.New("poster not found")

	// ErrTimeout is returned when a backend call exceeds its per-call
	// deadline. Distinct from other backend failures so callers can
	// report a hung dependency instead of a generic error.
	ErrTimeout = errors.New("backend operation timed out")
)
