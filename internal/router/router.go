// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router wires the HTTP routes to their handlers.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"posterpress/internal/handlers"
	"posterpress/internal/middleware"
)

// New builds the service's router. limiter may be nil to disable rate
// limiting on the mutating admin routes.
func New(api *handlers.API, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", api.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posters", api.ListPosters)
		r.Get("/events", api.Events)
		r.Post("/posters/{id}/render", api.Render)
		r.Post("/posters/{id}/download", api.DownloadPoster)

		// Admin mutations sit behind the rate limiter.
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/upload", api.Upload)
			r.Put("/update", api.Update)
			r.Delete("/delete", api.Delete)
		})
	})

	return r
}
