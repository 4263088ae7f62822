package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed inserts sample posters for development. It is a no-op when the
// posters table already has rows, so repeated startups are safe.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM posters`).Scan(&count); err != nil {
		return fmt.Errorf("seed count: %w", err)
	}
	if count > 0 {
		return nil
	}

	samples := []struct {
		title    string
		category string
		url      string
		editable bool
		font     string
	}{
		{"Diwali Wishes", "festival", "https://cdn.example.com/thumbnails/seed-diwali.png", true, "Lobster"},
		{"Happy Birthday Balloons", "birthday", "https://cdn.example.com/thumbnails/seed-balloons.png", true, "Pacifico"},
		{"Wedding Invitation Gold", "marriage", "https://cdn.example.com/thumbnails/seed-wedding.png", false, ""},
	}

	for _, s := range samples {
		var font *string
		if s.font != "" {
			font = &s.font
		}
		_, err := db.Exec(`
			INSERT INTO posters (title, category, download_url, font_family, is_editable)
			VALUES ($1, $2, $3, $4, $5)
		`, s.title, s.category, s.url, font, s.editable)
		if err != nil {
			return fmt.Errorf("seed insert %q: %w", s.title, err)
		}
	}

	slog.Info("database seeded", "posters", len(samples))
	return nil
}
