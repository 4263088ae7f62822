// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package canvas

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"

	"posterpress/internal/models"
)

// Counter records one completed download.
type Counter interface {
	IncrementDownloadCount(ctx context.Context, id int64) (*models.Poster, error)
}

// FinalizeDownload rasterizes the session, streams the PNG to w, and
// then records the download. The order is deliberate: the artifact is
// delivered first, and a counter failure afterwards is logged but never
// claws back what the user already has. A render or write failure, by
// contrast, aborts before anything is counted.
func (s *Session) FinalizeDownload(ctx context.Context, posterID int64, w io.Writer, counter Counter) error {
	img, err := s.Rasterize()
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode poster: %w", err)
	}

	if counter != nil {
		if _, err := counter.IncrementDownloadCount(ctx, posterID); err != nil {
			slog.Warn("download delivered but count not recorded", "poster_id", posterID, "error", err)
		}
	}
	return nil
}
