// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	_ "golang.org/x/image/webp" // register WebP decoder

	"posterpress/internal/canvas"
	"posterpress/internal/download"
	"posterpress/internal/models"
)

type textSpec struct {
	Content    string  `json:"content"`
	Color      string  `json:"color"`
	FontFamily string  `json:"fontFamily"`
	FontStyle  string  `json:"fontStyle"`
	FontWeight string  `json:"fontWeight"`
	FontSize   float64 `json:"fontSize"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Rotation   float64 `json:"rotation"`
}

type imageSpec struct {
	URL      string  `json:"url"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

type renderRequest struct {
	Zoom  float64    `json:"zoom"`
	Text  *textSpec  `json:"text"`
	Image *imageSpec `json:"image"`
}

// posterID pulls the {id} route param.
func posterID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// lookupPoster serves from the catalog mirror and falls back to the
// table for posters not yet echoed into it.
func (a *API) lookupPoster(r *http.Request, id int64) (*models.Poster, error) {
	if p, ok := a.catalog.Get(id); ok {
		return &p, nil
	}
	return a.store.FindByID(r.Context(), id)
}

// fetchImage retrieves and decodes a poster or overlay image.
func (a *API) fetchImage(r *http.Request, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.fetch.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	return img, err
}

// Render composes a customized poster server-side and delivers the
// 800×560 PNG, counting the download. The layer model mirrors the
// editor's session state.
//
//	POST /api/posters/{id}/render
func (a *API) Render(w http.ResponseWriter, r *http.Request) {
	id, err := posterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid poster id")
		return
	}

	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	poster, err := a.lookupPoster(r, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "poster not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load poster")
		return
	}
	if !poster.IsEditable {
		writeError(w, http.StatusBadRequest, "poster is not editable")
		return
	}

	base, err := a.fetchImage(r, poster.DisplayURL())
	if err != nil {
		slog.Warn("render target unavailable", "id", id, "error", err)
		writeError(w, http.StatusUnprocessableEntity, canvas.ErrRenderTargetMissing.Error())
		return
	}

	session := canvas.NewSession(base)
	if req.Zoom != 0 {
		session.SetZoom(req.Zoom - session.Zoom())
	}

	if req.Image != nil && req.Image.URL != "" {
		overlay, err := a.fetchImage(r, req.Image.URL)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "overlay image unavailable")
			return
		}
		session.SetImage(overlay)
		layer := session.Image()
		if req.Image.Width > 0 && req.Image.Height > 0 {
			layer.Size = canvas.Size{W: req.Image.Width, H: req.Image.Height}
		}
		layer.Pos = canvas.Point{X: req.Image.X, Y: req.Image.Y}
		layer.Rotation = req.Image.Rotation
		session.MoveLayer(canvas.LayerImage, 0, 0) // re-clamp
	}

	if req.Text != nil {
		color := req.Text.Color
		if color == "" {
			color = "#000000"
		}
		if err := session.SetText(req.Text.Content, color, req.Text.FontFamily, req.Text.FontStyle, req.Text.FontWeight); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Text.FontSize > 0 {
			session.SetFontSize(req.Text.FontSize - session.Text().FontSize)
		}
		session.Text().Pos = canvas.Point{X: req.Text.X, Y: req.Text.Y}
		session.Text().Rotation = req.Text.Rotation
		session.MoveLayer(canvas.LayerText, 0, 0) // re-clamp
	}

	var buf bytes.Buffer
	if err := session.FinalizeDownload(r.Context(), id, &buf, a.store); err != nil {
		if errors.Is(err, canvas.ErrRenderTargetMissing) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("poster render failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render poster")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", poster.Title+".png"))
	w.Write(buf.Bytes())
}

// DownloadPoster runs the gallery download flow: cooldown, confirmed
// counter increment, then the asset stream.
//
//	POST /api/posters/{id}/download
func (a *API) DownloadPoster(w http.ResponseWriter, r *http.Request) {
	id, err := posterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid poster id")
		return
	}

	poster, err := a.lookupPoster(r, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "poster not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load poster")
		return
	}

	filename := poster.Title + strings.ToLower(path.Ext(poster.DownloadURL))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := a.downloader.Download(r.Context(), id, poster.DownloadURL, w); err != nil {
		var cerr *download.CooldownError
		switch {
		case errors.As(err, &cerr):
			w.Header().Set("Retry-After", strconv.Itoa(int(cerr.Remaining.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, cerr.Error())
		case errors.Is(err, download.ErrFetchFailed):
			writeError(w, http.StatusBadGateway, "poster asset unavailable")
		case errors.Is(err, models.ErrTimeout):
			writeError(w, http.StatusGatewayTimeout, "backend timeout")
		default:
			slog.Error("poster download failed", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to download poster")
		}
	}
}
