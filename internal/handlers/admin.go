// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"posterpress/internal/models"
	"posterpress/internal/upload"
)

// maxUploadBody caps the multipart request body: the poster asset plus
// an optional thumbnail, each up to the pipeline's per-file limit, plus
// form-field overhead.
const maxUploadBody = 2*upload.MaxFileSize + 1024

// Upload handles the admin poster submission.
//
//	POST /api/upload
//	multipart fields: file (required), thumbnail, title, category,
//	isEditable, fontFamily
func (a *API) Upload(w http.ResponseWriter, r *http.Request) {
	if a.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	cat, err := models.ParseCategory(r.FormValue("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub := &upload.Submission{
		Title:      r.FormValue("title"),
		Category:   cat,
		IsEditable: r.FormValue("isEditable") == "true",
		FontFamily: strings.TrimSpace(r.FormValue("fontFamily")),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		sub.Asset = &upload.File{Name: header.Filename, Size: header.Size, Reader: file}
	}
	if thumb, header, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		sub.Thumbnail = &upload.File{Name: header.Filename, Size: header.Size, Reader: thumb}
	}

	created, err := a.uploader.Submit(r.Context(), sub, nil)
	if err != nil {
		var verr *upload.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Reason)
			return
		}
		slog.Error("poster upload failed", "title", sub.Title, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store poster")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"downloadLink": created.DownloadURL,
		"title":        created.Title,
		"category":     created.Category,
		"isEditable":   created.IsEditable,
		"fontFamily":   created.FontFamily,
	})
}

type updateRequest struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// Update edits a poster's title and category.
//
//	PUT /api/update  {"id": 1, "title": "...", "category": "festival"}
func (a *API) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == 0 || strings.TrimSpace(req.Title) == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "id, title and category are required")
		return
	}
	cat, err := models.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := a.store.Update(r.Context(), req.ID, strings.TrimSpace(req.Title), cat); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			writeError(w, http.StatusNotFound, "poster not found")
		case errors.Is(err, models.ErrTimeout):
			writeError(w, http.StatusGatewayTimeout, "backend timeout")
		default:
			slog.Error("poster update failed", "id", req.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update poster")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Poster updated successfully"})
}

type deleteRequest struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

// Delete removes a poster row and its stored objects.
//
//	DELETE /api/delete  {"id": 1, "filename": "thumbnails/....png"}
func (a *API) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == 0 || req.Filename == "" {
		writeError(w, http.StatusBadRequest, "id and filename are required")
		return
	}

	removed, err := a.store.Delete(r.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			writeError(w, http.StatusNotFound, "poster not found")
		case errors.Is(err, models.ErrTimeout):
			writeError(w, http.StatusGatewayTimeout, "backend timeout")
		default:
			slog.Error("poster delete failed", "id", req.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete poster")
		}
		return
	}

	// The row is gone; object removal is best-effort. Both the display
	// asset and, for PSD-backed posters, the original get removed.
	if a.objects != nil {
		keys := make([]string, 0, 2)
		if key, ok := a.objects.ExtractKey(removed.DownloadURL); ok {
			keys = append(keys, key)
		} else if req.Filename != "" {
			keys = append(keys, req.Filename)
		}
		if removed.PSDURL != nil {
			if key, ok := a.objects.ExtractKey(*removed.PSDURL); ok {
				keys = append(keys, key)
			}
		}
		if len(keys) > 0 {
			if err := a.objects.Delete(r.Context(), keys...); err != nil {
				slog.Warn("poster objects not removed", "id", req.ID, "keys", keys, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Poster deleted successfully"})
}
