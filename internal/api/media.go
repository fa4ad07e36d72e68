package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/media"
)

const maxUploadBytes = 50 << 20 // 50 MB

// MediaHandler serves and accepts media files for card fields.
type MediaHandler struct {
	provider media.Provider
}

// NewMediaHandler creates a handler over the media provider.
func NewMediaHandler(p media.Provider) *MediaHandler {
	return &MediaHandler{provider: p}
}

// ServeFile handles GET /media/{filename}.
func (h *MediaHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	data, err := h.provider.Read(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

// Upload handles POST /api/media (multipart/form-data, field "file").
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	if err := h.provider.Write(header.Filename, buf); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, MediaUploadResponse{
		Name: header.Filename,
		Size: header.Size,
		URL:  "/media/" + header.Filename,
	})
}
