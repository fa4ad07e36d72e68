package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Decks.
	r.Get("/decks", h.ListDecks)
	r.Post("/decks", h.CreateDeck)
	r.Get("/decks/{deckID}", h.GetDeck)
	r.Put("/decks/{deckID}/options", h.UpdateDeckOptions)

	// Study flow.
	r.Get("/decks/{deckID}/study/next", h.NextCard)
	r.Post("/decks/{deckID}/study/answer", h.Answer)
	r.Post("/decks/{deckID}/study/undo", h.Undo)
	r.Get("/decks/{deckID}/study/stats", h.Stats)
	r.Post("/decks/{deckID}/study/complete", h.CompleteSession)

	// Notes.
	r.Post("/notes", h.CreateNote)

	// Presets.
	r.Get("/presets", h.Presets)

	// Day-boundary and maintenance.
	r.Post("/admin/rollover", h.Rollover)
	r.Post("/admin/media-cleanup", h.MediaCleanup)

	// Media upload (auth-protected); files are served outside /api.
	if svc.media != nil {
		r.Post("/media", NewMediaHandler(svc.media).Upload)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
