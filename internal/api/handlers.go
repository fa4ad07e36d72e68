package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// deckID extracts and parses the {deckID} URL parameter.
func deckID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "deckID"), 10, 64)
}

// ListDecks handles GET /api/decks.
//
//	@Summary		List decks with due counts
//	@Tags			decks
//	@Produce		json
//	@Success		200	{array}	DeckSummary
//	@Security		BearerAuth
//	@Router			/decks [get]
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.svc.ListDecks(time.Now().UnixMilli())
	if err != nil {
		slog.Error("list decks failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": decks})
}

// CreateDeck handles POST /api/decks.
//
//	@Summary		Create a deck, optionally from an options preset
//	@Tags			decks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDeckRequest	true	"Deck to create"
//	@Success		201		{object}	DeckDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks [post]
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req CreateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	deck, err := h.svc.CreateDeck(req.Name, req.ParentID, req.Preset)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown preset"))
			return
		}
		slog.Error("create deck failed", slog.String("name", req.Name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, deckDetail(deck))
}

// GetDeck handles GET /api/decks/{deckID}.
//
//	@Summary		Get a deck with its decoded options
//	@Tags			decks
//	@Produce		json
//	@Param			deckID	path		int	true	"Deck ID"
//	@Success		200		{object}	DeckDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID} [get]
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	id, err := deckID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid deck id"))
		return
	}
	deck, err := h.svc.GetDeck(id)
	if err != nil {
		h.deckError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, deckDetail(deck))
}

// UpdateDeckOptions handles PUT /api/decks/{deckID}/options.
//
//	@Summary		Replace a deck's scheduling options
//	@Tags			decks
//	@Accept			json
//	@Produce		json
//	@Param			deckID	path		int							true	"Deck ID"
//	@Param			body	body		UpdateDeckOptionsRequest	true	"New options"
//	@Success		200		{object}	DeckDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/options [put]
func (h *Handler) UpdateDeckOptions(w http.ResponseWriter, r *http.Request) {
	id, err := deckID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid deck id"))
		return
	}
	var req UpdateDeckOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Options) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("options is required"))
		return
	}
	deck, err := h.svc.UpdateDeckOptions(id, req.Options)
	if err != nil {
		h.deckError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, deckDetail(deck))
}

// NextCard handles GET /api/decks/{deckID}/study/next.
//
//	@Summary		Get the next card to study
//	@Tags			study
//	@Produce		json
//	@Param			deckID	path		int	true	"Deck ID"
//	@Success		200		{object}	NextCardResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/study/next [get]
func (h *Handler) NextCard(w http.ResponseWriter, r *http.Request) {
	id, err := deckID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid deck id"))
		return
	}
	card, note, err := h.svc.NextCard(id)
	if err != nil {
		h.deckError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, NextCardResponse{Card: card, Note: note})
}

// Answer handles POST /api/decks/{deckID}/study/answer.
//
//	@Summary		Answer a card
//	@Tags			study
//	@Accept			json
//	@Produce		json
//	@Param			deckID	path		int				true	"Deck ID"
//	@Param			body	body		AnswerRequest	true	"Answer"
//	@Success		200		{object}	AnswerResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/study/answer [post]
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	id, err := deckID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid deck id"))
		return
	}
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Answer(id, req.CardID, models.Rating(req.Rating), req.TimeMS)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidRating):
			writeJSON(w, http.StatusBadRequest, errorBody("rating must be between 1 and 4"))
		case errors.Is(err, apperr.ErrInvalidTime):
			writeJSON(w, http.StatusBadRequest, errorBody("time_ms must be positive"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		default:
			slog.Error("answer failed", slog.Int64("deck", id), slog.Int64("card", req.CardID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("could not record your answer, please retry"))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Undo handles POST /api/decks/{deckID}/study/undo.
//
//	@Summary		Undo the most recent answer in the deck's session
//	@Tags			study
//	@Produce		json
//	@Param			deckID	path		int	true	"Deck ID"
//	@Success		200		{object}	models.Card
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/study/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	id, err := deckID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid deck id"))
		return
	}
	card, err := h.svc.Undo(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNothingToUndo) {
			writeJSON(w, http.StatusConflict, errorBody("nothing to undo"))
			return
		}
		h.deckError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Stats handles GET /api/decks/{deckID}/study/stats.
//
//	@Summary		Get session statistics and live queue counts
//	@Tags			study
//	@Produce		json
//	@Param			deckID	path		int	true	"Deck ID"
//	@Success		200		{object}	StatsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/study/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := deckID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid deck id"))
		return
	}
	stats, counts, more, err := h.svc.SessionStats(id, time.Now().UnixMilli())
	if err != nil {
		h.deckError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:   stats,
		Counts:  CountsDTO{Learning: counts.Learning, Review: counts.Review, New: counts.New},
		HasMore: more,
	})
}

// CompleteSession handles POST /api/decks/{deckID}/study/complete.
//
//	@Summary		End the deck's study session
//	@Tags			study
//	@Produce		json
//	@Param			deckID	path		int	true	"Deck ID"
//	@Success		200		{object}	study.Stats
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{deckID}/study/complete [post]
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := deckID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid deck id"))
		return
	}
	stats, err := h.svc.CompleteSession(id)
	if err != nil {
		h.deckError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note and its sibling cards
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.DeckID == 0 || len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("deck_id and fields are required"))
		return
	}
	note, cards, err := h.svc.CreateNote(req.DeckID, req.Fields, req.Tags, req.CardCount)
	if err != nil {
		h.deckError(w, req.DeckID, err)
		return
	}
	writeJSON(w, http.StatusCreated, NoteResponse{Note: note, Cards: cards})
}

// Presets handles GET /api/presets.
//
//	@Summary		List deck-option presets
//	@Tags			presets
//	@Produce		json
//	@Success		200	{array}	presets.Preset
//	@Security		BearerAuth
//	@Router			/presets [get]
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": h.svc.Presets()})
}

// Rollover handles POST /api/admin/rollover.
//
//	@Summary		Run day-boundary maintenance now
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	RolloverResponse
//	@Security		BearerAuth
//	@Router			/admin/rollover [post]
func (h *Handler) Rollover(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Rollover()
	if err != nil {
		slog.Error("rollover failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RolloverResponse{Unburied: n})
}

// MediaCleanup handles POST /api/admin/media-cleanup.
//
//	@Summary		Delete media files no note references
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]int
//	@Security		BearerAuth
//	@Router			/admin/media-cleanup [post]
func (h *Handler) MediaCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MediaCleanup()
	if err != nil {
		slog.Error("media cleanup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *Handler) deckError(w http.ResponseWriter, deckID int64, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error("deck operation failed", slog.Int64("deck", deckID), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

func deckDetail(deck *models.Deck) DeckDetail {
	return DeckDetail{
		ID:       deck.ID,
		ParentID: deck.ParentID,
		Name:     deck.Name,
		Options:  deck.Options(),
	}
}
