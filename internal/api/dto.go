package api

import (
	"encoding/json"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/study"
)

// CreateDeckRequest is the request body for creating a deck.
type CreateDeckRequest struct {
	Name     string `json:"name" example:"Japanese::Vocab" validate:"required"`
	ParentID int64  `json:"parent_id,omitempty" example:"1"`
	Preset   string `json:"preset,omitempty" example:"exam-cram"`
}

// UpdateDeckOptionsRequest carries the replacement options JSON verbatim;
// unknown or malformed keys fall back to defaults on read.
type UpdateDeckOptionsRequest struct {
	Options json.RawMessage `json:"options" validate:"required"`
}

// DeckDetail is the full deck response including decoded options.
type DeckDetail struct {
	ID       int64              `json:"id"`
	ParentID int64              `json:"parent_id,omitempty"`
	Name     string             `json:"name"`
	Options  models.DeckOptions `json:"options"`
}

// AnswerRequest is the request body for answering a card.
type AnswerRequest struct {
	CardID int64 `json:"card_id" example:"42" validate:"required"`
	Rating int   `json:"rating" example:"3" validate:"required"`
	TimeMS int64 `json:"time_ms" example:"4100" validate:"required"`
}

// NextCardResponse is the payload for the next card to study. Card is null
// when nothing is left to study.
type NextCardResponse struct {
	Card *models.Card `json:"card"`
	Note *models.Note `json:"note,omitempty"`
}

// AnswerResponse is the outcome of one processed answer.
type AnswerResponse = study.Result

// CreateNoteRequest is the request body for creating a note with its cards.
type CreateNoteRequest struct {
	DeckID    int64             `json:"deck_id" example:"1" validate:"required"`
	Fields    map[string]string `json:"fields" validate:"required"`
	Tags      []string          `json:"tags,omitempty"`
	CardCount int               `json:"card_count,omitempty" example:"1"`
}

// NoteResponse wraps a created note and its generated cards.
type NoteResponse struct {
	Note  *models.Note  `json:"note"`
	Cards []models.Card `json:"cards"`
}

// StatsResponse reports a study session's progress plus the deck's live
// queue counts.
type StatsResponse struct {
	Stats    study.Stats  `json:"stats"`
	Counts   CountsDTO    `json:"counts"`
	HasMore  bool         `json:"has_more"`
}

// CountsDTO mirrors store.Counts for the API surface.
type CountsDTO struct {
	Learning int `json:"learning" example:"2"`
	Review   int `json:"review" example:"14"`
	New      int `json:"new" example:"20"`
}

// RolloverResponse reports the day-boundary maintenance outcome.
type RolloverResponse struct {
	Unburied int64 `json:"unburied" example:"3"`
}

// MediaUploadResponse is returned after a successful media upload.
type MediaUploadResponse struct {
	Name string `json:"name" example:"cat.png" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
	URL  string `json:"url" example:"/media/cat.png" validate:"required"`
}
