package study

import (
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// ShouldBury reports whether the deck policy buries siblings for a card in
// the given post-answer state.
func ShouldBury(state models.State, opts models.DeckOptions) bool {
	switch state {
	case models.StateNew:
		return opts.BuryNew
	case models.StateReview:
		return opts.BuryReviews
	case models.StateLearn, models.StateRelearn:
		return opts.BuryInterdayLearning
	}
	return false
}

// BurySiblings buries every active card sharing the answered card's note,
// leaving the card itself untouched. Returns the number buried.
func BurySiblings(tx *store.Tx, card *models.Card) (int64, error) {
	return tx.BurySiblings(card.NoteID, card.ID)
}
