package study

import (
	"fmt"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// Tag applied to the note of a card that crosses the leech threshold.
const leechTag = "leech"

// DetectLeech reports whether the card has lapsed often enough to count as a
// leech under the deck policy.
func DetectLeech(card *models.Card, opts models.DeckOptions) bool {
	return card.Leech(opts.LeechThreshold)
}

// HandleLeech applies the deck's leech action inside tx: suspend the card,
// tag its note, or both. Re-tagging is idempotent. Returns true only when a
// leech was detected and acted on.
func HandleLeech(tx *store.Tx, card *models.Card, opts models.DeckOptions) (bool, error) {
	if !DetectLeech(card, opts) {
		return false, nil
	}

	action := opts.LeechAction
	suspend := action == models.LeechSuspend || action == models.LeechTagAndSuspend
	tag := action == models.LeechTagOnly || action == models.LeechTagAndSuspend

	if suspend {
		if err := tx.SetCardSuspended(card.ID, true); err != nil {
			return false, fmt.Errorf("study: suspend leech: %w", err)
		}
		card.Suspended = true
	}
	if tag {
		tags, err := tx.NoteTags(card.NoteID)
		if err != nil {
			return false, fmt.Errorf("study: leech tags: %w", err)
		}
		if !containsTag(tags, leechTag) {
			if err := tx.SetNoteTags(card.NoteID, append(tags, leechTag)); err != nil {
				return false, fmt.Errorf("study: tag leech: %w", err)
			}
		}
	}
	return true, nil
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
