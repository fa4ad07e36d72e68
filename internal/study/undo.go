package study

import (
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// snapshot is the single-slot undo record: the card exactly as it was before
// the last answer, plus the review row that answer created. Each new answer
// overwrites the slot; there is no undo history.
type snapshot struct {
	card     models.Card
	reviewID int64
}

// Undo reverts the most recent answer in this session: the card's scheduling
// fields are restored and the answer's review row is deleted, atomically.
// The restored card goes back to the front of the queue. Returns
// apperr.ErrNothingToUndo when no answer is pending.
func (s *Session) Undo() (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil {
		return nil, apperr.ErrNothingToUndo
	}
	snap := s.undo

	err := s.db.WithTx(func(tx *store.Tx) error {
		if err := tx.RestoreCard(&snap.card); err != nil {
			return err
		}
		return tx.DeleteReview(snap.reviewID)
	})
	if err != nil {
		return nil, err
	}

	s.undo = nil
	if s.studied > 0 {
		s.studied--
	}
	s.queue = append([]models.Card{snap.card}, s.queue...)
	return &snap.card, nil
}
