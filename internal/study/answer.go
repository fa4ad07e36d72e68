package study

import (
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/scheduler"
	"github.com/starford/raido/internal/store"
)

// Result is everything one processed answer produced.
type Result struct {
	Card           *models.Card   `json:"card"`
	Review         *models.Review `json:"review"`
	LeechDetected  bool           `json:"leech_detected"`
	SiblingsBuried int64          `json:"siblings_buried"`
}

// Processor records an answer: it runs the scheduler, persists the card and
// its review row, and applies leech and bury side effects, all in one
// transaction. A failure anywhere rolls back the whole answer, so a retry is
// always safe.
type Processor struct {
	db      *store.DB
	tracker *limits.Tracker
	clock   func() time.Time
}

// NewProcessor creates a processor over db, reporting studied counts to
// tracker.
func NewProcessor(db *store.DB, tracker *limits.Tracker) *Processor {
	return &Processor{db: db, tracker: tracker, clock: time.Now}
}

// Process answers card with rating, where timeMS is how long the learner
// looked at the card. Input validation happens before any mutation.
func (p *Processor) Process(card *models.Card, deck *models.Deck, rating models.Rating, timeMS int64) (*Result, error) {
	if !rating.Valid() {
		return nil, fmt.Errorf("study: rating %d: %w", rating, apperr.ErrInvalidRating)
	}
	if timeMS <= 0 {
		return nil, fmt.Errorf("study: time %dms: %w", timeMS, apperr.ErrInvalidTime)
	}

	opts := deck.Options()
	now := p.clock()
	stateBefore := card.State

	updated, err := scheduler.ForDeck(opts).Answer(*card, rating, opts, now)
	if err != nil {
		return nil, err
	}

	res := &Result{Card: &updated}
	err = p.db.WithTx(func(tx *store.Tx) error {
		if err := tx.UpdateCardScheduling(&updated); err != nil {
			return err
		}

		review := &models.Review{
			CardID:    updated.ID,
			Rating:    rating,
			Interval:  reviewInterval(&updated, now),
			Ease:      updated.Ease,
			TimeMS:    timeMS,
			Type:      reviewTypeFor(stateBefore),
			CreatedAt: now.UnixMilli(),
		}
		if err := tx.InsertReview(review); err != nil {
			return err
		}
		res.Review = review

		leeched, err := HandleLeech(tx, &updated, opts)
		if err != nil {
			return err
		}
		res.LeechDetected = leeched

		if ShouldBury(updated.State, opts) {
			buried, err := BurySiblings(tx, &updated)
			if err != nil {
				return err
			}
			res.SiblingsBuried = buried
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Counters are best-effort and stay outside the transaction; a lost
	// increment is acceptable staleness, not a correctness bug.
	if stateBefore == models.StateNew {
		p.tracker.IncrementNew(deck.ID)
	}
	switch updated.State {
	case models.StateReview, models.StateLearn, models.StateRelearn:
		p.tracker.IncrementReviews(deck.ID)
	}
	return res, nil
}

// reviewTypeFor classifies the review row by the state the card was answered
// from.
func reviewTypeFor(before models.State) models.ReviewType {
	switch before {
	case models.StateNew, models.StateLearn:
		return models.ReviewTypeLearn
	case models.StateRelearn:
		return models.ReviewTypeRelearn
	default:
		return models.ReviewTypeReview
	}
}

// reviewInterval returns the interval logged on the review row. Cards mid
// learning step carry no day interval yet, so the remaining step delay is
// stored as negative seconds, keeping the column nonzero and distinguishable
// from day values.
func reviewInterval(card *models.Card, now time.Time) int {
	if card.Interval != 0 {
		return card.Interval
	}
	secs := (card.Due - now.UnixMilli()) / 1000
	if secs < 1 {
		secs = 1
	}
	return -int(secs)
}
