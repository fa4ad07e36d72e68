// Package scheduler implements the spaced-repetition algorithms that decide
// when a card is next shown and how its difficulty evolves after each answer.
//
// Algorithms are pure: they take a card value, a rating, the deck policy and
// the current time, and return the updated card without touching storage.
package scheduler

import (
	"time"

	"github.com/starford/raido/internal/models"
)

// Algorithm maps (card, rating, deck policy, now) to the card's next
// scheduling state.
type Algorithm interface {
	Answer(card models.Card, rating models.Rating, opts models.DeckOptions, now time.Time) (models.Card, error)
}

var defaultSM2 = NewSM2()

// ForDeck returns the algorithm selected by the deck's options.
// Unknown scheduler names fall back to SM-2.
func ForDeck(opts models.DeckOptions) Algorithm {
	switch opts.Scheduler {
	case models.SchedulerSM2:
		return defaultSM2
	default:
		return defaultSM2
	}
}

const (
	msPerMinute = int64(60 * 1000)
	msPerDay    = int64(24 * 60 * 60 * 1000)
)

func stepDueAt(now time.Time, minutes float64) int64 {
	return now.UnixMilli() + int64(minutes*float64(msPerMinute))
}

func daysDueAt(now time.Time, days int) int64 {
	return now.UnixMilli() + int64(days)*msPerDay
}
