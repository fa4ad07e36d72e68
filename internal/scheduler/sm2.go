package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Ease factor changes in permille.
const (
	easeChangeAgain = -200
	easeChangeHard  = -150
	easeChangeEasy  = 150
	minEase         = 1300
)

// SM2 implements the SM-2 family algorithm: learning steps, ease factors,
// interval growth with fuzz, and relearning after lapses.
type SM2 struct {
	rng *rand.Rand
}

// NewSM2 creates an SM-2 scheduler with a time-seeded fuzz source.
func NewSM2() *SM2 {
	return &SM2{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Answer dispatches on the card's current state. Every path increments Reps;
// state transitions reset Position to 0. An invalid rating fails before any
// change.
func (s *SM2) Answer(card models.Card, rating models.Rating, opts models.DeckOptions, now time.Time) (models.Card, error) {
	if !rating.Valid() {
		return models.Card{}, fmt.Errorf("%w: %d", apperr.ErrInvalidRating, rating)
	}
	switch card.State {
	case models.StateNew:
		return s.answerNew(card, rating, opts, now), nil
	case models.StateLearn:
		return s.answerLearning(card, rating, opts, now), nil
	case models.StateReview:
		return s.answerReview(card, rating, opts, now), nil
	case models.StateRelearn:
		return s.answerRelearning(card, rating, opts, now), nil
	default:
		return models.Card{}, fmt.Errorf("%w: %q", apperr.ErrInvalidState, card.State)
	}
}

func (s *SM2) answerNew(card models.Card, rating models.Rating, opts models.DeckOptions, now time.Time) models.Card {
	switch rating {
	case models.RatingAgain, models.RatingHard:
		// Enter the learning steps at step 0.
		card.State = models.StateLearn
		card.Due = stepDueAt(now, opts.FirstLearnStep())
		card.Position = 0
	case models.RatingGood:
		card = graduate(card, opts.GraduatingIntervalGood, opts.InitialEasePermille(), now)
	case models.RatingEasy:
		card = graduate(card, opts.EasyInterval, opts.InitialEasePermille()+easeChangeEasy, now)
	}
	card.Reps++
	return card
}

func (s *SM2) answerLearning(card models.Card, rating models.Rating, opts models.DeckOptions, now time.Time) models.Card {
	steps := opts.LearnSteps
	switch rating {
	case models.RatingAgain:
		card.Due = stepDueAt(now, opts.FirstLearnStep())
		card.Position = 0
	case models.RatingHard:
		pos := card.Position - 1
		if pos < 0 {
			pos = 0
		}
		card.Due = stepDueAt(now, stepAt(steps, pos))
		card.Position = pos
	case models.RatingGood:
		pos := card.Position + 1
		if pos >= len(steps) {
			card = graduate(card, opts.GraduatingIntervalGood, opts.InitialEasePermille(), now)
		} else {
			card.Due = stepDueAt(now, steps[pos])
			card.Position = pos
		}
	case models.RatingEasy:
		// Graduates regardless of the current step.
		card = graduate(card, opts.EasyInterval, opts.InitialEasePermille()+easeChangeEasy, now)
	}
	card.Reps++
	return card
}

func (s *SM2) answerReview(card models.Card, rating models.Rating, opts models.DeckOptions, now time.Time) models.Card {
	switch rating {
	case models.RatingAgain:
		// Lapse into relearning. The interval the card returns to after
		// relearning is the lapsed one, scaled and floored.
		lapsed := int(maxFloat(float64(card.Interval)*opts.LapseMultiplier, float64(opts.MinimumLapseInterval)))
		card.State = models.StateRelearn
		card.Due = stepDueAt(now, opts.FirstRelearnStep())
		card.Interval = lapsed
		card.Ease = maxInt(card.Ease+easeChangeAgain, minEase)
		card.Lapses++
		card.Position = 0
	case models.RatingHard:
		next := s.nextInterval(card.Interval, opts.HardMultiplier, opts, false)
		card.Due = daysDueAt(now, next)
		card.Interval = next
		card.Ease = maxInt(card.Ease+easeChangeHard, minEase)
	case models.RatingGood:
		next := s.nextInterval(card.Interval, float64(card.Ease)/1000.0, opts, true)
		card.Due = daysDueAt(now, next)
		card.Interval = next
	case models.RatingEasy:
		next := s.nextInterval(card.Interval, float64(card.Ease)/1000.0*opts.EasyBonus, opts, true)
		card.Due = daysDueAt(now, next)
		card.Interval = next
		card.Ease += easeChangeEasy
	}
	card.Reps++
	return card
}

func (s *SM2) answerRelearning(card models.Card, rating models.Rating, opts models.DeckOptions, now time.Time) models.Card {
	steps := opts.RelearnSteps
	switch rating {
	case models.RatingAgain:
		card.Due = stepDueAt(now, opts.FirstRelearnStep())
		card.Position = 0
	case models.RatingHard:
		pos := card.Position - 1
		if pos < 0 {
			pos = 0
		}
		card.Due = stepDueAt(now, stepAt(steps, pos))
		card.Position = pos
	case models.RatingGood:
		pos := card.Position + 1
		if pos >= len(steps) {
			card = backToReview(card, now)
		} else {
			card.Due = stepDueAt(now, steps[pos])
			card.Position = pos
		}
	case models.RatingEasy:
		card = backToReview(card, now)
	}
	card.Reps++
	return card
}

// nextInterval grows the current interval by the given multiplier and the
// deck's interval modifier, guarantees monotonic growth (at least one day
// more than before), optionally fuzzes, and caps at the deck maximum.
func (s *SM2) nextInterval(current int, multiplier float64, opts models.DeckOptions, fuzz bool) int {
	next := int(float64(current) * multiplier * opts.IntervalModifier)
	if next < 1 {
		next = 1
	}
	if next < current+1 {
		next = current + 1
	}
	if fuzz && next >= 3 {
		next = fuzzInterval(s.rng, next)
		// Fuzz must not undo the monotonic guarantee.
		if next < current+1 {
			next = current + 1
		}
	}
	if next > opts.MaximumInterval {
		next = opts.MaximumInterval
	}
	return next
}

// graduate moves a card out of the learning phase into long-term review.
func graduate(card models.Card, intervalDays, ease int, now time.Time) models.Card {
	card.State = models.StateReview
	card.Due = daysDueAt(now, intervalDays)
	card.Interval = intervalDays
	card.Ease = ease
	card.Position = 0
	return card
}

// backToReview returns a relearning card to review at the interval it held
// before relearning began. The interval itself is left untouched.
func backToReview(card models.Card, now time.Time) models.Card {
	card.State = models.StateReview
	card.Due = daysDueAt(now, card.Interval)
	card.Position = 0
	return card
}

// stepAt returns the step for pos, or the last step when pos runs past the
// configured list.
func stepAt(steps []float64, pos int) float64 {
	if len(steps) == 0 {
		return 1
	}
	if pos >= len(steps) {
		return steps[len(steps)-1]
	}
	return steps[pos]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
