package limits

import (
	"fmt"
	"time"

	"github.com/starford/raido/internal/models"
)

// Counter TTL. Generous enough to outlive any clock skew around midnight;
// the date embedded in the key is what actually scopes a counter to a day.
const counterTTL = 48 * time.Hour

const keyPrefix = "daily_limit"

// Tracker counts new cards and reviews studied today for one user, keyed
// per deck. "Today" is the server-local calendar date.
type Tracker struct {
	cache  Cache
	userID int64
	clock  func() time.Time
}

// NewTracker creates a tracker for userID backed by cache.
func NewTracker(cache Cache, userID int64) *Tracker {
	return NewTrackerWithClock(cache, userID, time.Now)
}

// NewTrackerWithClock is NewTracker with an injectable clock.
func NewTrackerWithClock(cache Cache, userID int64, clock func() time.Time) *Tracker {
	return &Tracker{cache: cache, userID: userID, clock: clock}
}

func (t *Tracker) key(deckID int64, kind string) string {
	date := t.clock().Format("2006-01-02")
	return fmt.Sprintf("%s:user:%d:deck:%d:%s:%s", keyPrefix, t.userID, deckID, kind, date)
}

func (t *Tracker) increment(deckID int64, kind string) {
	k := t.key(deckID, kind)
	n, _ := t.cache.Get(k)
	t.cache.Set(k, n+1, counterTTL)
}

func (t *Tracker) count(deckID int64, kind string) int {
	n, _ := t.cache.Get(t.key(deckID, kind))
	return n
}

// IncrementNew records one new card studied in the deck today.
func (t *Tracker) IncrementNew(deckID int64) { t.increment(deckID, "new") }

// IncrementReviews records one review studied in the deck today.
func (t *Tracker) IncrementReviews(deckID int64) { t.increment(deckID, "reviews") }

// NewCount returns how many new cards were studied in the deck today.
func (t *Tracker) NewCount(deckID int64) int { return t.count(deckID, "new") }

// ReviewCount returns how many reviews were studied in the deck today.
func (t *Tracker) ReviewCount(deckID int64) int { return t.count(deckID, "reviews") }

// CanStudyNew reports whether the deck's new_per_day limit still has room.
// A limit of zero means unlimited.
func (t *Tracker) CanStudyNew(deck *models.Deck) bool {
	limit := deck.Options().NewPerDay
	return limit == 0 || t.NewCount(deck.ID) < limit
}

// CanStudyReviews reports whether the deck's reviews_per_day limit still has
// room. A limit of zero means unlimited.
func (t *Tracker) CanStudyReviews(deck *models.Deck) bool {
	limit := deck.Options().ReviewsPerDay
	return limit == 0 || t.ReviewCount(deck.ID) < limit
}

// RemainingNew returns how many more new cards the deck allows today.
// Zero means no cap when the deck's limit is unlimited.
func (t *Tracker) RemainingNew(deck *models.Deck) int {
	limit := deck.Options().NewPerDay
	if limit == 0 {
		return 0
	}
	r := limit - t.NewCount(deck.ID)
	if r < 0 {
		return 0
	}
	return r
}

// RemainingReviews returns how many more reviews the deck allows today.
// Zero means no cap when the deck's limit is unlimited.
func (t *Tracker) RemainingReviews(deck *models.Deck) int {
	limit := deck.Options().ReviewsPerDay
	if limit == 0 {
		return 0
	}
	r := limit - t.ReviewCount(deck.ID)
	if r < 0 {
		return 0
	}
	return r
}

// Reset clears every counter for the user, across all decks and dates.
func (t *Tracker) Reset() {
	t.cache.DeletePrefix(fmt.Sprintf("%s:user:%d:", keyPrefix, t.userID))
}

// ResetAll clears every user's counters. Used by the daily rollover.
func ResetAll(cache Cache) {
	cache.DeletePrefix(keyPrefix + ":")
}
