// Package study implements the study flow: queue building, answer
// processing, leech handling, sibling burial, sessions, and undo.
package study

import (
	"fmt"
	"time"

	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// Per-tier fetch cap. Keeps a single queue build bounded even on decks with
// a huge review backlog.
const tierCap = 100

// QueueBuilder assembles the ordered study queue for one deck. The queue is
// computed fresh on every call, never incrementally.
type QueueBuilder struct {
	db      store.Store
	tracker *limits.Tracker
	clock   func() time.Time
}

// NewQueueBuilder creates a builder over db, consulting tracker for the
// deck's daily new-card budget.
func NewQueueBuilder(db store.Store, tracker *limits.Tracker) *QueueBuilder {
	return &QueueBuilder{db: db, tracker: tracker, clock: time.Now}
}

// Build returns the deck's study queue: learning and relearning cards due
// now, then due reviews, then unseen new cards within the daily budget.
// Learning steps are time-sensitive, so they always come first and are never
// starved by a review backlog. Within each tier the order is deterministic.
func (b *QueueBuilder) Build(deck *models.Deck) ([]models.Card, error) {
	nowMS := b.clock().UnixMilli()

	learning, err := b.db.QueryCards(store.CardQuery{
		DeckID:     deck.ID,
		States:     []models.State{models.StateLearn, models.StateRelearn},
		DueBefore:  nowMS,
		ActiveOnly: true,
		OrderBy:    store.OrderByDue,
		Limit:      tierCap,
	})
	if err != nil {
		return nil, fmt.Errorf("study: build learning tier: %w", err)
	}

	reviews, err := b.db.QueryCards(store.CardQuery{
		DeckID:     deck.ID,
		States:     []models.State{models.StateReview},
		DueBefore:  nowMS,
		ActiveOnly: true,
		OrderBy:    store.OrderByDue,
		Limit:      tierCap,
	})
	if err != nil {
		return nil, fmt.Errorf("study: build review tier: %w", err)
	}

	queue := make([]models.Card, 0, len(learning)+len(reviews))
	queue = append(queue, learning...)
	queue = append(queue, reviews...)

	if b.tracker.CanStudyNew(deck) {
		fresh, err := b.db.QueryCards(store.CardQuery{
			DeckID:     deck.ID,
			States:     []models.State{models.StateNew},
			ActiveOnly: true,
			OrderBy:    store.OrderByPosition,
			Limit:      b.tracker.RemainingNew(deck),
		})
		if err != nil {
			return nil, fmt.Errorf("study: build new tier: %w", err)
		}
		queue = append(queue, fresh...)
	}
	return queue, nil
}
