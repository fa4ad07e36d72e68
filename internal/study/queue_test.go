package study

import (
	"testing"
	"time"

	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
)

var queueNow = time.UnixMilli(1_700_000_000_000)

func testBuilder(t *testing.T, db *store.DB, userID int64) (*QueueBuilder, *limits.Tracker) {
	t.Helper()
	tracker := limits.NewTracker(limits.NewMemoryCache(), userID)
	b := NewQueueBuilder(db, tracker)
	b.clock = func() time.Time { return queueNow }
	return b, tracker
}

func TestBuildOrdersTiers(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 6)

	nowMS := queueNow.UnixMilli()
	due := func(c models.Card, state models.State, dueMS int64) {
		c.State = state
		c.Due = dueMS
		testutil.SetCard(t, db, &c)
	}
	// Two learning cards due in reverse insertion order, one relearning, two
	// reviews. The last card stays new.
	due(cards[0], models.StateLearn, nowMS-1_000)
	due(cards[1], models.StateLearn, nowMS-5_000)
	due(cards[2], models.StateRelearn, nowMS-3_000)
	due(cards[3], models.StateReview, nowMS-10_000)
	due(cards[4], models.StateReview, nowMS-2_000)

	user, _ := db.GetUser(deck.UserID)
	b, _ := testBuilder(t, db, user.ID)
	queue, err := b.Build(deck)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(queue) != 6 {
		t.Fatalf("len = %d, want 6", len(queue))
	}

	wantOrder := []int64{cards[1].ID, cards[2].ID, cards[0].ID, cards[3].ID, cards[4].ID, cards[5].ID}
	for i, want := range wantOrder {
		if queue[i].ID != want {
			t.Errorf("queue[%d] = card %d, want %d", i, queue[i].ID, want)
		}
	}
}

func TestBuildExcludesFutureDue(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 2)

	nowMS := queueNow.UnixMilli()
	c := cards[0]
	c.State = models.StateReview
	c.Due = nowMS + 60_000
	testutil.SetCard(t, db, &c)
	c = cards[1]
	c.State = models.StateReview
	c.Due = nowMS
	testutil.SetCard(t, db, &c)

	b, _ := testBuilder(t, db, deck.UserID)
	queue, err := b.Build(deck)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != cards[1].ID {
		t.Errorf("queue = %v, want only the card due now", queue)
	}
}

func TestBuildSkipsNewWhenLimitExhausted(t *testing.T) {
	db := testutil.TestDB(t)
	opts := models.DefaultDeckOptions()
	opts.NewPerDay = 2
	_, deck, _ := testutil.Fixture(t, db, opts, 5)

	b, tracker := testBuilder(t, db, deck.UserID)
	tracker.IncrementNew(deck.ID)
	tracker.IncrementNew(deck.ID)

	queue, err := b.Build(deck)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("len = %d, want 0 when the new budget is spent", len(queue))
	}
}

func TestBuildLimitsNewToRemainingBudget(t *testing.T) {
	db := testutil.TestDB(t)
	opts := models.DefaultDeckOptions()
	opts.NewPerDay = 3
	_, deck, cards := testutil.Fixture(t, db, opts, 5)

	b, tracker := testBuilder(t, db, deck.UserID)
	tracker.IncrementNew(deck.ID)

	queue, err := b.Build(deck)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("len = %d, want 2 remaining new cards", len(queue))
	}
	if queue[0].ID != cards[0].ID || queue[1].ID != cards[1].ID {
		t.Errorf("new cards out of position order: %d, %d", queue[0].ID, queue[1].ID)
	}
}

func TestBuildExcludesSuspendedAndBuried(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 3)

	c := cards[0]
	c.Suspended = true
	testutil.SetCard(t, db, &c)
	c = cards[1]
	c.Buried = true
	testutil.SetCard(t, db, &c)

	b, _ := testBuilder(t, db, deck.UserID)
	queue, err := b.Build(deck)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != cards[2].ID {
		t.Errorf("queue should contain only the active card, got %d cards", len(queue))
	}
}
