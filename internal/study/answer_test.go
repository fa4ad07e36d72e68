package study

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
)

var answerNow = time.UnixMilli(1_700_000_000_000)

func testProcessor(t *testing.T, db *store.DB, userID int64) (*Processor, *limits.Tracker) {
	t.Helper()
	tracker := limits.NewTracker(limits.NewMemoryCache(), userID)
	p := NewProcessor(db, tracker)
	p.clock = func() time.Time { return answerNow }
	return p, tracker
}

func TestProcessNewCardGood(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 1)
	p, tracker := testProcessor(t, db, deck.UserID)

	res, err := p.Process(&cards[0], deck, models.RatingGood, 4_000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if res.Card.State != models.StateReview || res.Card.Interval != 1 {
		t.Errorf("card = state %q interval %d, want review/1", res.Card.State, res.Card.Interval)
	}
	if res.Review.Type != models.ReviewTypeLearn {
		t.Errorf("review type = %q, want learn (classified by pre-answer state)", res.Review.Type)
	}
	if res.Review.Interval != 1 || res.Review.Ease != 2500 {
		t.Errorf("review = interval %d ease %d", res.Review.Interval, res.Review.Ease)
	}

	// The card and review must both be persisted.
	got, err := db.GetCard(cards[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StateReview || got.Reps != 1 {
		t.Errorf("persisted card = %+v", got)
	}
	if n, _ := db.CountReviews(cards[0].ID); n != 1 {
		t.Errorf("review count = %d, want 1", n)
	}

	if tracker.NewCount(deck.ID) != 1 {
		t.Errorf("new counter = %d, want 1", tracker.NewCount(deck.ID))
	}
	if tracker.ReviewCount(deck.ID) != 1 {
		t.Errorf("review counter = %d, want 1", tracker.ReviewCount(deck.ID))
	}
}

func TestProcessInvalidInputRejectedBeforeMutation(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 1)
	p, tracker := testProcessor(t, db, deck.UserID)

	if _, err := p.Process(&cards[0], deck, models.Rating(5), 1_000); !errors.Is(err, apperr.ErrInvalidRating) {
		t.Errorf("rating 5 err = %v, want ErrInvalidRating", err)
	}
	if _, err := p.Process(&cards[0], deck, models.RatingGood, 0); !errors.Is(err, apperr.ErrInvalidTime) {
		t.Errorf("time 0 err = %v, want ErrInvalidTime", err)
	}
	if _, err := p.Process(&cards[0], deck, models.RatingGood, -50); !errors.Is(err, apperr.ErrInvalidTime) {
		t.Errorf("negative time err = %v, want ErrInvalidTime", err)
	}

	got, _ := db.GetCard(cards[0].ID)
	if got.State != models.StateNew || got.Reps != 0 {
		t.Errorf("card mutated by rejected input: %+v", got)
	}
	if n, _ := db.CountReviews(cards[0].ID); n != 0 {
		t.Errorf("review rows = %d, want 0", n)
	}
	if tracker.NewCount(deck.ID) != 0 || tracker.ReviewCount(deck.ID) != 0 {
		t.Error("counters must not move on rejected input")
	}
}

func TestProcessLearningStepLogsNegativeInterval(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 1)
	p, _ := testProcessor(t, db, deck.UserID)

	// Again on a new card enters learning at the first step (1 minute). The
	// card has no day interval yet, so the review row records the step delay
	// as negative seconds.
	res, err := p.Process(&cards[0], deck, models.RatingAgain, 2_000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Card.State != models.StateLearn || res.Card.Interval != 0 {
		t.Errorf("card = state %q interval %d, want learn/0", res.Card.State, res.Card.Interval)
	}
	if res.Review.Interval != -60 {
		t.Errorf("review interval = %d, want -60 (one minute step)", res.Review.Interval)
	}
}

func TestProcessLapseTriggersLeech(t *testing.T) {
	db := testutil.TestDB(t)
	opts := models.DefaultDeckOptions()
	opts.LeechThreshold = 8
	opts.LeechAction = models.LeechTagAndSuspend
	_, deck, cards := testutil.Fixture(t, db, opts, 1)
	p, _ := testProcessor(t, db, deck.UserID)

	card := cards[0]
	card.State = models.StateReview
	card.Interval = 10
	card.Ease = 2500
	card.Lapses = 7
	card.Due = answerNow.UnixMilli()
	testutil.SetCard(t, db, &card)

	res, err := p.Process(&card, deck, models.RatingAgain, 3_000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.LeechDetected {
		t.Fatal("eighth lapse should trip the leech detector")
	}
	if res.Card.Lapses != 8 || res.Card.State != models.StateRelearn {
		t.Errorf("card = %+v", res.Card)
	}

	got, _ := db.GetCard(card.ID)
	if !got.Suspended {
		t.Error("tag_and_suspend should suspend the card")
	}
	note, err := db.NoteOf(got)
	if err != nil {
		t.Fatal(err)
	}
	leeches := 0
	for _, tag := range note.Tags {
		if tag == "leech" {
			leeches++
		}
	}
	if leeches != 1 {
		t.Errorf("leech tag count = %d, want exactly 1", leeches)
	}
}

func TestProcessLeechTagIsIdempotent(t *testing.T) {
	db := testutil.TestDB(t)
	opts := models.DefaultDeckOptions()
	opts.LeechThreshold = 1
	opts.LeechAction = models.LeechTagOnly
	_, deck, cards := testutil.Fixture(t, db, opts, 1)
	p, _ := testProcessor(t, db, deck.UserID)

	card := cards[0]
	card.State = models.StateReview
	card.Interval = 5
	card.Due = answerNow.UnixMilli()
	testutil.SetCard(t, db, &card)

	for i := 0; i < 2; i++ {
		got, err := db.GetCard(card.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := p.Process(got, deck, models.RatingAgain, 1_000); err != nil {
			t.Fatalf("Process %d: %v", i, err)
		}
	}

	got, _ := db.GetCard(card.ID)
	note, _ := db.NoteOf(got)
	if len(note.Tags) != 1 || note.Tags[0] != "leech" {
		t.Errorf("tags = %v, want [leech]", note.Tags)
	}
	if got.Suspended {
		t.Error("tag_only must not suspend")
	}
}

func TestProcessBuriesSiblings(t *testing.T) {
	db := testutil.TestDB(t)
	opts := models.DefaultDeckOptions()
	opts.BuryReviews = true
	_, deck, cards := testutil.Fixture(t, db, opts, 3)
	p, _ := testProcessor(t, db, deck.UserID)

	card := cards[0]
	card.State = models.StateReview
	card.Interval = 4
	card.Due = answerNow.UnixMilli()
	testutil.SetCard(t, db, &card)

	res, err := p.Process(&card, deck, models.RatingGood, 2_500)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.SiblingsBuried != 2 {
		t.Errorf("buried = %d, want 2", res.SiblingsBuried)
	}

	self, _ := db.GetCard(card.ID)
	if self.Buried {
		t.Error("the answered card must not bury itself")
	}
	for _, sib := range cards[1:] {
		got, _ := db.GetCard(sib.ID)
		if !got.Buried {
			t.Errorf("sibling %d not buried", sib.ID)
		}
	}
}

func TestProcessNoBuryWhenPolicyOff(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 2)
	p, _ := testProcessor(t, db, deck.UserID)

	res, err := p.Process(&cards[0], deck, models.RatingGood, 1_000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.SiblingsBuried != 0 {
		t.Errorf("buried = %d, want 0", res.SiblingsBuried)
	}
}

func TestProcessReviewHardExactInterval(t *testing.T) {
	db := testutil.TestDB(t)
	_, deck, cards := testutil.Fixture(t, db, models.DefaultDeckOptions(), 1)
	p, tracker := testProcessor(t, db, deck.UserID)

	card := cards[0]
	card.State = models.StateReview
	card.Interval = 10
	card.Ease = 2500
	card.Due = answerNow.UnixMilli()
	testutil.SetCard(t, db, &card)

	res, err := p.Process(&card, deck, models.RatingHard, 6_000)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Card.Interval != 12 || res.Card.Ease != 2350 {
		t.Errorf("card = interval %d ease %d, want 12/2350", res.Card.Interval, res.Card.Ease)
	}
	if res.Review.Type != models.ReviewTypeReview {
		t.Errorf("review type = %q, want review", res.Review.Type)
	}
	if tracker.NewCount(deck.ID) != 0 {
		t.Error("review answer must not touch the new counter")
	}
	if tracker.ReviewCount(deck.ID) != 1 {
		t.Errorf("review counter = %d, want 1", tracker.ReviewCount(deck.ID))
	}
}
