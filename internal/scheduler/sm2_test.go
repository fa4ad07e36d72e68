package scheduler

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func testSM2() *SM2 {
	return &SM2{rng: rand.New(rand.NewSource(1))}
}

func defaults() models.DeckOptions {
	return models.DefaultDeckOptions()
}

func TestAnswerNew_Good(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateNew, Position: 3}

	got, err := s.Answer(card, models.RatingGood, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.State != models.StateReview {
		t.Errorf("state = %q, want review", got.State)
	}
	if got.Interval != 1 {
		t.Errorf("interval = %d, want 1", got.Interval)
	}
	if got.Ease != 2500 {
		t.Errorf("ease = %d, want 2500", got.Ease)
	}
	if want := testNow.UnixMilli() + msPerDay; got.Due != want {
		t.Errorf("due = %d, want %d", got.Due, want)
	}
	if got.Position != 0 {
		t.Errorf("position = %d, want 0", got.Position)
	}
	if got.Reps != 1 {
		t.Errorf("reps = %d, want 1", got.Reps)
	}
}

func TestAnswerNew_AgainAndHardEnterLearning(t *testing.T) {
	s := testSM2()
	for _, rating := range []models.Rating{models.RatingAgain, models.RatingHard} {
		card := models.Card{State: models.StateNew}
		got, err := s.Answer(card, rating, defaults(), testNow)
		if err != nil {
			t.Fatalf("Answer(%d): %v", rating, err)
		}
		if got.State != models.StateLearn {
			t.Errorf("rating %d: state = %q, want learn", rating, got.State)
		}
		// First learning step defaults to 1 minute.
		if want := testNow.UnixMilli() + msPerMinute; got.Due != want {
			t.Errorf("rating %d: due = %d, want %d", rating, got.Due, want)
		}
		if got.Position != 0 {
			t.Errorf("rating %d: position = %d, want 0", rating, got.Position)
		}
	}
}

func TestAnswerNew_Easy(t *testing.T) {
	s := testSM2()
	got, err := s.Answer(models.Card{State: models.StateNew}, models.RatingEasy, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.State != models.StateReview {
		t.Errorf("state = %q, want review", got.State)
	}
	if got.Interval != 4 {
		t.Errorf("interval = %d, want 4", got.Interval)
	}
	if got.Ease != 2650 {
		t.Errorf("ease = %d, want 2650", got.Ease)
	}
}

func TestAnswerLearning_GoodAdvancesStep(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateLearn, Position: 0}

	got, err := s.Answer(card, models.RatingGood, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.State != models.StateLearn {
		t.Errorf("state = %q, want learn", got.State)
	}
	if got.Position != 1 {
		t.Errorf("position = %d, want 1", got.Position)
	}
	// Second default step is 10 minutes.
	if want := testNow.UnixMilli() + 10*msPerMinute; got.Due != want {
		t.Errorf("due = %d, want %d", got.Due, want)
	}
}

func TestAnswerLearning_GoodPastLastStepGraduates(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateLearn, Position: 1}

	got, err := s.Answer(card, models.RatingGood, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.State != models.StateReview {
		t.Errorf("state = %q, want review", got.State)
	}
	if got.Interval != 1 {
		t.Errorf("interval = %d, want 1", got.Interval)
	}
	if got.Ease != 2500 {
		t.Errorf("ease = %d, want 2500", got.Ease)
	}
}

func TestAnswerLearning_HardStepsBack(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateLearn, Position: 1}

	got, err := s.Answer(card, models.RatingHard, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Position != 0 {
		t.Errorf("position = %d, want 0", got.Position)
	}
	if want := testNow.UnixMilli() + msPerMinute; got.Due != want {
		t.Errorf("due = %d, want %d", got.Due, want)
	}

	// Hard at step 0 floors at 0.
	got, _ = s.Answer(models.Card{State: models.StateLearn, Position: 0}, models.RatingHard, defaults(), testNow)
	if got.Position != 0 {
		t.Errorf("position at floor = %d, want 0", got.Position)
	}
}

func TestAnswerLearning_AgainResetsToFirstStep(t *testing.T) {
	s := testSM2()
	got, err := s.Answer(models.Card{State: models.StateLearn, Position: 1}, models.RatingAgain, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Position != 0 {
		t.Errorf("position = %d, want 0", got.Position)
	}
	if got.State != models.StateLearn {
		t.Errorf("state = %q, want learn", got.State)
	}
}

func TestAnswerLearning_EasyGraduatesFromAnyStep(t *testing.T) {
	s := testSM2()
	got, err := s.Answer(models.Card{State: models.StateLearn, Position: 0}, models.RatingEasy, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.State != models.StateReview {
		t.Errorf("state = %q, want review", got.State)
	}
	if got.Interval != 4 {
		t.Errorf("interval = %d, want 4", got.Interval)
	}
	if got.Ease != 2650 {
		t.Errorf("ease = %d, want 2650", got.Ease)
	}
}

func TestAnswerReview_GoodFuzzedWithinBounds(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateReview, Interval: 10, Ease: 2500}

	// Raw interval is 10 * 2.5 * 1.0 = 25 days; fuzz keeps it within ±25%
	// and monotonicity keeps it >= 11.
	for i := 0; i < 200; i++ {
		got, err := s.Answer(card, models.RatingGood, defaults(), testNow)
		if err != nil {
			t.Fatalf("Answer: %v", err)
		}
		if got.Interval < 19 || got.Interval > 31 {
			t.Fatalf("interval = %d, want within [19,31]", got.Interval)
		}
		if got.Interval < card.Interval+1 {
			t.Fatalf("interval = %d, want >= %d", got.Interval, card.Interval+1)
		}
		if got.Ease != 2500 {
			t.Fatalf("ease = %d, want unchanged 2500", got.Ease)
		}
	}
}

func TestAnswerReview_HardNoFuzz(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateReview, Interval: 10, Ease: 2500}

	got, err := s.Answer(card, models.RatingHard, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.Interval != 12 {
		t.Errorf("interval = %d, want 12", got.Interval)
	}
	if got.Ease != 2350 {
		t.Errorf("ease = %d, want 2350", got.Ease)
	}
	if want := testNow.UnixMilli() + 12*msPerDay; got.Due != want {
		t.Errorf("due = %d, want %d", got.Due, want)
	}
}

func TestAnswerReview_AgainLapses(t *testing.T) {
	s := testSM2()
	opts := defaults()
	opts.LapseMultiplier = 0.5
	card := models.Card{State: models.StateReview, Interval: 10, Ease: 2500, Lapses: 2}

	got, err := s.Answer(card, models.RatingAgain, opts, testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.State != models.StateRelearn {
		t.Errorf("state = %q, want relearn", got.State)
	}
	if got.Interval != 5 {
		t.Errorf("interval = %d, want 5", got.Interval)
	}
	if got.Ease != 2300 {
		t.Errorf("ease = %d, want 2300", got.Ease)
	}
	if got.Lapses != 3 {
		t.Errorf("lapses = %d, want 3", got.Lapses)
	}
	// First relearn step defaults to 10 minutes.
	if want := testNow.UnixMilli() + 10*msPerMinute; got.Due != want {
		t.Errorf("due = %d, want %d", got.Due, want)
	}
}

func TestAnswerReview_AgainZeroLapseMultiplier(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateReview, Interval: 100, Ease: 2500}

	got, _ := s.Answer(card, models.RatingAgain, defaults(), testNow)
	// Default lapse multiplier is 0.0 so the minimum lapse interval wins.
	if got.Interval != 1 {
		t.Errorf("interval = %d, want 1", got.Interval)
	}
}

func TestAnswerReview_EaseFloor(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateReview, Interval: 5, Ease: 1350}

	got, _ := s.Answer(card, models.RatingAgain, defaults(), testNow)
	if got.Ease != 1300 {
		t.Errorf("ease = %d, want floor 1300", got.Ease)
	}

	got, _ = s.Answer(models.Card{State: models.StateReview, Interval: 5, Ease: 1400}, models.RatingHard, defaults(), testNow)
	if got.Ease != 1300 {
		t.Errorf("ease after hard = %d, want floor 1300", got.Ease)
	}
}

func TestAnswerReview_MaximumIntervalClamp(t *testing.T) {
	s := testSM2()
	opts := defaults()
	opts.MaximumInterval = 30
	card := models.Card{State: models.StateReview, Interval: 28, Ease: 2500}

	for i := 0; i < 50; i++ {
		got, _ := s.Answer(card, models.RatingEasy, opts, testNow)
		if got.Interval > 30 {
			t.Fatalf("interval = %d, want <= 30", got.Interval)
		}
	}
}

func TestAnswerRelearning_GoodPastLastStepRestoresInterval(t *testing.T) {
	s := testSM2()
	card := models.Card{State: models.StateRelearn, Interval: 7, Ease: 2300, Position: 0}

	got, err := s.Answer(card, models.RatingGood, defaults(), testNow)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got.State != models.StateReview {
		t.Errorf("state = %q, want review", got.State)
	}
	if got.Interval != 7 {
		t.Errorf("interval = %d, want untouched 7", got.Interval)
	}
	if want := testNow.UnixMilli() + 7*msPerDay; got.Due != want {
		t.Errorf("due = %d, want %d", got.Due, want)
	}
}

func TestAnswerRelearning_EasyReturnsImmediately(t *testing.T) {
	s := testSM2()
	opts := defaults()
	opts.RelearnSteps = []float64{10, 20}
	card := models.Card{State: models.StateRelearn, Interval: 7, Position: 0}

	got, _ := s.Answer(card, models.RatingEasy, opts, testNow)
	if got.State != models.StateReview {
		t.Errorf("state = %q, want review", got.State)
	}
	if got.Interval != 7 {
		t.Errorf("interval = %d, want 7", got.Interval)
	}
}

func TestAnswerRelearning_AgainAndHard(t *testing.T) {
	s := testSM2()
	opts := defaults()
	opts.RelearnSteps = []float64{10, 20}

	got, _ := s.Answer(models.Card{State: models.StateRelearn, Position: 1}, models.RatingAgain, opts, testNow)
	if got.Position != 0 || got.State != models.StateRelearn {
		t.Errorf("again: position = %d state = %q, want 0/relearn", got.Position, got.State)
	}

	got, _ = s.Answer(models.Card{State: models.StateRelearn, Position: 1}, models.RatingHard, opts, testNow)
	if got.Position != 0 {
		t.Errorf("hard: position = %d, want 0", got.Position)
	}
}

func TestAnswer_RepsIncrementOnEveryPath(t *testing.T) {
	s := testSM2()
	states := []models.State{models.StateNew, models.StateLearn, models.StateReview, models.StateRelearn}
	ratings := []models.Rating{models.RatingAgain, models.RatingHard, models.RatingGood, models.RatingEasy}

	for _, state := range states {
		for _, rating := range ratings {
			card := models.Card{State: state, Interval: 5, Ease: 2500, Reps: 7}
			got, err := s.Answer(card, rating, defaults(), testNow)
			if err != nil {
				t.Fatalf("Answer(%s, %d): %v", state, rating, err)
			}
			if got.Reps != 8 {
				t.Errorf("Answer(%s, %d): reps = %d, want 8", state, rating, got.Reps)
			}
		}
	}
}

func TestAnswer_InvalidRating(t *testing.T) {
	s := testSM2()
	for _, rating := range []models.Rating{0, 5, -1} {
		_, err := s.Answer(models.Card{State: models.StateNew}, rating, defaults(), testNow)
		if !errors.Is(err, apperr.ErrInvalidRating) {
			t.Errorf("rating %d: err = %v, want ErrInvalidRating", rating, err)
		}
	}
}

func TestAnswer_InvalidState(t *testing.T) {
	s := testSM2()
	_, err := s.Answer(models.Card{State: "cram"}, models.RatingGood, defaults(), testNow)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestForDeck_UnknownFallsBackToSM2(t *testing.T) {
	opts := defaults()
	opts.Scheduler = "fsrs"
	if _, ok := ForDeck(opts).(*SM2); !ok {
		t.Error("unknown scheduler should fall back to SM-2")
	}
}
