// Package models defines the domain types for Raido.
package models

// State is the scheduling state of a card.
type State string

// Card states.
const (
	StateNew     State = "new"
	StateLearn   State = "learn"
	StateReview  State = "review"
	StateRelearn State = "relearn"
)

// Valid reports whether s is one of the four known states.
func (s State) Valid() bool {
	switch s {
	case StateNew, StateLearn, StateReview, StateRelearn:
		return true
	}
	return false
}

// Rating is the answer grade submitted by the learner.
type Rating int

// Answer ratings.
const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// Valid reports whether r is within the 1..4 range.
func (r Rating) Valid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// ReviewType classifies a review log row by the state the card was
// answered from.
type ReviewType string

// Review types.
const (
	ReviewTypeLearn   ReviewType = "learn"
	ReviewTypeReview  ReviewType = "review"
	ReviewTypeRelearn ReviewType = "relearn"
	ReviewTypeCram    ReviewType = "cram"
)

// Card is one schedulable unit derived from a note.
//
// Due holds milliseconds since epoch for learn/relearn/review cards and the
// ordinal queue position for new cards. Interval is whole days (0 until the
// card graduates). Ease is stored in permille (2500 = 2.5x).
type Card struct {
	ID         int64 `json:"id"`
	NoteID     int64 `json:"note_id"`
	DeckID     int64 `json:"deck_id"`
	HomeDeckID int64 `json:"home_deck_id,omitempty"` // 0 when the card is in its home deck
	State      State `json:"state"`
	Due        int64 `json:"due"`
	Interval   int   `json:"interval"`
	Ease       int   `json:"ease"`
	Lapses     int   `json:"lapses"`
	Reps       int   `json:"reps"`
	Position   int   `json:"position"`
	Flag       int   `json:"flag"`
	Suspended  bool  `json:"suspended"`
	Buried     bool  `json:"buried"`
}

// Leech reports whether the card has lapsed at least threshold times.
func (c *Card) Leech(threshold int) bool {
	return c.Lapses >= threshold
}

// Review is one append-only log row per answer.
type Review struct {
	ID        int64      `json:"id"`
	CardID    int64      `json:"card_id"`
	Rating    Rating     `json:"rating"`
	Interval  int        `json:"interval"`
	Ease      int        `json:"ease"`
	TimeMS    int64      `json:"time_ms"`
	Type      ReviewType `json:"type"`
	CreatedAt int64      `json:"created_at"` // milliseconds since epoch
}

// Deck owns scheduling policy. Decks form a tree via ParentID (0 = root).
type Deck struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	ParentID    int64  `json:"parent_id,omitempty"`
	Name        string `json:"name"`
	OptionsJSON []byte `json:"-"`
}

// Options parses the deck's policy bag, falling back to defaults for any
// missing or malformed key.
func (d *Deck) Options() DeckOptions {
	return ParseDeckOptions(d.OptionsJSON)
}

// Note is the source a card is generated from. Fields hold the template
// inputs; Tags are shared by all sibling cards.
type Note struct {
	ID     int64             `json:"id"`
	UserID int64             `json:"user_id"`
	Tags   []string          `json:"tags"`
	Fields map[string]string `json:"fields,omitempty"`
}

// User identifies a learner. Scheduling state is scoped per user.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}
