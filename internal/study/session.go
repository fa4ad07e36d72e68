package study

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// Session drives one learner's study flow over a single deck. Sessions live
// in memory only and do not survive a restart; all durable state is on the
// cards themselves.
type Session struct {
	ID string

	db        *store.DB
	user      *models.User
	deck      *models.Deck
	builder   *QueueBuilder
	processor *Processor
	clock     func() time.Time

	mu        sync.Mutex
	queue     []models.Card
	studied   int
	startedAt time.Time
	undo      *snapshot
}

// Stats summarizes a session for the learner.
type Stats struct {
	CardsStudied      int    `json:"cards_studied"`
	SessionDurationMS int64  `json:"session_duration_ms"`
	DeckName          string `json:"deck_name"`
}

// NewSession starts a session for user on deck.
func NewSession(db *store.DB, tracker *limits.Tracker, user *models.User, deck *models.Deck) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		db:        db,
		user:      user,
		deck:      deck,
		builder:   NewQueueBuilder(db, tracker),
		processor: NewProcessor(db, tracker),
		clock:     time.Now,
	}
	s.startedAt = s.clock()
	return s
}

// NextCard returns the next card to study, rebuilding the queue when it runs
// dry. A nil card means there is nothing left to study right now.
func (s *Session) NextCard() (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refillLocked(); err != nil {
		return nil, err
	}
	if len(s.queue) == 0 {
		return nil, nil
	}
	card := s.queue[0]
	s.queue = s.queue[1:]
	return &card, nil
}

// AnswerCard records an answer for the card and arms the undo slot with the
// card's pre-answer scheduling state.
func (s *Session) AnswerCard(cardID int64, rating models.Rating, timeMS int64) (*Result, error) {
	card, err := s.db.GetCard(cardID)
	if err != nil {
		return nil, err
	}
	before := *card

	res, err := s.processor.Process(card, s.deck, rating, timeMS)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.studied++
	s.undo = &snapshot{card: before, reviewID: res.Review.ID}
	s.mu.Unlock()
	return res, nil
}

// Statistics reports progress for this session.
func (s *Session) Statistics() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		CardsStudied:      s.studied,
		SessionDurationMS: s.clock().Sub(s.startedAt).Milliseconds(),
		DeckName:          s.deck.Name,
	}
}

// HasMoreCards reports whether anything is left to study, rebuilding the
// queue first if it is empty.
func (s *Session) HasMoreCards() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refillLocked(); err != nil {
		return false, err
	}
	return len(s.queue) > 0, nil
}

func (s *Session) refillLocked() error {
	if len(s.queue) > 0 {
		return nil
	}
	queue, err := s.builder.Build(s.deck)
	if err != nil {
		return fmt.Errorf("study: rebuild queue: %w", err)
	}
	s.queue = queue
	return nil
}
