package api

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/media"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/presets"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/study"
)

// Service coordinates the store, session registry, presets, and media for
// the API and MCP layers. It is scoped to one user.
type Service struct {
	db       *store.DB
	cache    limits.Cache
	registry *study.Registry
	presets  *presets.Store
	media    media.Provider
	broker   *sse.Broker
	user     *models.User
}

// NewService creates a new study service. broker may be nil when no SSE
// clients are served (e.g. MCP-only mode); ps may be nil when presets are
// disabled.
func NewService(db *store.DB, cache limits.Cache, registry *study.Registry, ps *presets.Store, mp media.Provider, broker *sse.Broker, user *models.User) *Service {
	return &Service{db: db, cache: cache, registry: registry, presets: ps, media: mp, broker: broker, user: user}
}

// DeckSummary is a deck plus its queue counts, both for the deck alone and
// rolled up over its subtree.
type DeckSummary struct {
	ID       int64        `json:"id"`
	ParentID int64        `json:"parent_id,omitempty"`
	Name     string       `json:"name"`
	Counts   store.Counts `json:"counts"`
	Subtree  store.Counts `json:"subtree_counts"`
}

func (s *Service) tracker() *limits.Tracker {
	return limits.NewTracker(s.cache, s.user.ID)
}

func (s *Service) session(deck *models.Deck) *study.Session {
	return s.registry.GetOrCreate(s.user, deck, func() *study.Session {
		return study.NewSession(s.db, s.tracker(), s.user, deck)
	})
}

// ListDecks returns every deck with its due counts, including subtree
// rollups for parents.
func (s *Service) ListDecks(nowMS int64) ([]DeckSummary, error) {
	decks, err := s.db.ListDecks(s.user.ID)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]store.Counts, len(decks))
	for _, d := range decks {
		c, err := s.db.DueCounts(d.ID, nowMS)
		if err != nil {
			return nil, err
		}
		counts[d.ID] = c
	}

	out := make([]DeckSummary, 0, len(decks))
	for _, d := range decks {
		subtree := counts[d.ID]
		descendants, err := s.db.DescendantDeckIDs(s.user.ID, d.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range descendants {
			c := counts[id]
			subtree.Learning += c.Learning
			subtree.Review += c.Review
			subtree.New += c.New
		}
		out = append(out, DeckSummary{
			ID:       d.ID,
			ParentID: d.ParentID,
			Name:     d.Name,
			Counts:   counts[d.ID],
			Subtree:  subtree,
		})
	}
	return out, nil
}

// CreateDeck creates a deck, optionally seeding its options from a named
// preset.
func (s *Service) CreateDeck(name string, parentID int64, presetName string) (*models.Deck, error) {
	deck := &models.Deck{UserID: s.user.ID, ParentID: parentID, Name: name}
	if presetName != "" {
		var (
			p  presets.Preset
			ok bool
		)
		if s.presets != nil {
			p, ok = s.presets.Get(presetName)
		}
		if !ok {
			return nil, fmt.Errorf("preset %q: %w", presetName, apperr.ErrNotFound)
		}
		deck.OptionsJSON = p.Options.JSON()
	}
	if err := s.db.CreateDeck(deck); err != nil {
		return nil, err
	}
	return deck, nil
}

// GetDeck returns a deck owned by the service user.
func (s *Service) GetDeck(id int64) (*models.Deck, error) {
	deck, err := s.db.GetDeck(id)
	if err != nil {
		return nil, err
	}
	if deck.UserID != s.user.ID {
		return nil, fmt.Errorf("deck %d: %w", id, apperr.ErrNotFound)
	}
	return deck, nil
}

// UpdateDeckOptions replaces a deck's scheduling options.
func (s *Service) UpdateDeckOptions(id int64, optionsJSON []byte) (*models.Deck, error) {
	if _, err := s.GetDeck(id); err != nil {
		return nil, err
	}
	if err := s.db.UpdateDeckOptions(id, optionsJSON); err != nil {
		return nil, err
	}
	return s.db.GetDeck(id)
}

// NextCard returns the next card to study in the deck, with its note, or a
// nil card when the queue is exhausted.
func (s *Service) NextCard(deckID int64) (*models.Card, *models.Note, error) {
	deck, err := s.GetDeck(deckID)
	if err != nil {
		return nil, nil, err
	}
	card, err := s.session(deck).NextCard()
	if err != nil || card == nil {
		return nil, nil, err
	}
	note, err := s.db.NoteOf(card)
	if err != nil {
		return nil, nil, err
	}
	return card, note, nil
}

// Answer records an answer against the deck's session and publishes the
// matching study events.
func (s *Service) Answer(deckID, cardID int64, rating models.Rating, timeMS int64) (*study.Result, error) {
	deck, err := s.GetDeck(deckID)
	if err != nil {
		return nil, err
	}
	res, err := s.session(deck).AnswerCard(cardID, rating, timeMS)
	if err != nil {
		return nil, err
	}
	if s.broker != nil {
		s.broker.PublishStudyEvent("answered", deckID, cardID)
		if res.LeechDetected {
			s.broker.PublishStudyEvent("leeched", deckID, cardID)
		}
	}
	return res, nil
}

// Undo reverts the deck session's most recent answer.
func (s *Service) Undo(deckID int64) (*models.Card, error) {
	deck, err := s.GetDeck(deckID)
	if err != nil {
		return nil, err
	}
	card, err := s.session(deck).Undo()
	if err != nil {
		return nil, err
	}
	if s.broker != nil {
		s.broker.PublishStudyEvent("undone", deckID, card.ID)
	}
	return card, nil
}

// SessionStats returns the deck session's statistics plus the deck's current
// due counts.
func (s *Service) SessionStats(deckID, nowMS int64) (study.Stats, store.Counts, bool, error) {
	deck, err := s.GetDeck(deckID)
	if err != nil {
		return study.Stats{}, store.Counts{}, false, err
	}
	sess := s.session(deck)
	counts, err := s.db.DueCounts(deckID, nowMS)
	if err != nil {
		return study.Stats{}, store.Counts{}, false, err
	}
	more, err := sess.HasMoreCards()
	if err != nil {
		return study.Stats{}, store.Counts{}, false, err
	}
	return sess.Statistics(), counts, more, nil
}

// CompleteSession ends the deck's session and publishes its final stats.
func (s *Service) CompleteSession(deckID int64) (study.Stats, error) {
	deck, err := s.GetDeck(deckID)
	if err != nil {
		return study.Stats{}, err
	}
	sess, ok := s.registry.Get(s.user.ID, deck.ID)
	if !ok {
		return study.Stats{}, fmt.Errorf("no session for deck %d: %w", deckID, apperr.ErrNotFound)
	}
	stats := sess.Statistics()
	s.registry.Remove(s.user.ID, deck.ID)
	if s.broker != nil {
		s.broker.Publish(sse.Event{Type: "session.completed", Data: map[string]any{
			"deck_id":       deckID,
			"cards_studied": stats.CardsStudied,
		}})
	}
	return stats, nil
}

// CreateNote creates a note with its sibling cards in the deck.
func (s *Service) CreateNote(deckID int64, fields map[string]string, tags []string, cardCount int) (*models.Note, []models.Card, error) {
	if _, err := s.GetDeck(deckID); err != nil {
		return nil, nil, err
	}
	note := &models.Note{UserID: s.user.ID, Tags: tags, Fields: fields}
	cards, err := s.db.CreateNote(note, deckID, cardCount)
	if err != nil {
		return nil, nil, err
	}
	return note, cards, nil
}

// Presets returns the loaded deck-option presets.
func (s *Service) Presets() []presets.Preset {
	if s.presets == nil {
		return nil
	}
	return s.presets.List()
}

// Rollover runs the day-boundary maintenance for the user and returns how
// many cards were unburied.
func (s *Service) Rollover() (int64, error) {
	n, err := study.Rollover(s.db, s.cache, s.registry, s.user.ID)
	if err != nil {
		return 0, err
	}
	if s.broker != nil {
		s.broker.Publish(sse.Event{Type: "day.rollover", Data: map[string]any{"unburied": n}})
	}
	return n, nil
}

// MediaCleanup sweeps media files no note field references anymore and
// returns how many were removed.
func (s *Service) MediaCleanup() (int, error) {
	notes, err := s.db.AllNotes(s.user.ID)
	if err != nil {
		return 0, err
	}
	inUse := func(name string) bool {
		for _, n := range notes {
			for _, v := range n.Fields {
				if strings.Contains(v, name) {
					return true
				}
			}
		}
		return false
	}
	return media.CleanupUnused(s.media, inUse, slog.Default()), nil
}
