package study

import (
	"fmt"
	"sync"

	"github.com/starford/raido/internal/models"
)

// Registry holds live sessions, one per (user, deck) pair. Sessions are
// in-memory only; dropping one just forgets queue position and stats.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func sessionKey(userID, deckID int64) string {
	return fmt.Sprintf("%d:%d", userID, deckID)
}

// GetOrCreate returns the live session for the pair, creating one via create
// if none exists.
func (r *Registry) GetOrCreate(user *models.User, deck *models.Deck, create func() *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey(user.ID, deck.ID)
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := create()
	r.sessions[key] = s
	return s
}

// Get returns the live session for the pair, if any.
func (r *Registry) Get(userID, deckID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey(userID, deckID)]
	return s, ok
}

// Remove drops the session for the pair.
func (r *Registry) Remove(userID, deckID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey(userID, deckID))
}

// Clear drops every session. Run at the day boundary so stale queues do not
// leak yesterday's ordering into today.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*Session)
}
