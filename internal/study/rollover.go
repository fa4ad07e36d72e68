package study

import (
	"fmt"

	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/store"
)

// Rollover clears day-scoped state for one user at the day boundary: buried
// cards come back, daily counters reset, and live sessions are dropped so
// queues rebuild against the new day. Returns how many cards were unburied.
func Rollover(db store.Store, cache limits.Cache, registry *Registry, userID int64) (int64, error) {
	unburied, err := db.UnburyAll(userID)
	if err != nil {
		return 0, fmt.Errorf("study: rollover unbury: %w", err)
	}
	limits.NewTracker(cache, userID).Reset()
	registry.Clear()
	return unburied, nil
}
