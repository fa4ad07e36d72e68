// Package testutil provides shared test helpers for setting up databases and
// study fixtures.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Fixture creates a user, a deck with the given options, and one note with
// cardCount sibling cards in state new.
func Fixture(t *testing.T, db *store.DB, opts models.DeckOptions, cardCount int) (*models.User, *models.Deck, []models.Card) {
	t.Helper()
	user, err := db.CreateUser("learner@example.com")
	if err != nil {
		t.Fatal(err)
	}
	deck := &models.Deck{UserID: user.ID, Name: "Default", OptionsJSON: opts.JSON()}
	if err := db.CreateDeck(deck); err != nil {
		t.Fatal(err)
	}
	cards, err := db.CreateNote(&models.Note{UserID: user.ID}, deck.ID, cardCount)
	if err != nil {
		t.Fatal(err)
	}
	return user, deck, cards
}

// SetCard writes a card's scheduling fields directly, for arranging states
// that normally take many answers to reach.
func SetCard(t *testing.T, db *store.DB, card *models.Card) {
	t.Helper()
	if err := db.WithTx(func(tx *store.Tx) error { return tx.RestoreCard(card) }); err != nil {
		t.Fatal(err)
	}
}
