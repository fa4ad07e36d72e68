package store

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixture creates a user, a deck, and a note with n cards.
func fixture(t *testing.T, db *DB, n int) (*models.User, *models.Deck, []models.Card) {
	t.Helper()
	user, err := db.CreateUser("learner@example.com")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	deck := &models.Deck{UserID: user.ID, Name: "Default"}
	if err := db.CreateDeck(deck); err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}
	cards, err := db.CreateNote(&models.Note{UserID: user.ID, Tags: []string{}}, deck.ID, n)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	return user, deck, cards
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"users", "decks", "notes", "cards", "reviews"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestCreateNoteGeneratesSiblingCards(t *testing.T) {
	db := testDB(t)
	_, deck, cards := fixture(t, db, 3)

	if len(cards) != 3 {
		t.Fatalf("len(cards) = %d, want 3", len(cards))
	}
	for i, c := range cards {
		if c.State != models.StateNew {
			t.Errorf("card %d state = %q, want new", i, c.State)
		}
		if c.Position != i {
			t.Errorf("card %d position = %d, want %d", i, c.Position, i)
		}
	}

	// A second note continues the position sequence.
	more, err := db.CreateNote(&models.Note{UserID: 1}, deck.ID, 2)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if more[0].Position != 3 || more[1].Position != 4 {
		t.Errorf("positions = %d,%d, want 3,4", more[0].Position, more[1].Position)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := testDB(t)
	_, _, cards := fixture(t, db, 1)
	card := cards[0]

	wantErr := os.ErrInvalid
	err := db.WithTx(func(tx *Tx) error {
		card.Reps = 99
		if err := tx.UpdateCardScheduling(&card); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("WithTx err = %v, want %v", err, wantErr)
	}

	got, err := db.GetCard(card.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.Reps != 0 {
		t.Errorf("reps = %d after rollback, want 0", got.Reps)
	}
}
