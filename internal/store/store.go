// Package store provides SQLite-backed persistence for decks, notes, cards,
// and review logs.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS decks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	parent_id    INTEGER NOT NULL DEFAULT 0,
	name         TEXT NOT NULL,
	options_json TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_decks_user ON decks(user_id, parent_id);

CREATE TABLE IF NOT EXISTS notes (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	tags    TEXT NOT NULL DEFAULT '[]',
	fields  TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS cards (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id      INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	deck_id      INTEGER NOT NULL,
	home_deck_id INTEGER NOT NULL DEFAULT 0,
	state        TEXT NOT NULL DEFAULT 'new',
	due          INTEGER NOT NULL DEFAULT 0,
	interval     INTEGER NOT NULL DEFAULT 0,
	ease         INTEGER NOT NULL DEFAULT 2500,
	lapses       INTEGER NOT NULL DEFAULT 0,
	reps         INTEGER NOT NULL DEFAULT 0,
	position     INTEGER NOT NULL DEFAULT 0,
	flag         INTEGER NOT NULL DEFAULT 0 CHECK (flag BETWEEN 0 AND 7),
	suspended    INTEGER NOT NULL DEFAULT 0,
	buried       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cards_deck_state_due ON cards(deck_id, state, due);
CREATE INDEX IF NOT EXISTS idx_cards_note ON cards(note_id);

CREATE TABLE IF NOT EXISTS reviews (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	card_id     INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
	rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 4),
	interval    INTEGER NOT NULL CHECK (interval != 0),
	ease        INTEGER NOT NULL,
	time_ms     INTEGER NOT NULL CHECK (time_ms > 0),
	review_type TEXT NOT NULL DEFAULT 'review',
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_card ON reviews(card_id, id);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Tx groups store mutations into one atomic transaction.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error. Any error from fn aborts every write made through the Tx.
func (db *DB) WithTx(fn func(*Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx so read/write helpers can
// run inside or outside a transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store defines the persistence contract the study core consumes.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with fakes.
type Store interface {
	// Users.
	CreateUser(email string) (*models.User, error)
	GetUser(id int64) (*models.User, error)
	UserByEmail(email string) (*models.User, error)

	// Decks.
	CreateDeck(deck *models.Deck) error
	GetDeck(id int64) (*models.Deck, error)
	ListDecks(userID int64) ([]models.Deck, error)
	UpdateDeckOptions(id int64, optionsJSON []byte) error
	DescendantDeckIDs(userID, deckID int64) ([]int64, error)

	// Notes and cards.
	CreateNote(note *models.Note, deckID int64, cardCount int) ([]models.Card, error)
	AllNotes(userID int64) ([]models.Note, error)
	GetCard(id int64) (*models.Card, error)
	QueryCards(q CardQuery) ([]models.Card, error)
	NoteOf(card *models.Card) (*models.Note, error)
	SiblingsOf(card *models.Card) ([]models.Card, error)
	DueCounts(deckID int64, nowMS int64) (Counts, error)
	UnburyAll(userID int64) (int64, error)

	// Reviews.
	LatestReview(cardID int64) (*models.Review, error)
	CountReviews(cardID int64) (int, error)

	WithTx(fn func(*Tx) error) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
