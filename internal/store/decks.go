package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// CreateUser inserts a user row.
func (db *DB) CreateUser(email string) (*models.User, error) {
	res, err := db.conn.Exec(`INSERT INTO users (email) VALUES (?)`, email)
	if err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Email: email}, nil
}

// UserByEmail returns a user by email.
func (db *DB) UserByEmail(email string) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRow(`SELECT id, email FROM users WHERE email = ?`, email).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: user %q: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: user by email: %w", err)
	}
	return &u, nil
}

// GetUser returns a user by id.
func (db *DB) GetUser(id int64) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRow(`SELECT id, email FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: user %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// CreateDeck inserts a deck and fills in its ID.
func (db *DB) CreateDeck(deck *models.Deck) error {
	options := deck.OptionsJSON
	if len(options) == 0 {
		options = []byte("{}")
	}
	res, err := db.conn.Exec(`INSERT INTO decks (user_id, parent_id, name, options_json) VALUES (?, ?, ?, ?)`,
		deck.UserID, deck.ParentID, deck.Name, string(options))
	if err != nil {
		return fmt.Errorf("store: create deck: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	deck.ID = id
	return nil
}

// GetDeck returns a deck by id.
func (db *DB) GetDeck(id int64) (*models.Deck, error) {
	var (
		d       models.Deck
		options string
	)
	err := db.conn.QueryRow(`SELECT id, user_id, parent_id, name, options_json FROM decks WHERE id = ?`, id).
		Scan(&d.ID, &d.UserID, &d.ParentID, &d.Name, &options)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: deck %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get deck: %w", err)
	}
	d.OptionsJSON = []byte(options)
	return &d, nil
}

// ListDecks returns all of a user's decks ordered by name.
func (db *DB) ListDecks(userID int64) ([]models.Deck, error) {
	rows, err := db.conn.Query(`SELECT id, user_id, parent_id, name, options_json FROM decks WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list decks: %w", err)
	}
	defer rows.Close()

	var out []models.Deck
	for rows.Next() {
		var (
			d       models.Deck
			options string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.ParentID, &d.Name, &options); err != nil {
			return nil, err
		}
		d.OptionsJSON = []byte(options)
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDeckOptions replaces a deck's options JSON.
func (db *DB) UpdateDeckOptions(id int64, optionsJSON []byte) error {
	if len(optionsJSON) == 0 {
		optionsJSON = []byte("{}")
	}
	res, err := db.conn.Exec(`UPDATE decks SET options_json = ? WHERE id = ?`, string(optionsJSON), id)
	if err != nil {
		return fmt.Errorf("store: update deck options: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store: deck %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DescendantDeckIDs returns every deck below deckID in the user's tree,
// walking children breadth-first over a flat parent-id map. The root deck
// itself is not included.
func (db *DB) DescendantDeckIDs(userID, deckID int64) ([]int64, error) {
	decks, err := db.ListDecks(userID)
	if err != nil {
		return nil, err
	}
	children := make(map[int64][]int64, len(decks))
	for _, d := range decks {
		children[d.ParentID] = append(children[d.ParentID], d.ID)
	}

	var out []int64
	queue := append([]int64(nil), children[deckID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		queue = append(queue, children[id]...)
	}
	return out, nil
}
