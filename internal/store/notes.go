package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// CreateNote inserts a note and generates cardCount sibling cards in state
// new, positioned after the deck's existing new cards. The note and all its
// cards are created in one transaction.
func (db *DB) CreateNote(note *models.Note, deckID int64, cardCount int) ([]models.Card, error) {
	if cardCount < 1 {
		cardCount = 1
	}
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	fieldsJSON, _ := json.Marshal(note.Fields)

	var cards []models.Card
	err := db.WithTx(func(t *Tx) error {
		res, err := t.tx.Exec(`INSERT INTO notes (user_id, tags, fields) VALUES (?, ?, ?)`,
			note.UserID, string(tagsJSON), string(fieldsJSON))
		if err != nil {
			return fmt.Errorf("store: create note: %w", err)
		}
		noteID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		note.ID = noteID

		var next int
		err = t.tx.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM cards WHERE deck_id = ? AND state = 'new'`, deckID).Scan(&next)
		if err != nil {
			return fmt.Errorf("store: next position: %w", err)
		}

		for i := 0; i < cardCount; i++ {
			pos := next + i
			res, err := t.tx.Exec(`
				INSERT INTO cards (note_id, deck_id, state, due, position)
				VALUES (?, ?, 'new', ?, ?)
			`, noteID, deckID, pos, pos)
			if err != nil {
				return fmt.Errorf("store: create card: %w", err)
			}
			cardID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			cards = append(cards, models.Card{
				ID:       cardID,
				NoteID:   noteID,
				DeckID:   deckID,
				State:    models.StateNew,
				Due:      int64(pos),
				Ease:     2500,
				Position: pos,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func getNote(q querier, id int64) (*models.Note, error) {
	var (
		n      models.Note
		tags   string
		fields string
	)
	err := q.QueryRow(`SELECT id, user_id, tags, fields FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.UserID, &tags, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: note %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		n.Tags = []string{}
	}
	_ = json.Unmarshal([]byte(fields), &n.Fields)
	return &n, nil
}

// AllNotes returns every note owned by the user.
func (db *DB) AllNotes(userID int64) ([]models.Note, error) {
	rows, err := db.conn.Query(`SELECT id, user_id, tags, fields FROM notes WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: all notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var (
			n      models.Note
			tags   string
			fields string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &tags, &fields); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
			n.Tags = []string{}
		}
		_ = json.Unmarshal([]byte(fields), &n.Fields)
		out = append(out, n)
	}
	return out, rows.Err()
}

// NoteOf returns the note a card belongs to.
func (db *DB) NoteOf(card *models.Card) (*models.Note, error) {
	return getNote(db.conn, card.NoteID)
}

// NoteTags returns the note's tag set inside the transaction.
func (t *Tx) NoteTags(noteID int64) ([]string, error) {
	n, err := getNote(t.tx, noteID)
	if err != nil {
		return nil, err
	}
	return n.Tags, nil
}

// SetNoteTags replaces the note's tag set inside the transaction.
func (t *Tx) SetNoteTags(noteID int64, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	res, err := t.tx.Exec(`UPDATE notes SET tags = ? WHERE id = ?`, string(tagsJSON), noteID)
	if err != nil {
		return fmt.Errorf("store: set tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store: note %d: %w", noteID, apperr.ErrNotFound)
	}
	return nil
}
