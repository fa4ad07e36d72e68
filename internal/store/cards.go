package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Card ordering for QueryCards.
const (
	OrderByDue      = "due"
	OrderByPosition = "position"
)

// CardQuery selects cards from one deck. Zero values disable a filter.
type CardQuery struct {
	DeckID     int64
	States     []models.State
	DueBefore  int64 // inclusive upper bound on due; 0 disables
	ActiveOnly bool  // exclude suspended and buried cards
	OrderBy    string
	Limit      int
}

// Counts summarizes how many cards are waiting in each queue tier.
type Counts struct {
	Learning int `json:"learning"`
	Review   int `json:"review"`
	New      int `json:"new"`
}

const cardColumns = `id, note_id, deck_id, home_deck_id, state, due, interval, ease, lapses, reps, position, flag, suspended, buried`

func scanCard(row interface{ Scan(...any) error }) (*models.Card, error) {
	var c models.Card
	err := row.Scan(&c.ID, &c.NoteID, &c.DeckID, &c.HomeDeckID, &c.State, &c.Due,
		&c.Interval, &c.Ease, &c.Lapses, &c.Reps, &c.Position, &c.Flag, &c.Suspended, &c.Buried)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func getCard(q querier, id int64) (*models.Card, error) {
	c, err := scanCard(q.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: card %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get card: %w", err)
	}
	return c, nil
}

// GetCard returns a card by id.
func (db *DB) GetCard(id int64) (*models.Card, error) {
	return getCard(db.conn, id)
}

// GetCard returns a card by id inside the transaction.
func (t *Tx) GetCard(id int64) (*models.Card, error) {
	return getCard(t.tx, id)
}

// QueryCards returns cards matching q with a deterministic total order:
// the requested column ascending, ties broken by ascending id.
func (db *DB) QueryCards(q CardQuery) ([]models.Card, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "deck_id = ?")
	args = append(args, q.DeckID)

	if len(q.States) > 0 {
		ph := make([]string, len(q.States))
		for i, s := range q.States {
			ph[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "state IN ("+strings.Join(ph, ", ")+")")
	}
	if q.DueBefore > 0 {
		where = append(where, "due <= ?")
		args = append(args, q.DueBefore)
	}
	if q.ActiveOnly {
		where = append(where, "suspended = 0 AND buried = 0")
	}

	order := OrderByDue
	if q.OrderBy == OrderByPosition {
		order = OrderByPosition
	}
	query := `SELECT ` + cardColumns + ` FROM cards WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + order + ` ASC, id ASC`
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query cards: %w", err)
	}
	defer rows.Close()

	var out []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SiblingsOf returns all other cards sharing the card's note.
func (db *DB) SiblingsOf(card *models.Card) ([]models.Card, error) {
	rows, err := db.conn.Query(`SELECT `+cardColumns+` FROM cards WHERE note_id = ? AND id != ? ORDER BY id ASC`,
		card.NoteID, card.ID)
	if err != nil {
		return nil, fmt.Errorf("store: siblings: %w", err)
	}
	defer rows.Close()

	var out []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateCardScheduling writes the card's mutable scheduling fields.
func (t *Tx) UpdateCardScheduling(card *models.Card) error {
	res, err := t.tx.Exec(`
		UPDATE cards
		SET state = ?, due = ?, interval = ?, ease = ?, lapses = ?, reps = ?, position = ?
		WHERE id = ?
	`, string(card.State), card.Due, card.Interval, card.Ease, card.Lapses, card.Reps, card.Position, card.ID)
	if err != nil {
		return fmt.Errorf("store: update card scheduling: %w", err)
	}
	return requireRow(res, card.ID)
}

// RestoreCard writes back every mutable field, used by undo.
func (t *Tx) RestoreCard(card *models.Card) error {
	res, err := t.tx.Exec(`
		UPDATE cards
		SET state = ?, due = ?, interval = ?, ease = ?, lapses = ?, reps = ?, position = ?,
		    flag = ?, suspended = ?, buried = ?
		WHERE id = ?
	`, string(card.State), card.Due, card.Interval, card.Ease, card.Lapses, card.Reps, card.Position,
		card.Flag, card.Suspended, card.Buried, card.ID)
	if err != nil {
		return fmt.Errorf("store: restore card: %w", err)
	}
	return requireRow(res, card.ID)
}

// SetCardSuspended flips the suspended flag.
func (t *Tx) SetCardSuspended(id int64, suspended bool) error {
	res, err := t.tx.Exec(`UPDATE cards SET suspended = ? WHERE id = ?`, suspended, id)
	if err != nil {
		return fmt.Errorf("store: set suspended: %w", err)
	}
	return requireRow(res, id)
}

// BurySiblings buries all active cards of the note except the given card in
// one bulk update and returns the number affected.
func (t *Tx) BurySiblings(noteID, exceptCardID int64) (int64, error) {
	res, err := t.tx.Exec(`
		UPDATE cards SET buried = 1
		WHERE note_id = ? AND id != ? AND suspended = 0 AND buried = 0
	`, noteID, exceptCardID)
	if err != nil {
		return 0, fmt.Errorf("store: bury siblings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: bury siblings rows: %w", err)
	}
	return n, nil
}

// UnburyAll clears the buried flag on every non-suspended card owned by the
// user, across all decks. Run at the day boundary.
func (db *DB) UnburyAll(userID int64) (int64, error) {
	res, err := db.conn.Exec(`
		UPDATE cards SET buried = 0
		WHERE buried = 1 AND suspended = 0
		  AND deck_id IN (SELECT id FROM decks WHERE user_id = ?)
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("store: unbury all: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: unbury rows: %w", err)
	}
	return n, nil
}

// DueCounts returns how many active cards are waiting in each queue tier for
// one deck at the given time.
func (db *DB) DueCounts(deckID int64, nowMS int64) (Counts, error) {
	var c Counts
	err := db.conn.QueryRow(`
		SELECT
			COUNT(CASE WHEN state IN ('learn', 'relearn') AND due <= ? THEN 1 END),
			COUNT(CASE WHEN state = 'review' AND due <= ? THEN 1 END),
			COUNT(CASE WHEN state = 'new' THEN 1 END)
		FROM cards
		WHERE deck_id = ? AND suspended = 0 AND buried = 0
	`, nowMS, nowMS, deckID).Scan(&c.Learning, &c.Review, &c.New)
	if err != nil {
		return Counts{}, fmt.Errorf("store: due counts: %w", err)
	}
	return c, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: card %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
