package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// InsertReview appends one immutable review log row and fills in its ID.
func (t *Tx) InsertReview(r *models.Review) error {
	res, err := t.tx.Exec(`
		INSERT INTO reviews (card_id, rating, interval, ease, time_ms, review_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.CardID, int(r.Rating), r.Interval, r.Ease, r.TimeMS, string(r.Type), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: review id: %w", err)
	}
	r.ID = id
	return nil
}

// DeleteReview removes one review row. Used only by undo, which deletes the
// newest row for a card.
func (t *Tx) DeleteReview(id int64) error {
	res, err := t.tx.Exec(`DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store: review %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

const reviewColumns = `id, card_id, rating, interval, ease, time_ms, review_type, created_at`

func scanReview(row interface{ Scan(...any) error }) (*models.Review, error) {
	var r models.Review
	err := row.Scan(&r.ID, &r.CardID, &r.Rating, &r.Interval, &r.Ease, &r.TimeMS, &r.Type, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func latestReview(q querier, cardID int64) (*models.Review, error) {
	r, err := scanReview(q.QueryRow(
		`SELECT `+reviewColumns+` FROM reviews WHERE card_id = ? ORDER BY id DESC LIMIT 1`, cardID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: latest review for card %d: %w", cardID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest review: %w", err)
	}
	return r, nil
}

// LatestReview returns the newest review row for a card.
func (db *DB) LatestReview(cardID int64) (*models.Review, error) {
	return latestReview(db.conn, cardID)
}

// LatestReview returns the newest review row for a card inside the transaction.
func (t *Tx) LatestReview(cardID int64) (*models.Review, error) {
	return latestReview(t.tx, cardID)
}

// CountReviews returns the number of review rows for a card.
func (db *DB) CountReviews(cardID int64) (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM reviews WHERE card_id = ?`, cardID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count reviews: %w", err)
	}
	return n, nil
}
