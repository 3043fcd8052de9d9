package repository

import (
	"context"
	"database/sql"

	"github.com/worldautistic/worldautistic-api/internal/model"
)

// CardRepo provides CRUD over the `cards` table. Cards are plain content
// rows; the admin back-office mutates them and the app reads them through
// the cached public catalog.
type CardRepo struct{ DB *sql.DB }

func NewCardRepo(db *sql.DB) *CardRepo { return &CardRepo{DB: db} }

const cardColumns = "id, category, name_pt, name_en, name_es, image_url, audio_url, is_active, created_at, updated_at"

// Create inserts a card and populates its generated ID.
func (r *CardRepo) Create(ctx context.Context, card *model.Card) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO cards (category, name_pt, name_en, name_es, image_url, audio_url, is_active) VALUES (?,?,?,?,?,?,?)",
		card.Category, card.NamePT, card.NameEN, card.NameES, card.ImageURL, card.AudioURL, card.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	card.ID = uint64(id)
	return nil
}

// Update overwrites a card's editable fields.
func (r *CardRepo) Update(ctx context.Context, card *model.Card) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE cards SET category=?, name_pt=?, name_en=?, name_es=?, image_url=?, audio_url=?, is_active=? WHERE id=?",
		card.Category, card.NamePT, card.NameEN, card.NameES, card.ImageURL, card.AudioURL, card.IsActive, card.ID)
	if err != nil {
		return err
	}
	return requireRow(ctx, res, r.DB, "cards", card.ID)
}

// Delete removes a card by id.
func (r *CardRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM cards WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a card by id.
func (r *CardRepo) GetByID(ctx context.Context, id uint64) (model.Card, error) {
	var c model.Card
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.Category, &c.NamePT, &c.NameEN, &c.NameES, &c.ImageURL, &c.AudioURL,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Card{}, ErrNotFound
	}
	return c, err
}

// List returns cards, optionally filtered by category and active flag.
func (r *CardRepo) List(ctx context.Context, category string, activeOnly bool) ([]model.Card, error) {
	q := "SELECT " + cardColumns + " FROM cards"
	var (
		conds []string
		args  []interface{}
	)
	if category != "" {
		conds = append(conds, "category=?")
		args = append(args, category)
	}
	if activeOnly {
		conds = append(conds, "is_active=1")
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Card
	for rows.Next() {
		var c model.Card
		if err := rows.Scan(&c.ID, &c.Category, &c.NamePT, &c.NameEN, &c.NameES, &c.ImageURL,
			&c.AudioURL, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// requireRow distinguishes "no change" from "no such row" after an UPDATE
// that affected zero rows.
func requireRow(ctx context.Context, res sql.Result, db *sql.DB, table string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id=?", id).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return nil
}
