package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/worldautistic/worldautistic-api/internal/model"
)

// WhitelistRepo persists the registration allow-list. Emails are stored
// lower-cased and trimmed; uniqueness is enforced by the table.
type WhitelistRepo struct{ DB *sql.DB }

func NewWhitelistRepo(db *sql.DB) *WhitelistRepo { return &WhitelistRepo{DB: db} }

// Contains reports whether a normalized email is allowed to register.
func (r *WhitelistRepo) Contains(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM whitelist WHERE email=? LIMIT 1", normalizeEmail(email)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Add inserts a whitelist entry and returns its ID. A duplicate email is an
// error, not a silent no-op.
func (r *WhitelistRepo) Add(ctx context.Context, email, note string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO whitelist (email, note) VALUES (?,?)", normalizeEmail(email), note)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailWhitelisted
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Remove deletes an entry by id.
func (r *WhitelistRepo) Remove(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM whitelist WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all entries, newest first.
func (r *WhitelistRepo) List(ctx context.Context) ([]model.WhitelistEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, email, note, created_at FROM whitelist ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WhitelistEntry
	for rows.Next() {
		var e model.WhitelistEntry
		if err := rows.Scan(&e.ID, &e.Email, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
