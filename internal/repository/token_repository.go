package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh-token hashes. The stored row, not the token's
// embedded expiry, is the authority for revocation: a hash missing from the
// table or past its expires_at is rejected even when the signature verifies.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh-token hash row. Called at login and registration;
// several live rows per user are fine (multi-device).
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, expiresAt.UTC())
	return err
}

// Rotate atomically replaces oldHash with newHash for the given user. The
// delete is guarded by user_id and a live expires_at; when it removes no row
// the transaction rolls back and ErrTokenNotFound is returned. Concurrent
// rotations of the same token therefore admit at most one winner: the loser
// finds the row already deleted.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint64, oldHash, newHash string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=? AND user_id=? AND expires_at > UTC_TIMESTAMP()",
		oldHash, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, expiresAt.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a single refresh-token row. Returns ErrTokenNotFound when
// no row matched, which logout callers are free to ignore.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// DeleteAllForUser removes every refresh token of a user, logging the user
// out of all devices.
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
