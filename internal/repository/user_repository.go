package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/worldautistic/worldautistic-api/internal/model"
)

// UserRepo persists rows of the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, name, password_hash, role, subscription_status,
	has_active_subscription, subscription_expires_at, last_login_at, created_at, updated_at`

// Create inserts a user and returns its ID. New users start without a
// subscription; the Hotmart webhook or an admin grants access afterwards.
func (r *UserRepo) Create(ctx context.Context, email, name, passwordHash, role string) (uint64, error) {
	email = normalizeEmail(email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, role, subscription_status, has_active_subscription) VALUES (?,?,?,?,?,0)",
		email, name, passwordHash, role, model.SubscriptionNone)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// List returns all users, newest first. Used by the admin back-office.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// TouchLastLogin records the login time. Callers treat failure as
// non-critical and must not fail the login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login_at=? WHERE id=?", at.UTC(), id)
	return err
}

// SetSubscription writes the authoritative pair together with the cached
// boolean so the cache can never drift from the status it mirrors. The
// write is a plain set-operation, hence naturally idempotent under webhook
// redelivery.
func (r *UserRepo) SetSubscription(ctx context.Context, id uint64, status string, active bool, expiresAt *time.Time) error {
	var exp interface{}
	if expiresAt != nil {
		u := expiresAt.UTC()
		exp = u
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET subscription_status=?, has_active_subscription=?, subscription_expires_at=? WHERE id=?",
		status, active, exp, id)
	if err != nil {
		return err
	}
	// RowsAffected is 0 both for a missing user and for a no-op rewrite of
	// identical values, so existence is checked explicitly.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg interface{}) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u         model.User
		expiresAt sql.NullTime
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.SubscriptionStatus,
		&u.HasActiveSubscription, &expiresAt, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		u.SubscriptionExpiresAt = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
