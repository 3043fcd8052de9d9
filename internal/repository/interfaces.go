package repository

import (
	"context"
	"time"

	"github.com/worldautistic/worldautistic-api/internal/model"
)

// Store interfaces consumed by handlers and services. The concrete SQL
// repositories below implement them; tests substitute in-memory fakes.

// UserStore persists user records and their subscription fields.
type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
	SetSubscription(ctx context.Context, id uint64, status string, active bool, expiresAt *time.Time) error
}

// TokenStore is the refresh-token registry. Rows are the authority for
// revocation: a token absent from the store is dead no matter what its
// signature says.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	// Rotate deletes the old row and inserts the replacement in a single
	// transaction. It returns ErrTokenNotFound when no live row matches the
	// old hash, which is also what the loser of a concurrent rotation sees.
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, expiresAt time.Time) error
	Delete(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

// StreakStore persists per-user login streaks.
type StreakStore interface {
	Get(ctx context.Context, userID uint64) (model.UserStreak, error) // ErrNotFound when absent
	Create(ctx context.Context, s model.UserStreak) error
	Update(ctx context.Context, s model.UserStreak) error
}

// WhitelistStore is the registration allow-list.
type WhitelistStore interface {
	Contains(ctx context.Context, email string) (bool, error)
	Add(ctx context.Context, email, note string) (uint64, error)
	Remove(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]model.WhitelistEntry, error)
}

// CardStore persists the multilingual content cards.
type CardStore interface {
	Create(ctx context.Context, card *model.Card) error
	Update(ctx context.Context, card *model.Card) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (model.Card, error)
	List(ctx context.Context, category string, activeOnly bool) ([]model.Card, error)
}

// PurchaseStore is the append-only Hotmart purchase ledger.
type PurchaseStore interface {
	Record(ctx context.Context, p *model.Purchase) error
	List(ctx context.Context) ([]model.Purchase, error)
}
