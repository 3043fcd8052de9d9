package model

import "time"

// Roles stored in users.role. ADMIN accounts manage the back-office and
// bypass the subscription gate; USER accounts are the children using the app.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Subscription statuses stored in users.subscription_status. Only "active"
// ever grants access, and only together with an unexpired
// subscription_expires_at. The remaining values are terminal states written
// by the Hotmart webhook or by manual admin action.
const (
	SubscriptionActive     = "active"
	SubscriptionCanceled   = "canceled"
	SubscriptionRefunded   = "refunded"
	SubscriptionChargeback = "chargeback"
	SubscriptionNone       = "none"
)

// User represents a row in the `users` table.
//
// HasActiveSubscription is a denormalized cache kept in sync whenever the
// authoritative pair (SubscriptionStatus, SubscriptionExpiresAt) changes. It
// exists for the client-side polling endpoint only and must never be used as
// an authorization input.
type User struct {
	ID                    uint64     // users.id
	Email                 string     // users.email (unique, stored lower-cased)
	Name                  string     // users.name
	PasswordHash          string     // users.password_hash (bcrypt; empty for child accounts)
	Role                  string     // users.role (ADMIN | USER)
	SubscriptionStatus    string     // users.subscription_status
	HasActiveSubscription bool       // users.has_active_subscription (cache, not source of truth)
	SubscriptionExpiresAt *time.Time // users.subscription_expires_at (nullable)
	LastLoginAt           *time.Time // users.last_login_at (nullable, best-effort)
	CreatedAt             time.Time  // users.created_at
	UpdatedAt             time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user; several may exist per user (multi-device). The
// plain token is not stored, only its SHA-256 hash. A row past its
// expires_at is invalid even when the token signature still verifies: the
// store is the authority for revocation.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}

// UserStreak models the one-to-one `user_streaks` row tracking consecutive
// login days. LastActiveDate has date granularity; time of day is irrelevant.
// LongestStreak >= CurrentStreak holds after every update.
type UserStreak struct {
	UserID         uint64    // user_streaks.user_id
	CurrentStreak  int       // user_streaks.current_streak
	LongestStreak  int       // user_streaks.longest_streak
	LastActiveDate time.Time // user_streaks.last_active_date (date only, UTC)
}

// WhitelistEntry models a row in the `whitelist` table. Presence of a
// normalized email permits registration; absence denies it.
type WhitelistEntry struct {
	ID        uint64    // whitelist.id
	Email     string    // whitelist.email (unique, stored lower-cased)
	Note      string    // whitelist.note (optional)
	CreatedAt time.Time // whitelist.created_at
}
