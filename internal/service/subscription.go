package service

import (
	"context"
	"time"

	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/repository"
)

// SubscriptionService answers "may this user use the product right now?"
// and mutates subscription state on behalf of the Hotmart webhook and the
// admin back-office. Both mutators are idempotent set-operations, which is
// what makes unsynchronized webhook/admin writers acceptable.
type SubscriptionService struct {
	Users repository.UserStore
	now   func() time.Time
}

func NewSubscriptionService(users repository.UserStore) *SubscriptionService {
	return &SubscriptionService{Users: users, now: time.Now}
}

// IsAccessValid is the single authoritative access predicate. ADMIN
// short-circuits to true. Everyone else needs status "active" and an
// unexpired expiry. The cached HasActiveSubscription boolean is never
// consulted here.
func (s *SubscriptionService) IsAccessValid(u model.User) bool {
	if u.Role == model.RoleAdmin {
		return true
	}
	return u.SubscriptionStatus == model.SubscriptionActive &&
		u.SubscriptionExpiresAt != nil &&
		u.SubscriptionExpiresAt.After(s.now())
}

// Activate grants access until expiresAt. Safe to call repeatedly with the
// same expiry (webhook redelivery).
func (s *SubscriptionService) Activate(ctx context.Context, userID uint64, expiresAt time.Time) error {
	exp := expiresAt.UTC()
	return s.Users.SetSubscription(ctx, userID, model.SubscriptionActive, true, &exp)
}

// Deactivate moves the subscription to a terminal status ("canceled",
// "refunded", "chargeback") and clears the cached boolean. The expiry date
// is kept for the back-office record. An unknown status falls back to
// canceled rather than inventing a new state.
func (s *SubscriptionService) Deactivate(ctx context.Context, userID uint64, status string) error {
	switch status {
	case model.SubscriptionCanceled, model.SubscriptionRefunded, model.SubscriptionChargeback:
	default:
		status = model.SubscriptionCanceled
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.Users.SetSubscription(ctx, userID, status, false, u.SubscriptionExpiresAt)
}

// Check is the advisory, client-polled view (banners, countdowns). It
// returns the cached boolean plus expiry and is explicitly NOT an
// authorization input; the login-time gate remains the only enforcement.
func (s *SubscriptionService) Check(ctx context.Context, userID uint64) (bool, *time.Time, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	return u.HasActiveSubscription, u.SubscriptionExpiresAt, nil
}
