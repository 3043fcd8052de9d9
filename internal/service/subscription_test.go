package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/repository"
)

type fakeUserStore struct {
	users  map[uint64]model.User
	nextID uint64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]model.User{}, nextID: 1}
}

func (f *fakeUserStore) put(u model.User) model.User {
	if u.ID == 0 {
		u.ID = f.nextID
		f.nextID++
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserStore) Create(_ context.Context, email, name, passwordHash, role string) (uint64, error) {
	u := f.put(model.User{Email: email, Name: name, PasswordHash: passwordHash, Role: role})
	return u.ID, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) SetSubscription(_ context.Context, id uint64, status string, active bool, expiresAt *time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SubscriptionStatus = status
	u.HasActiveSubscription = active
	u.SubscriptionExpiresAt = expiresAt
	f.users[id] = u
	return nil
}

func newTestSubscriptionService(users *fakeUserStore, now time.Time) *SubscriptionService {
	svc := NewSubscriptionService(users)
	svc.now = func() time.Time { return now }
	return svc
}

func TestIsAccessValid(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-time.Minute)

	cases := []struct {
		name string
		user model.User
		want bool
	}{
		{"active and unexpired", model.User{Role: model.RoleUser, SubscriptionStatus: model.SubscriptionActive, SubscriptionExpiresAt: &future}, true},
		{"active but expired", model.User{Role: model.RoleUser, SubscriptionStatus: model.SubscriptionActive, SubscriptionExpiresAt: &past}, false},
		{"active with no expiry", model.User{Role: model.RoleUser, SubscriptionStatus: model.SubscriptionActive}, false},
		{"canceled with future expiry", model.User{Role: model.RoleUser, SubscriptionStatus: model.SubscriptionCanceled, SubscriptionExpiresAt: &future}, false},
		{"never subscribed", model.User{Role: model.RoleUser, SubscriptionStatus: model.SubscriptionNone}, false},
		{"admin needs no subscription", model.User{Role: model.RoleAdmin, SubscriptionStatus: model.SubscriptionNone}, true},
		{"admin with expired subscription", model.User{Role: model.RoleAdmin, SubscriptionStatus: model.SubscriptionActive, SubscriptionExpiresAt: &past}, true},
		// The cached boolean must never override the authoritative pair.
		{"stale cached true is ignored", model.User{Role: model.RoleUser, HasActiveSubscription: true, SubscriptionStatus: model.SubscriptionActive, SubscriptionExpiresAt: &past}, false},
	}
	svc := newTestSubscriptionService(newFakeUserStore(), now)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, svc.IsAccessValid(tc.user))
		})
	}
}

func TestActivateSetsAllThreeFields(t *testing.T) {
	store := newFakeUserStore()
	u := store.put(model.User{Email: "kid@example.com", Role: model.RoleUser, SubscriptionStatus: model.SubscriptionNone})
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestSubscriptionService(store, now)

	exp := now.AddDate(1, 0, 0)
	require.NoError(t, svc.Activate(context.Background(), u.ID, exp))

	got := store.users[u.ID]
	assert.Equal(t, model.SubscriptionActive, got.SubscriptionStatus)
	assert.True(t, got.HasActiveSubscription)
	require.NotNil(t, got.SubscriptionExpiresAt)
	assert.True(t, got.SubscriptionExpiresAt.Equal(exp))
	assert.True(t, svc.IsAccessValid(got))

	// Webhook redelivery: a second identical call changes nothing.
	require.NoError(t, svc.Activate(context.Background(), u.ID, exp))
	assert.Equal(t, got, store.users[u.ID])
}

func TestDeactivateKeepsExpiryAndClearsCache(t *testing.T) {
	store := newFakeUserStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	exp := now.AddDate(0, 6, 0)
	u := store.put(model.User{
		Email: "kid@example.com", Role: model.RoleUser,
		SubscriptionStatus: model.SubscriptionActive, HasActiveSubscription: true,
		SubscriptionExpiresAt: &exp,
	})
	svc := newTestSubscriptionService(store, now)

	require.NoError(t, svc.Deactivate(context.Background(), u.ID, model.SubscriptionRefunded))

	got := store.users[u.ID]
	assert.Equal(t, model.SubscriptionRefunded, got.SubscriptionStatus)
	assert.False(t, got.HasActiveSubscription)
	require.NotNil(t, got.SubscriptionExpiresAt, "expiry is kept for the back-office record")
	assert.False(t, svc.IsAccessValid(got))
}

func TestDeactivateUnknownStatusFallsBackToCanceled(t *testing.T) {
	store := newFakeUserStore()
	u := store.put(model.User{Email: "kid@example.com", Role: model.RoleUser, SubscriptionStatus: model.SubscriptionActive})
	svc := newTestSubscriptionService(store, time.Now())

	require.NoError(t, svc.Deactivate(context.Background(), u.ID, "exploded"))
	assert.Equal(t, model.SubscriptionCanceled, store.users[u.ID].SubscriptionStatus)
}

func TestDeactivateUnknownUser(t *testing.T) {
	svc := newTestSubscriptionService(newFakeUserStore(), time.Now())
	err := svc.Deactivate(context.Background(), 404, model.SubscriptionCanceled)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckReportsCachedViewOnly(t *testing.T) {
	store := newFakeUserStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	// Deliberately inconsistent row: cache says yes, expiry says no.
	u := store.put(model.User{
		Email: "kid@example.com", Role: model.RoleUser,
		SubscriptionStatus: model.SubscriptionActive, HasActiveSubscription: true,
		SubscriptionExpiresAt: &past,
	})
	svc := newTestSubscriptionService(store, now)

	active, exp, err := svc.Check(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, active, "Check surfaces the cached boolean as-is")
	require.NotNil(t, exp)
	// The enforcement path still says no.
	assert.False(t, svc.IsAccessValid(store.users[u.ID]))
}
