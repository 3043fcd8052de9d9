package handler_test

// In-memory store fakes backing the handler tests. They honor the same
// sentinel-error contracts as the SQL repositories so handlers cannot tell
// them apart.

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/worldautistic/worldautistic-api/internal/config"
	"github.com/worldautistic/worldautistic-api/internal/handler"
	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/repository"
	"github.com/worldautistic/worldautistic-api/internal/router"
	"github.com/worldautistic/worldautistic-api/internal/service"
)

const (
	testSecret = "handler-test-secret"
	testHottok = "hottok-test-secret"
)

// ----- users -----

type memUserStore struct {
	mu     sync.Mutex
	users  map[uint64]model.User
	nextID uint64
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[uint64]model.User{}, nextID: 1}
}

func (s *memUserStore) seed(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextID
		s.nextID++
	}
	s.users[u.ID] = u
	return u
}

func (s *memUserStore) Create(_ context.Context, email, name, passwordHash, role string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	id := s.nextID
	s.nextID++
	s.users[id] = model.User{
		ID: id, Email: email, Name: name, PasswordHash: passwordHash, Role: role,
		SubscriptionStatus: model.SubscriptionNone,
	}
	return id, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memUserStore) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	s.users[id] = u
	return nil
}

func (s *memUserStore) SetSubscription(_ context.Context, id uint64, status string, active bool, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SubscriptionStatus = status
	u.HasActiveSubscription = active
	u.SubscriptionExpiresAt = expiresAt
	s.users[id] = u
	return nil
}

// ----- refresh tokens -----

type memTokenStore struct {
	mu   sync.Mutex
	rows map[string]tokenRow // keyed by token hash
}

type tokenRow struct {
	userID    uint64
	expiresAt time.Time
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{rows: map[string]tokenRow{}}
}

func (s *memTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *memTokenStore) contains(tokenHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[tokenHash]
	return ok
}

func (s *memTokenStore) Store(_ context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[tokenHash] = tokenRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *memTokenStore) Rotate(_ context.Context, userID uint64, oldHash, newHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[oldHash]
	if !ok || row.userID != userID || !row.expiresAt.After(time.Now().UTC()) {
		return repository.ErrTokenNotFound
	}
	delete(s.rows, oldHash)
	s.rows[newHash] = tokenRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *memTokenStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[tokenHash]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(s.rows, tokenHash)
	return nil
}

func (s *memTokenStore) DeleteAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, row := range s.rows {
		if row.userID == userID {
			delete(s.rows, h)
		}
	}
	return nil
}

// ----- streaks -----

type memStreakStore struct {
	mu   sync.Mutex
	rows map[uint64]model.UserStreak
}

func newMemStreakStore() *memStreakStore {
	return &memStreakStore{rows: map[uint64]model.UserStreak{}}
}

func (s *memStreakStore) Get(_ context.Context, userID uint64) (model.UserStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rows[userID]
	if !ok {
		return model.UserStreak{}, repository.ErrNotFound
	}
	return st, nil
}

func (s *memStreakStore) Create(_ context.Context, st model.UserStreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[st.UserID] = st
	return nil
}

func (s *memStreakStore) Update(_ context.Context, st model.UserStreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[st.UserID] = st
	return nil
}

// ----- whitelist -----

type memWhitelistStore struct {
	mu     sync.Mutex
	rows   map[uint64]model.WhitelistEntry
	nextID uint64
}

func newMemWhitelistStore(emails ...string) *memWhitelistStore {
	s := &memWhitelistStore{rows: map[uint64]model.WhitelistEntry{}, nextID: 1}
	for _, e := range emails {
		_, _ = s.Add(context.Background(), e, "")
	}
	return s
}

func (s *memWhitelistStore) Contains(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memWhitelistStore) Add(_ context.Context, email, note string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rows {
		if e.Email == email {
			return 0, repository.ErrEmailWhitelisted
		}
	}
	id := s.nextID
	s.nextID++
	s.rows[id] = model.WhitelistEntry{ID: id, Email: email, Note: note}
	return id, nil
}

func (s *memWhitelistStore) Remove(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memWhitelistStore) List(_ context.Context) ([]model.WhitelistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.WhitelistEntry, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e)
	}
	return out, nil
}

// ----- cards -----

type memCardStore struct {
	mu     sync.Mutex
	rows   map[uint64]model.Card
	nextID uint64
}

func newMemCardStore() *memCardStore {
	return &memCardStore{rows: map[uint64]model.Card{}, nextID: 1}
}

func (s *memCardStore) Create(_ context.Context, card *model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card.ID = s.nextID
	s.nextID++
	s.rows[card.ID] = *card
	return nil
}

func (s *memCardStore) Update(_ context.Context, card *model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[card.ID]; !ok {
		return repository.ErrNotFound
	}
	s.rows[card.ID] = *card
	return nil
}

func (s *memCardStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memCardStore) GetByID(_ context.Context, id uint64) (model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return model.Card{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *memCardStore) List(_ context.Context, category string, activeOnly bool) ([]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Card
	for _, c := range s.rows {
		if activeOnly && !c.IsActive {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ----- purchases -----

type memPurchaseStore struct {
	mu   sync.Mutex
	rows []model.Purchase
}

func newMemPurchaseStore() *memPurchaseStore { return &memPurchaseStore{} }

func (s *memPurchaseStore) Record(_ context.Context, p *model.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uint64(len(s.rows) + 1)
	s.rows = append(s.rows, *p)
	return nil
}

func (s *memPurchaseStore) List(_ context.Context) ([]model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Purchase, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// ----- app harness -----

// testEnv bundles the fakes behind a fully routed Echo app.
type testEnv struct {
	cfg       config.Config
	users     *memUserStore
	tokens    *memTokenStore
	streaks   *memStreakStore
	whitelist *memWhitelistStore
	cards     *memCardStore
	purchases *memPurchaseStore
}

func newTestApp() (*echo.Echo, *testEnv) {
	env := &testEnv{
		cfg: config.Config{
			Env:            "test",
			JWTSecret:      testSecret,
			HotmartToken:   testHottok,
			AccessTTLMin:   15,
			RefreshTTLDays: 7,
			BcryptCost:     4,
		},
		users:     newMemUserStore(),
		tokens:    newMemTokenStore(),
		streaks:   newMemStreakStore(),
		whitelist: newMemWhitelistStore(),
		cards:     newMemCardStore(),
		purchases: newMemPurchaseStore(),
	}

	streakSvc := service.NewStreakService(env.streaks)
	subsSvc := service.NewSubscriptionService(env.users)

	e := echo.New()
	e.HideBanner = true
	var rdb *redis.Client // rate limiting and caching degrade to pass-throughs
	router.Register(e, env.cfg, router.Handlers{
		Auth:      handler.NewAuthHandler(env.cfg, env.users, env.tokens, env.whitelist, streakSvc, subsSvc),
		Subs:      handler.NewSubscriptionHandler(subsSvc),
		Webhook:   handler.NewWebhookHandler(env.cfg, env.users, env.purchases, subsSvc),
		Cards:     handler.NewCardHandler(env.cards),
		Whitelist: handler.NewWhitelistHandler(env.whitelist),
		Users:     handler.NewAdminUserHandler(env.users, env.purchases),
		Streaks:   handler.NewStreakHandler(streakSvc),
	}, rdb)
	return e, env
}
