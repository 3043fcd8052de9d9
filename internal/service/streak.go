// Package service holds the domain logic that sits between handlers and
// repositories: the login-streak tracker and the subscription gate.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/worldautistic/worldautistic-api/internal/model"
	"github.com/worldautistic/worldautistic-api/internal/repository"
)

// StreakService maintains consecutive-login-day counters. It is invoked on
// every successful login; callers treat its errors as non-critical and log
// them instead of failing the login.
type StreakService struct {
	Streaks repository.StreakStore
	// now is the clock; tests override it to pin calendar days.
	now func() time.Time
}

func NewStreakService(streaks repository.StreakStore) *StreakService {
	return &StreakService{Streaks: streaks, now: time.Now}
}

// RecordLogin applies one login event to the user's streak row.
//
// Day deltas compare UTC calendar dates, time of day stripped:
//
//	0 days  -> already active today, no change (idempotent); a zero
//	           current streak is corrected to 1
//	1 day   -> consecutive day, current += 1, longest = max(longest, current)
//	>1 days -> broken, current = 1, longest preserved
//
// The row is created lazily on the first login.
func (s *StreakService) RecordLogin(ctx context.Context, userID uint64) error {
	today := dateOnly(s.now())

	st, err := s.Streaks.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.Streaks.Create(ctx, model.UserStreak{
			UserID:         userID,
			CurrentStreak:  1,
			LongestStreak:  1,
			LastActiveDate: today,
		})
	}
	if err != nil {
		return err
	}

	switch diffDays(today, dateOnly(st.LastActiveDate)) {
	case 0:
		if st.CurrentStreak != 0 {
			return nil // same-day repeat login, nothing to do
		}
		st.CurrentStreak = 1
		if st.LongestStreak < 1 {
			st.LongestStreak = 1
		}
	case 1:
		st.CurrentStreak++
		if st.CurrentStreak > st.LongestStreak {
			st.LongestStreak = st.CurrentStreak
		}
		st.LastActiveDate = today
	default:
		st.CurrentStreak = 1
		st.LastActiveDate = today
	}
	return s.Streaks.Update(ctx, st)
}

// Get returns the user's streak row, or a zeroed row for users who have
// never logged in.
func (s *StreakService) Get(ctx context.Context, userID uint64) (model.UserStreak, error) {
	st, err := s.Streaks.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.UserStreak{UserID: userID}, nil
	}
	return st, err
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// diffDays returns the whole calendar days from earlier to later; both
// arguments must already be date-truncated.
func diffDays(later, earlier time.Time) int {
	return int(later.Sub(earlier) / (24 * time.Hour))
}
