package repository

import (
	"context"
	"database/sql"

	"github.com/worldautistic/worldautistic-api/internal/model"
)

// StreakRepo persists the one-to-one `user_streaks` rows. The day-delta
// algorithm lives in the service layer; this repo only reads and writes
// whole rows scoped to one user.
type StreakRepo struct{ DB *sql.DB }

func NewStreakRepo(db *sql.DB) *StreakRepo { return &StreakRepo{DB: db} }

// Get loads a user's streak row. Returns ErrNotFound when the user has
// never logged in before.
func (r *StreakRepo) Get(ctx context.Context, userID uint64) (model.UserStreak, error) {
	var s model.UserStreak
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, current_streak, longest_streak, last_active_date FROM user_streaks WHERE user_id=? LIMIT 1",
		userID).Scan(&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastActiveDate)
	if err == sql.ErrNoRows {
		return model.UserStreak{}, ErrNotFound
	}
	return s, err
}

// Create inserts the lazily-created first streak row.
func (r *StreakRepo) Create(ctx context.Context, s model.UserStreak) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_streaks (user_id, current_streak, longest_streak, last_active_date) VALUES (?,?,?,?)",
		s.UserID, s.CurrentStreak, s.LongestStreak, s.LastActiveDate)
	return err
}

// Update overwrites a user's streak row.
func (r *StreakRepo) Update(ctx context.Context, s model.UserStreak) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_streaks SET current_streak=?, longest_streak=?, last_active_date=? WHERE user_id=?",
		s.CurrentStreak, s.LongestStreak, s.LastActiveDate, s.UserID)
	return err
}
