package app

import (
	"context"
	"errors"
	"fmt"

	"quiz-attempt-service/internal/domain"
)

// QuizStatsStore exposes an atomic fetch-and-update on one quiz's counters.
// fn receives the current values and returns the replacement; implementations
// must not let two concurrent calls for the same quiz observe the same input.
type QuizStatsStore interface {
	UpdateQuizStats(ctx context.Context, quizID string, fn func(domain.QuizStats) domain.QuizStats) (domain.QuizStats, error)
}

// UserStatsStore owns the per-user quizzesTaken counter.
type UserStatsStore interface {
	IncrementQuizzesTaken(ctx context.Context, userID string) (int, error)
}

// StatsUpdater applies incremental-mean updates after an attempt has been persisted.
type StatsUpdater struct {
	quizzes QuizStatsStore
	users   UserStatsStore
}

func NewStatsUpdater(quizzes QuizStatsStore, users UserStatsStore) *StatsUpdater {
	return &StatsUpdater{quizzes: quizzes, users: users}
}

// Apply folds one completion into the quiz and user counters. Both updates are
// attempted; their failures are joined.
func (u *StatsUpdater) Apply(ctx context.Context, c domain.Completion) error {
	var errs []error
	if _, err := u.quizzes.UpdateQuizStats(ctx, c.QuizID, func(s domain.QuizStats) domain.QuizStats {
		return NextQuizStats(s, c.PercentageScore)
	}); err != nil {
		errs = append(errs, fmt.Errorf("update quiz %s stats: %w", c.QuizID, err))
	}
	if _, err := u.users.IncrementQuizzesTaken(ctx, c.UserID); err != nil {
		errs = append(errs, fmt.Errorf("update user %s stats: %w", c.UserID, err))
	}
	return errors.Join(errs...)
}

// NextQuizStats adds one sample to a running mean. The old count is the weight
// of the old average.
func NextQuizStats(s domain.QuizStats, percentage int) domain.QuizStats {
	n := s.Attempts
	if n < 0 {
		n = 0
	}
	return domain.QuizStats{
		Attempts: n + 1,
		AvgScore: (s.AvgScore*float64(n) + float64(percentage)) / float64(n+1),
	}
}
