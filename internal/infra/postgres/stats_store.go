package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-attempt-service/internal/domain"
)

// StatsStore updates the aggregate columns of quizzes and users.
type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// UpdateQuizStats locks the quiz row, so concurrent completions of the same
// quiz apply fn one after another.
func (s *StatsStore) UpdateQuizStats(ctx context.Context, quizID string, fn func(domain.QuizStats) domain.QuizStats) (domain.QuizStats, error) {
	var next domain.QuizStats
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var current domain.QuizStats
		err := tx.QueryRow(ctx,
			`SELECT attempts, avg_score FROM quizzes WHERE id=$1 FOR UPDATE`, quizID,
		).Scan(&current.Attempts, &current.AvgScore)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return fmt.Errorf("lock quiz stats: %w", err)
		}

		next = fn(current)
		if _, err := tx.Exec(ctx,
			`UPDATE quizzes SET attempts=$2, avg_score=$3, updated_at=now() WHERE id=$1`,
			quizID, next.Attempts, next.AvgScore,
		); err != nil {
			return fmt.Errorf("write quiz stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.QuizStats{}, err
	}
	return next, nil
}

// IncrementQuizzesTaken creates the counter row on a user's first completion.
func (s *StatsStore) IncrementQuizzesTaken(ctx context.Context, userID string) (int, error) {
	var taken int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, quizzes_taken) VALUES ($1, 1)
		 ON CONFLICT (id) DO UPDATE SET quizzes_taken = users.quizzes_taken + 1
		 RETURNING quizzes_taken`, userID,
	).Scan(&taken)
	if err != nil {
		return 0, fmt.Errorf("increment quizzes taken: %w", err)
	}
	return taken, nil
}

func (s *StatsStore) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	stats := domain.UserStats{UserID: userID}
	err := s.pool.QueryRow(ctx, `SELECT quizzes_taken FROM users WHERE id=$1`, userID).Scan(&stats.QuizzesTaken)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("read user stats: %w", err)
	}
	return stats, nil
}
