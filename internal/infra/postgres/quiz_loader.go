package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-attempt-service/internal/domain"
)

// QuizLoader loads quiz JSONB and its aggregate columns from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		raw       []byte
		creatorID string
		stats     domain.QuizStats
	)
	err := l.pool.QueryRow(ctx,
		`SELECT data, creator_id, attempts, avg_score FROM quizzes WHERE id=$1`, quizID,
	).Scan(&raw, &creatorID, &stats.Attempts, &stats.AvgScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = quizID
	quiz.CreatorID = creatorID
	quiz.Attempts = stats.Attempts
	quiz.AvgScore = stats.AvgScore
	return quiz, nil
}

// SaveQuiz upserts quiz content without touching its aggregates.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO quizzes (id, creator_id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET creator_id = EXCLUDED.creator_id, data = EXCLUDED.data, updated_at = now()`,
		quiz.ID, quiz.CreatorID, string(data))
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
