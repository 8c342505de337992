package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"quiz-attempt-service/internal/domain"
)

// StatsStore keeps aggregate counters in Redis hashes:
//
//	HSET quiz:{quizID}:stats attempts {n} avgScore {avg}
//	HSET user:{userID}:stats quizzesTaken {n}
type StatsStore struct {
	client *redis.Client
}

func NewStatsStore(client *redis.Client) *StatsStore {
	return &StatsStore{client: client}
}

// UpdateQuizStats reads and rewrites the quiz hash inside WATCH/MULTI, retrying
// when another completion got there first.
func (s *StatsStore) UpdateQuizStats(ctx context.Context, quizID string, fn func(domain.QuizStats) domain.QuizStats) (domain.QuizStats, error) {
	key := quizStatsKey(quizID)
	var next domain.QuizStats

	txf := func(tx *redis.Tx) error {
		current, err := readQuizStats(ctx, tx, key)
		if err != nil {
			return err
		}
		next = fn(current)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"attempts", next.Attempts,
				"avgScore", strconv.FormatFloat(next.AvgScore, 'f', -1, 64),
			)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.QuizStats{}, fmt.Errorf("update quiz stats: %w", err)
		}
		return next, nil
	}
	return domain.QuizStats{}, fmt.Errorf("update quiz %s stats: %w", quizID, errTooManyConflicts)
}

// QuizStats returns the current counters of a quiz; unknown quizzes read as zero.
func (s *StatsStore) QuizStats(ctx context.Context, quizID string) (domain.QuizStats, error) {
	return readQuizStats(ctx, s.client, quizStatsKey(quizID))
}

func (s *StatsStore) IncrementQuizzesTaken(ctx context.Context, userID string) (int, error) {
	n, err := s.client.HIncrBy(ctx, userStatsKey(userID), "quizzesTaken", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("increment quizzes taken: %w", err)
	}
	return int(n), nil
}

func (s *StatsStore) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	n, err := s.client.HGet(ctx, userStatsKey(userID), "quizzesTaken").Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.UserStats{}, fmt.Errorf("read user stats: %w", err)
	}
	return domain.UserStats{UserID: userID, QuizzesTaken: n}, nil
}

func readQuizStats(ctx context.Context, c redis.HashCmdable, key string) (domain.QuizStats, error) {
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.QuizStats{}, err
	}
	var stats domain.QuizStats
	if raw, ok := fields["attempts"]; ok {
		if stats.Attempts, err = strconv.Atoi(raw); err != nil {
			return domain.QuizStats{}, fmt.Errorf("parse attempts: %w", err)
		}
	}
	if raw, ok := fields["avgScore"]; ok {
		if stats.AvgScore, err = strconv.ParseFloat(raw, 64); err != nil {
			return domain.QuizStats{}, fmt.Errorf("parse avgScore: %w", err)
		}
	}
	return stats, nil
}

func quizStatsKey(quizID string) string {
	return "quiz:" + quizID + ":stats"
}

func userStatsKey(userID string) string {
	return "user:" + userID + ":stats"
}
