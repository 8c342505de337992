package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quiz-attempt-service/internal/domain"
)

// TimeoutSweeper finalizes active attempts whose quiz time limit has elapsed.
type TimeoutSweeper struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	service  *AttemptService
	grace    time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewTimeoutSweeper(attempts AttemptRepository, quizzes QuizRepository, service *AttemptService, grace time.Duration) *TimeoutSweeper {
	return &TimeoutSweeper{
		attempts: attempts,
		quizzes:  quizzes,
		service:  service,
		grace:    grace,
		now:      service.now,
		logger:   service.logger,
	}
}

// Sweep times out every overdue attempt and returns how many it finalized.
// Attempts that were completed concurrently are skipped silently.
func (s *TimeoutSweeper) Sweep(ctx context.Context) (int, error) {
	active, err := s.attempts.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active attempts: %w", err)
	}

	now := s.now()
	timedOut := 0
	var errs []error
	for _, attempt := range active {
		if err := ctx.Err(); err != nil {
			return timedOut, err
		}
		quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				errs = append(errs, fmt.Errorf("attempt %s: %w", attempt.ID, err))
			}
			continue
		}
		deadline, limited := quiz.Deadline(attempt.StartTime)
		if !limited || now.Before(deadline.Add(s.grace)) {
			continue
		}

		if _, err := s.service.Timeout(ctx, attempt.ID); err != nil {
			// lost to a client completion, or the quiz vanished behind the cache
			if errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			errs = append(errs, fmt.Errorf("attempt %s: %w", attempt.ID, err))
			continue
		}
		timedOut++
	}

	if timedOut > 0 {
		s.logger.Info("timed out overdue attempts", "count", timedOut)
	}
	return timedOut, errors.Join(errs...)
}
