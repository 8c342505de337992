package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// UserStatsStore keeps quizzesTaken counters in memory.
type UserStatsStore struct {
	mu    sync.Mutex
	taken map[string]int
}

func NewUserStatsStore() *UserStatsStore {
	return &UserStatsStore{taken: make(map[string]int)}
}

func (s *UserStatsStore) IncrementQuizzesTaken(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taken[userID]++
	return s.taken[userID], nil
}

func (s *UserStatsStore) Get(userID string) domain.UserStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.UserStats{UserID: userID, QuizzesTaken: s.taken[userID]}
}
