package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
	}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}
	s.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt.Clone(), nil
}

// Update runs fn under the store lock, so concurrent updates are serialized.
func (s *AttemptStore) Update(_ context.Context, attemptID string, fn func(*domain.Attempt) error) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.Attempt{}, err
	}
	s.attempts[attemptID] = next
	return next.Clone(), nil
}

func (s *AttemptStore) ListByUser(_ context.Context, userID string) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool { return a.UserID == userID }), nil
}

func (s *AttemptStore) ListActive(_ context.Context) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool { return !a.Status.Terminal() }), nil
}

// filter returns matching attempts, newest first.
func (s *AttemptStore) filter(keep func(domain.Attempt) bool) []domain.Attempt {
	s.mu.RLock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if keep(attempt) {
			out = append(out, attempt.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
