package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// QuizCatalog is an in-process stand-in for the quiz-management collaborator.
// It serves quiz content and owns the quiz aggregates; every record has its own
// lock so stats updates for one quiz are serialized.
type QuizCatalog struct {
	mu      sync.RWMutex
	quizzes map[string]*catalogEntry
}

type catalogEntry struct {
	mu   sync.Mutex
	quiz domain.Quiz
}

func NewQuizCatalog(quizzes ...domain.Quiz) *QuizCatalog {
	c := &QuizCatalog{quizzes: make(map[string]*catalogEntry, len(quizzes))}
	for _, quiz := range quizzes {
		c.Put(quiz)
	}
	return c
}

// Put inserts or replaces quiz content, keeping existing aggregates.
func (c *QuizCatalog) Put(quiz domain.Quiz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.quizzes[quiz.ID]; ok {
		entry.mu.Lock()
		quiz.Attempts, quiz.AvgScore = entry.quiz.Attempts, entry.quiz.AvgScore
		entry.quiz = quiz
		entry.mu.Unlock()
		return
	}
	c.quizzes[quiz.ID] = &catalogEntry{quiz: quiz}
}

// Delete removes a quiz.
func (c *QuizCatalog) Delete(quizID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.quizzes, quizID)
}

func (c *QuizCatalog) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	entry, ok := c.entry(quizID)
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.quiz, nil
}

// UpdateQuizStats implements app.QuizStatsStore.
func (c *QuizCatalog) UpdateQuizStats(_ context.Context, quizID string, fn func(domain.QuizStats) domain.QuizStats) (domain.QuizStats, error) {
	entry, ok := c.entry(quizID)
	if !ok {
		return domain.QuizStats{}, domain.ErrQuizNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	next := fn(domain.QuizStats{Attempts: entry.quiz.Attempts, AvgScore: entry.quiz.AvgScore})
	entry.quiz.Attempts, entry.quiz.AvgScore = next.Attempts, next.AvgScore
	return next, nil
}

func (c *QuizCatalog) entry(quizID string) (*catalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.quizzes[quizID]
	return entry, ok
}
