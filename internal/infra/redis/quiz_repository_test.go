package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{QuizLoader: memory.NewQuizCatalog(sampleQuiz())}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if quiz.Questions[0].RightAnswer != 1 {
		t.Fatalf("answer key must survive the cache round trip, got %+v", quiz.Questions[0])
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if cached.Title != "Arithmetic" || len(cached.Questions) != 1 {
		t.Fatalf("unexpected cached quiz %+v", cached)
	}

	if ttl := mr.TTL("quiz:quiz-1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected jittered ttl around 1m, got %v", ttl)
	}

	if err := repo.Invalidate(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls.Load())
	}
}

func TestQuizRepositoryLoadQuizSkipsCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	catalog := memory.NewQuizCatalog(sampleQuiz())
	loader := &countingLoader{QuizLoader: catalog}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}

	edited := sampleQuiz()
	edited.Title = "Edited"
	catalog.Put(edited)

	fresh, err := repo.LoadQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if fresh.Title != "Edited" || loader.calls.Load() != 2 {
		t.Fatalf("expected a loader read, got title=%q calls=%d", fresh.Title, loader.calls.Load())
	}
	cached, _ := repo.GetQuiz(ctx, "quiz-1")
	if cached.Title != "Edited" || loader.calls.Load() != 2 {
		t.Fatalf("expected refreshed cache entry, got title=%q calls=%d", cached.Title, loader.calls.Load())
	}

	catalog.Delete("quiz-1")
	if _, err := repo.LoadQuiz(ctx, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("deleted quiz must be evicted from redis")
	}
}

func TestQuizRepositoryFallsBackWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewQuizCatalog(sampleQuiz())}
	repo := NewQuizRepository(client, loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-1",
		Title:    "Arithmetic",
		IsPublic: true,
		Questions: []domain.Question{
			{
				ID:          "q1",
				Text:        "What is 2 + 2?",
				Choices:     []string{"3", "4"},
				RightAnswer: 1,
				Points:      1,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
