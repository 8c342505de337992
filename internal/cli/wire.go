package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/infra/postgres"
	redisstore "quiz-attempt-service/internal/infra/redis"
)

// components is the assembled service graph for one process.
type components struct {
	service *app.AttemptService
	sweeper *app.TimeoutSweeper
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// buildComponents picks a backend per concern: Postgres when configured, then
// Redis, then in-process memory seeded with sample quizzes.
func buildComponents(ctx context.Context, cfg config.Config, logger *slog.Logger) (*components, error) {
	c := &components{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
	}

	var (
		loader   memory.QuizLoader
		attempts app.AttemptRepository
		stats    app.AggregateUpdater
	)
	switch {
	case pool != nil:
		db := openBunDB(cfg.Postgres.URL)
		c.closers = append(c.closers, func() { _ = db.Close() })
		pgStats := postgres.NewStatsStore(pool)
		loader = postgres.NewQuizLoader(pool)
		attempts = postgres.NewAttemptStore(db)
		stats = app.NewStatsUpdater(pgStats, pgStats)
		logger.Info("using postgres storage")
	case redisClient != nil:
		redisStats := redisstore.NewStatsStore(redisClient)
		loader = memory.NewQuizCatalog(sampleQuizzes()...)
		attempts = redisstore.NewAttemptStore(redisClient)
		stats = app.NewStatsUpdater(redisStats, redisStats)
		logger.Info("using redis storage with sample quizzes")
	default:
		catalog := memory.NewQuizCatalog(sampleQuizzes()...)
		loader = catalog
		attempts = memory.NewAttemptStore()
		stats = app.NewStatsUpdater(catalog, memory.NewUserStatsStore())
		logger.Info("using in-memory storage with sample quizzes")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuizRepository
	if redisClient != nil {
		quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	c.service = app.NewAttemptService(attempts, quizzes, stats, app.WithLogger(logger))
	c.sweeper = app.NewTimeoutSweeper(attempts, quizzes, c.service, config.TTLDuration(cfg.Attempts.Grace, 0))
	return c, nil
}

// sampleQuizzes seeds deployments that have no quiz database.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:           "quiz-1",
			CreatorID:    "admin",
			Title:        "Warm-up arithmetic",
			Category:     "math",
			IsPublic:     true,
			TimeLimit:    5,
			PassingScore: 60,
			Questions: []domain.Question{
				{
					ID:          "q1",
					Text:        "What is 2 + 2?",
					Choices:     []string{"3", "4", "5"},
					RightAnswer: 1,
					Points:      10,
					Explanation: "2 + 2 = 4",
					Difficulty:  "easy",
				},
				{
					ID:          "q2",
					Text:        "What is 7 * 6?",
					Choices:     []string{"36", "42", "48", "56"},
					RightAnswer: 1,
					Points:      10,
					Difficulty:  "medium",
				},
			},
		},
	}
}
