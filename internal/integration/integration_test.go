package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/postgres"
	pgmigrations "quiz-attempt-service/internal/infra/postgres/migrations"
	infraredis "quiz-attempt-service/internal/infra/redis"
)

type stack struct {
	service  *app.AttemptService
	sweeper  *app.TimeoutSweeper
	stats    *postgres.StatsStore
	attempts *postgres.AttemptStore
	quizzes  *postgres.QuizLoader
	now      *time.Time
	mu       *sync.Mutex
}

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateDB(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	s := newStack(pool, db, redisClient)
	if err := s.quizzes.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	if _, err := s.stats.UserStats(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected no counter row before the first completion, got %v", err)
	}

	t.Run("complete", func(t *testing.T) {
		started, err := s.service.Start(ctx, "quiz-1", "u1")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		for _, sub := range []domain.AnswerSubmission{
			{QuestionID: "q1", SelectedChoice: 0, TimeTaken: 2},
			{QuestionID: "q1", SelectedChoice: 1, TimeTaken: 4},
			{QuestionID: "q2", SelectedChoice: 0, TimeTaken: 6},
		} {
			if _, err := s.service.SubmitAnswer(ctx, started.AttemptID, "u1", sub); err != nil {
				t.Fatalf("submit %s: %v", sub.QuestionID, err)
			}
		}
		if _, err := s.service.SubmitAnswer(ctx, started.AttemptID, "u2", domain.AnswerSubmission{QuestionID: "q2"}); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}

		s.advance(42 * time.Second)
		score, err := s.service.Complete(ctx, started.AttemptID, "u1")
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		want := domain.Score{TotalScore: 10, PercentageScore: 50, Passed: false, TotalTimeTaken: 42}
		if score != want {
			t.Fatalf("expected %+v, got %+v", want, score)
		}
		if _, err := s.service.Complete(ctx, started.AttemptID, "u1"); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}

		attempt, err := s.service.GetAttempt(ctx, started.AttemptID, "u1", domain.RoleUser)
		if err != nil {
			t.Fatalf("get attempt: %v", err)
		}
		if attempt.Status != domain.StatusCompleted || len(attempt.Answers) != 2 || attempt.Answers[0].SelectedChoice != 1 {
			t.Fatalf("unexpected stored attempt %+v", attempt)
		}

		quiz, err := s.quizzes.LoadQuiz(ctx, "quiz-1")
		if err != nil {
			t.Fatalf("load quiz: %v", err)
		}
		if quiz.Attempts != 1 || quiz.AvgScore != 50 {
			t.Fatalf("expected attempts=1 avg=50, got %d %v", quiz.Attempts, quiz.AvgScore)
		}
		user, err := s.stats.UserStats(ctx, "u1")
		if err != nil {
			t.Fatalf("user stats: %v", err)
		}
		if user.QuizzesTaken != 1 {
			t.Fatalf("expected quizzesTaken=1, got %d", user.QuizzesTaken)
		}
	})

	t.Run("complete races timeout", func(t *testing.T) {
		started, err := s.service.Start(ctx, "quiz-1", "u2")
		if err != nil {
			t.Fatalf("start: %v", err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() { defer wg.Done(); _, errs[0] = s.service.Complete(ctx, started.AttemptID, "u2") }()
		go func() { defer wg.Done(); _, errs[1] = s.service.Timeout(ctx, started.AttemptID) }()
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else if !errors.Is(err, domain.ErrInvalidState) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winner, got %v", errs)
		}
	})

	t.Run("sweep", func(t *testing.T) {
		started, err := s.service.Start(ctx, "quiz-1", "u1")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		s.advance(31 * time.Minute)

		n, err := s.sweeper.Sweep(ctx)
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if n < 1 {
			t.Fatalf("expected the overdue attempt to be swept")
		}
		attempt, err := s.attempts.Get(ctx, started.AttemptID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if attempt.Status != domain.StatusTimedOut {
			t.Fatalf("expected timed-out, got %s", attempt.Status)
		}

		list, err := s.service.ListAttempts(ctx, "u1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != started.AttemptID {
			t.Fatalf("expected newest attempt first, got %d attempts", len(list))
		}
	})

	t.Run("user counter accumulates", func(t *testing.T) {
		started, err := s.service.Start(ctx, "quiz-1", "u1")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := s.service.Complete(ctx, started.AttemptID, "u1"); err != nil {
			t.Fatalf("complete: %v", err)
		}
		user, err := s.stats.UserStats(ctx, "u1")
		if err != nil {
			t.Fatalf("user stats: %v", err)
		}
		if user.QuizzesTaken != 2 {
			t.Fatalf("expected quizzesTaken=2, got %d", user.QuizzesTaken)
		}
	})
}

func newStack(pool *pgxpool.Pool, db *bun.DB, redisClient *goredis.Client) *stack {
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := &stack{
		stats:    postgres.NewStatsStore(pool),
		attempts: postgres.NewAttemptStore(db),
		quizzes:  postgres.NewQuizLoader(pool),
		now:      &now,
		mu:       &sync.Mutex{},
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, s.quizzes, 5*time.Minute)
	s.service = app.NewAttemptService(s.attempts, quizRepo, app.NewStatsUpdater(s.stats, s.stats), app.WithClock(s.clock))
	s.sweeper = app.NewTimeoutSweeper(s.attempts, quizRepo, s.service, 0)
	return s
}

func (s *stack) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.now
}

func (s *stack) advance(d time.Duration) {
	s.mu.Lock()
	*s.now = s.now.Add(d)
	s.mu.Unlock()
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		CreatorID:    "author",
		Title:        "Arithmetic",
		IsPublic:     true,
		TimeLimit:    30,
		PassingScore: 60,
		Questions: []domain.Question{
			{ID: "q1", Text: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, RightAnswer: 1, Points: 10},
			{ID: "q2", Text: "What is 3 * 3?", Choices: []string{"6", "9"}, RightAnswer: 1, Points: 10},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
