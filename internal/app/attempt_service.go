package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"quiz-attempt-service/internal/domain"
)

// QuizRepository loads quiz content. GetQuiz may answer from a cache; LoadQuiz
// always reads the backing store and is used wherever answers get graded.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRepository persists attempts.
//
// Update loads the current attempt, hands it to fn and stores the result. It is
// the only mutation path after Create and must be atomic per attempt: fn always
// sees the latest committed state, and when fn returns an error nothing is written.
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	Update(ctx context.Context, attemptID string, fn func(*domain.Attempt) error) (domain.Attempt, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Attempt, error)
	ListActive(ctx context.Context) ([]domain.Attempt, error)
}

// AggregateUpdater is invoked after an attempt has been durably completed.
type AggregateUpdater interface {
	Apply(ctx context.Context, c domain.Completion) error
}

// AttemptService drives the attempt state machine:
// started -> in-progress -> completed | timed-out.
type AttemptService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	stats    AggregateUpdater
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	intn     func(n int) int
}

// Option customises an AttemptService.
type Option func(*AttemptService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AttemptService) { s.now = now }
}

// WithLogger replaces slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *AttemptService) { s.logger = logger }
}

// WithRandom sets the randomness source used to shuffle question order.
func WithRandom(intn func(n int) int) Option {
	return func(s *AttemptService) { s.intn = intn }
}

func NewAttemptService(attempts AttemptRepository, quizzes QuizRepository, stats AggregateUpdater, opts ...Option) *AttemptService {
	s := &AttemptService{
		attempts: attempts,
		quizzes:  quizzes,
		stats:    stats,
		logger:   slog.Default(),
		validate: validator.New(),
		now:      time.Now,
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates an attempt for requesterID and returns the answer-free view of the quiz.
func (s *AttemptService) Start(ctx context.Context, quizID, requesterID string) (domain.StartResult, error) {
	if quizID == "" || requesterID == "" {
		return domain.StartResult{}, domain.ErrInvalidID
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.StartResult{}, err
	}
	if !CanViewQuiz(quiz, requesterID) {
		return domain.StartResult{}, domain.ErrQuizNotVisible
	}

	now := s.now()
	attempt := domain.Attempt{
		ID:        uuid.NewString(),
		UserID:    requesterID,
		QuizID:    quiz.ID,
		Answers:   []domain.Answer{},
		Status:    domain.StatusStarted,
		StartTime: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return domain.StartResult{}, fmt.Errorf("create attempt: %w", err)
	}

	s.logger.Info("attempt started", "attempt_id", attempt.ID, "quiz_id", quiz.ID, "user_id", requesterID)
	return domain.StartResult{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
		Quiz:      BuildSnapshot(quiz, s.intn),
	}, nil
}

// SubmitAnswer grades one answer and records it, replacing any earlier answer to
// the same question.
func (s *AttemptService) SubmitAnswer(ctx context.Context, attemptID, requesterID string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if err := checkIDs(attemptID, requesterID); err != nil {
		return domain.AnswerResult{}, err
	}
	if err := s.validate.Struct(sub); err != nil {
		return domain.AnswerResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	attempt, err := s.ownedActiveAttempt(ctx, attemptID, requesterID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	quiz, err := s.quizzes.LoadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	question, ok := quiz.Question(sub.QuestionID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	if sub.SelectedChoice >= len(question.Choices) {
		return domain.AnswerResult{}, domain.ErrChoiceOutOfRange
	}

	answer := gradeAnswer(question, sub)
	now := s.now()
	_, err = s.attempts.Update(ctx, attemptID, func(a *domain.Attempt) error {
		if a.Status.Terminal() {
			return domain.ErrAttemptFinished
		}
		ledger := domain.NewAnswerLedger(a.Answers)
		ledger.Upsert(answer)
		a.Answers = ledger.Answers()
		a.Status = domain.StatusInProgress
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}

	return domain.AnswerResult{
		QuestionID:   question.ID,
		IsCorrect:    answer.IsCorrect,
		PointsEarned: answer.PointsEarned,
		Explanation:  question.Explanation,
	}, nil
}

// Complete scores the attempt, persists it as completed and then updates the
// quiz and user aggregates. Aggregate failures are logged, never returned.
func (s *AttemptService) Complete(ctx context.Context, attemptID, requesterID string) (domain.Score, error) {
	if err := checkIDs(attemptID, requesterID); err != nil {
		return domain.Score{}, err
	}
	attempt, err := s.ownedActiveAttempt(ctx, attemptID, requesterID)
	if err != nil {
		return domain.Score{}, err
	}

	finished, score, err := s.finalize(ctx, attempt, domain.StatusCompleted)
	if err != nil {
		return domain.Score{}, err
	}

	if s.stats != nil {
		completion := domain.Completion{
			AttemptID:       finished.ID,
			QuizID:          finished.QuizID,
			UserID:          finished.UserID,
			PercentageScore: finished.PercentageScore,
		}
		if err := s.stats.Apply(ctx, completion); err != nil {
			s.logger.Warn("aggregate stats update failed", "attempt_id", finished.ID, "quiz_id", finished.QuizID, "err", err)
		}
	}
	return score, nil
}

// Timeout finalizes an attempt as timed-out. It is the server-side counterpart
// of Complete; whichever reaches the store first wins and the other gets
// ErrAttemptFinished. Timed-out attempts do not feed the aggregates.
func (s *AttemptService) Timeout(ctx context.Context, attemptID string) (domain.Score, error) {
	if _, err := uuid.Parse(attemptID); err != nil {
		return domain.Score{}, domain.ErrInvalidID
	}
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Score{}, err
	}
	if attempt.Status.Terminal() {
		return domain.Score{}, domain.ErrAttemptFinished
	}
	_, score, err := s.finalize(ctx, attempt, domain.StatusTimedOut)
	return score, err
}

// GetAttempt returns the full attempt record to its owner or an admin.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID, requesterID string, role domain.Role) (domain.Attempt, error) {
	if err := checkIDs(attemptID, requesterID); err != nil {
		return domain.Attempt{}, err
	}
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if !CanAccessAttempt(attempt, requesterID, role) {
		return domain.Attempt{}, domain.ErrNotAttemptOwner
	}
	return attempt, nil
}

// ListAttempts returns the requester's attempts, newest first.
func (s *AttemptService) ListAttempts(ctx context.Context, requesterID string) ([]domain.Attempt, error) {
	if requesterID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.attempts.ListByUser(ctx, requesterID)
}

// finalize re-reads the quiz from the backing store, scores against it and performs the single terminal
// transition. If the quiz is gone the attempt is left untouched.
func (s *AttemptService) finalize(ctx context.Context, attempt domain.Attempt, status domain.AttemptStatus) (domain.Attempt, domain.Score, error) {
	quiz, err := s.quizzes.LoadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Attempt{}, domain.Score{}, err
	}

	now := s.now()
	var score domain.Score
	finished, err := s.attempts.Update(ctx, attempt.ID, func(a *domain.Attempt) error {
		if a.Status.Terminal() {
			return domain.ErrAttemptFinished
		}
		score = ScoreAttempt(a.Answers, quiz, a.StartTime, now)
		finishTime := now
		taken := score.TotalTimeTaken
		a.TotalScore = score.TotalScore
		a.PercentageScore = score.PercentageScore
		a.Passed = score.Passed
		a.FinishTime = &finishTime
		a.TotalTimeTaken = &taken
		a.Status = status
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Attempt{}, domain.Score{}, err
	}

	s.logger.Info("attempt finished",
		"attempt_id", finished.ID,
		"status", finished.Status,
		"total_score", score.TotalScore,
		"percentage", score.PercentageScore,
		"passed", score.Passed,
	)
	return finished, score, nil
}

func (s *AttemptService) ownedActiveAttempt(ctx context.Context, attemptID, requesterID string) (domain.Attempt, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != requesterID {
		return domain.Attempt{}, domain.ErrNotAttemptOwner
	}
	if attempt.Status.Terminal() {
		return domain.Attempt{}, domain.ErrAttemptFinished
	}
	return attempt, nil
}

// gradeAnswer compares the selected choice with the answer key.
func gradeAnswer(question domain.Question, sub domain.AnswerSubmission) domain.Answer {
	correct := sub.SelectedChoice == question.RightAnswer
	points := 0
	if correct {
		points = question.Points
	}
	return domain.Answer{
		QuestionID:     question.ID,
		SelectedChoice: sub.SelectedChoice,
		IsCorrect:      correct,
		PointsEarned:   points,
		TimeTaken:      sub.TimeTaken,
	}
}

func checkIDs(attemptID, requesterID string) error {
	if requesterID == "" {
		return domain.ErrInvalidID
	}
	if _, err := uuid.Parse(attemptID); err != nil {
		return domain.ErrInvalidID
	}
	return nil
}
