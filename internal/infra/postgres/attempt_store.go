package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quiz-attempt-service/internal/domain"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID              string          `bun:"id,pk,type:uuid"`
	UserID          string          `bun:"user_id,notnull"`
	QuizID          string          `bun:"quiz_id,notnull"`
	Answers         []domain.Answer `bun:"answers,type:jsonb,notnull"`
	TotalScore      int             `bun:"total_score,notnull"`
	PercentageScore int             `bun:"percentage_score,notnull"`
	Passed          bool            `bun:"passed,notnull"`
	Status          string          `bun:"status,notnull"`
	StartTime       time.Time       `bun:"start_time,notnull"`
	FinishTime      *time.Time      `bun:"finish_time"`
	TotalTimeTaken  *int            `bun:"total_time_taken"`
	Feedback        string          `bun:"feedback,nullzero"`
	CreatedAt       time.Time       `bun:"created_at,notnull"`
	UpdatedAt       time.Time       `bun:"updated_at,notnull"`
}

func rowFromAttempt(a domain.Attempt) *attemptRow {
	answers := a.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}
	return &attemptRow{
		ID:              a.ID,
		UserID:          a.UserID,
		QuizID:          a.QuizID,
		Answers:         answers,
		TotalScore:      a.TotalScore,
		PercentageScore: a.PercentageScore,
		Passed:          a.Passed,
		Status:          string(a.Status),
		StartTime:       a.StartTime,
		FinishTime:      a.FinishTime,
		TotalTimeTaken:  a.TotalTimeTaken,
		Feedback:        a.Feedback,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (r *attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:              r.ID,
		UserID:          r.UserID,
		QuizID:          r.QuizID,
		Answers:         r.Answers,
		TotalScore:      r.TotalScore,
		PercentageScore: r.PercentageScore,
		Passed:          r.Passed,
		Status:          domain.AttemptStatus(r.Status),
		StartTime:       r.StartTime,
		FinishTime:      r.FinishTime,
		TotalTimeTaken:  r.TotalTimeTaken,
		Feedback:        r.Feedback,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

var activeStatuses = []string{string(domain.StatusStarted), string(domain.StatusInProgress)}

// AttemptStore persists attempts through bun.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) error {
	if _, err := s.db.NewInsert().Model(rowFromAttempt(attempt)).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := new(attemptRow)
	err := s.db.NewSelect().Model(row).Where("a.id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("select attempt: %w", err)
	}
	return row.toDomain(), nil
}

// Update holds a row lock (SELECT ... FOR UPDATE) while fn runs, so racing
// submissions and terminal transitions are applied one at a time.
func (s *AttemptStore) Update(ctx context.Context, attemptID string, fn func(*domain.Attempt) error) (domain.Attempt, error) {
	var updated domain.Attempt
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(attemptRow)
		err := tx.NewSelect().Model(row).Where("a.id = ?", attemptID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("lock attempt: %w", err)
		}

		next := row.toDomain()
		if err := fn(&next); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model(rowFromAttempt(next)).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update attempt: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return updated, nil
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().Model(&rows).
		Where("a.user_id = ?", userID).
		Order("a.start_time DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user attempts: %w", err)
	}
	return toDomainList(rows), nil
}

func (s *AttemptStore) ListActive(ctx context.Context) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().Model(&rows).
		Where("a.status IN (?)", bun.In(activeStatuses)).
		Order("a.start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active attempts: %w", err)
	}
	return toDomainList(rows), nil
}

func toDomainList(rows []attemptRow) []domain.Attempt {
	out := make([]domain.Attempt, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out
}
