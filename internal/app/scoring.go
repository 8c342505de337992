package app

import (
	"time"

	"github.com/shopspring/decimal"
	"quiz-attempt-service/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ScoreAttempt computes the final numbers for an attempt. Unanswered questions
// earn nothing but still count toward the maximum.
func ScoreAttempt(answers []domain.Answer, quiz domain.Quiz, start, finish time.Time) domain.Score {
	total := domain.NewAnswerLedger(answers).PointsEarned()
	if total < 0 {
		total = 0
	}
	pct := Percentage(total, quiz.MaxScore())
	return domain.Score{
		TotalScore:      total,
		PercentageScore: pct,
		Passed:          pct >= quiz.PassingScore,
		TotalTimeTaken:  ElapsedSeconds(start, finish),
	}
}

// Percentage rounds earned/possible*100 half-up into [0,100]. A zero maximum yields 0.
func Percentage(earned, possible int) int {
	if possible <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(earned)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(possible))).
		Round(0).
		IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// ElapsedSeconds rounds finish-start to whole seconds, half-up.
func ElapsedSeconds(start, finish time.Time) int {
	ms := finish.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(ms).Div(decimal.NewFromInt(1000)).Round(0).IntPart())
}
