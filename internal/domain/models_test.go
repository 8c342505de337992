package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptStatusTerminal(t *testing.T) {
	assert.False(t, StatusStarted.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusTimedOut.Terminal())
}

func TestQuizDeadline(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	_, limited := Quiz{}.Deadline(start)
	assert.False(t, limited)

	deadline, limited := Quiz{TimeLimit: 20}.Deadline(start)
	assert.True(t, limited)
	assert.Equal(t, start.Add(20*time.Minute), deadline)
}

func TestQuizMaxScore(t *testing.T) {
	quiz := Quiz{Questions: []Question{{Points: 3}, {Points: 0}, {Points: 7}}}
	assert.Equal(t, 10, quiz.MaxScore())
}

func TestAttemptClone(t *testing.T) {
	finish := time.Now()
	taken := 12
	a := Attempt{Answers: []Answer{{QuestionID: "q1"}}, FinishTime: &finish, TotalTimeTaken: &taken}

	b := a.Clone()
	b.Answers[0].QuestionID = "changed"
	*b.TotalTimeTaken = 99

	assert.Equal(t, "q1", a.Answers[0].QuestionID)
	assert.Equal(t, 12, *a.TotalTimeTaken)
	assert.NotSame(t, a.FinishTime, b.FinishTime)
}
