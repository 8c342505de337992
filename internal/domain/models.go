package domain

import "time"

// AttemptStatus is the lifecycle state of an attempt.
type AttemptStatus string

const (
	StatusStarted    AttemptStatus = "started"
	StatusInProgress AttemptStatus = "in-progress"
	StatusCompleted  AttemptStatus = "completed"
	StatusTimedOut   AttemptStatus = "timed-out"
)

// Terminal reports whether no further transition is allowed from s.
func (s AttemptStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusTimedOut
}

// Role of the requester as supplied by the (already verified) calling layer.
type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// Question models an MCQ question; RightAnswer indexes Choices.
type Question struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Choices     []string `json:"choices"`
	RightAnswer int      `json:"rightAnswer"`
	Points      int      `json:"points"`
	Explanation string   `json:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// Quiz is the read model handed to us by quiz management.
type Quiz struct {
	ID               string     `json:"id"`
	CreatorID        string     `json:"creatorId"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Category         string     `json:"category,omitempty"`
	IsPublic         bool       `json:"isPublic"`
	ShuffleQuestions bool       `json:"shuffleQuestions"`
	TimeLimit        int        `json:"timeLimit"` // minutes, 0 means unlimited
	PassingScore     int        `json:"passingScore"`
	Questions        []Question `json:"questions"`

	// Aggregates, mutated only through a StatsStore.
	Attempts int     `json:"attempts"`
	AvgScore float64 `json:"avgScore"`
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// MaxScore is the sum of points over every question of the quiz.
func (q Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Deadline returns when an attempt started at start runs out of time.
func (q Quiz) Deadline(start time.Time) (time.Time, bool) {
	if q.TimeLimit <= 0 {
		return time.Time{}, false
	}
	return start.Add(time.Duration(q.TimeLimit) * time.Minute), true
}

// QuestionView is a question stripped of its answer key.
type QuestionView struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Choices    []string `json:"choices"`
	Points     int      `json:"points"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// QuizSnapshot is what a user sees while attempting a quiz.
type QuizSnapshot struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	TimeLimit   int            `json:"timeLimit"`
	Questions   []QuestionView `json:"questions"`
}

// Answer is one graded response within an attempt.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedChoice int    `json:"selectedChoice"`
	IsCorrect      bool   `json:"isCorrect"`
	PointsEarned   int    `json:"pointsEarned"`
	TimeTaken      int    `json:"timeTaken"`
}

// Attempt is one user's single pass through one quiz.
type Attempt struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	QuizID          string        `json:"quizId"`
	Answers         []Answer      `json:"answers"`
	TotalScore      int           `json:"totalScore"`
	PercentageScore int           `json:"percentageScore"`
	Passed          bool          `json:"passed"`
	Status          AttemptStatus `json:"status"`
	StartTime       time.Time     `json:"startTime"`
	FinishTime      *time.Time    `json:"finishTime,omitempty"`
	TotalTimeTaken  *int          `json:"totalTimeTaken,omitempty"`
	Feedback        string        `json:"feedback,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// AnswerSubmission models one submitAnswer call from a client.
type AnswerSubmission struct {
	QuestionID     string `json:"questionId" validate:"required"`
	SelectedChoice int    `json:"selectedChoice" validate:"gte=0"`
	TimeTaken      int    `json:"timeTaken" validate:"gte=0"`
}

// AnswerResult is returned to the client after each submission.
type AnswerResult struct {
	QuestionID   string `json:"questionId"`
	IsCorrect    bool   `json:"isCorrect"`
	PointsEarned int    `json:"pointsEarned"`
	Explanation  string `json:"explanation,omitempty"`
}

// StartResult is returned when an attempt is created.
type StartResult struct {
	AttemptID string        `json:"attemptId"`
	Status    AttemptStatus `json:"status"`
	Quiz      QuizSnapshot  `json:"quiz"`
}

// Score is the outcome of the scoring engine.
type Score struct {
	TotalScore      int  `json:"totalScore"`
	PercentageScore int  `json:"percentageScore"`
	Passed          bool `json:"passed"`
	TotalTimeTaken  int  `json:"totalTimeTaken"`
}

// Completion carries what aggregate counters need from a completed attempt.
type Completion struct {
	AttemptID       string
	QuizID          string
	UserID          string
	PercentageScore int
}

// QuizStats are the denormalized counters kept on a quiz.
type QuizStats struct {
	Attempts int     `json:"attempts"`
	AvgScore float64 `json:"avgScore"`
}

// UserStats are the denormalized counters kept on a user.
type UserStats struct {
	UserID       string `json:"userId"`
	QuizzesTaken int    `json:"quizzesTaken"`
}

// Clone returns a copy of a that shares no mutable state with it.
func (a Attempt) Clone() Attempt {
	out := a
	if a.Answers != nil {
		out.Answers = make([]Answer, len(a.Answers))
		copy(out.Answers, a.Answers)
	}
	if a.FinishTime != nil {
		t := *a.FinishTime
		out.FinishTime = &t
	}
	if a.TotalTimeTaken != nil {
		n := *a.TotalTimeTaken
		out.TotalTimeTaken = &n
	}
	return out
}
