package app

import "quiz-attempt-service/internal/domain"

// BuildSnapshot strips the answer key from quiz. When the quiz asks for it the
// display order is shuffled with intn as the randomness source; question ids are
// kept so grading never depends on position.
func BuildSnapshot(quiz domain.Quiz, intn func(n int) int) domain.QuizSnapshot {
	views := make([]domain.QuestionView, len(quiz.Questions))
	for i, q := range quiz.Questions {
		choices := make([]string, len(q.Choices))
		copy(choices, q.Choices)
		views[i] = domain.QuestionView{
			ID:         q.ID,
			Text:       q.Text,
			Choices:    choices,
			Points:     q.Points,
			Difficulty: q.Difficulty,
		}
	}

	if quiz.ShuffleQuestions && intn != nil {
		shuffle(views, intn)
	}

	return domain.QuizSnapshot{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Category:    quiz.Category,
		TimeLimit:   quiz.TimeLimit,
		Questions:   views,
	}
}

// shuffle is a Fisher-Yates permutation.
func shuffle[T any](items []T, intn func(n int) int) {
	for i := len(items) - 1; i > 0; i-- {
		j := intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
