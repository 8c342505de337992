package app

import "quiz-attempt-service/internal/domain"

// CanViewQuiz reports whether requesterID may see and attempt quiz.
func CanViewQuiz(quiz domain.Quiz, requesterID string) bool {
	return quiz.IsPublic || quiz.CreatorID == requesterID
}

// CanAccessAttempt reports whether the requester may read attempt.
// Credentials are verified upstream; this only checks ownership and role.
func CanAccessAttempt(attempt domain.Attempt, requesterID string, role domain.Role) bool {
	return attempt.UserID == requesterID || role == domain.RoleAdmin
}
