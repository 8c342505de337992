package app

import (
	"testing"

	"quiz-attempt-service/internal/domain"
)

func TestCanViewQuiz(t *testing.T) {
	public := domain.Quiz{CreatorID: "owner", IsPublic: true}
	private := domain.Quiz{CreatorID: "owner"}

	if !CanViewQuiz(public, "anyone") {
		t.Fatalf("public quiz must be visible to anyone")
	}
	if !CanViewQuiz(private, "owner") {
		t.Fatalf("creator must see own private quiz")
	}
	if CanViewQuiz(private, "anyone") {
		t.Fatalf("private quiz must be hidden from others")
	}
}

func TestCanAccessAttempt(t *testing.T) {
	attempt := domain.Attempt{UserID: "u1"}

	cases := []struct {
		user string
		role domain.Role
		want bool
	}{
		{"u1", domain.RoleUser, true},
		{"root", domain.RoleAdmin, true},
		{"u2", domain.RoleUser, false},
		{"u2", domain.RoleCreator, false},
	}
	for _, tc := range cases {
		if got := CanAccessAttempt(attempt, tc.user, tc.role); got != tc.want {
			t.Fatalf("CanAccessAttempt(%s, %s) = %v, want %v", tc.user, tc.role, got, tc.want)
		}
	}
}
