package domain

import "errors"

// Error kinds. Every error returned by the attempt use cases wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = newError(ErrNotFound, "quiz not found")
	// ErrAttemptNotFound is returned for unknown attempt ids.
	ErrAttemptNotFound = newError(ErrNotFound, "attempt not found")
	// ErrUserNotFound is returned by stats stores when the user record is missing.
	ErrUserNotFound = newError(ErrNotFound, "user not found")
	// ErrQuizNotVisible is returned when a private quiz is requested by someone other than its creator.
	ErrQuizNotVisible = newError(ErrForbidden, "not authorized to attempt this quiz")
	// ErrNotAttemptOwner is returned when a user acts on somebody else's attempt.
	ErrNotAttemptOwner = newError(ErrForbidden, "not authorized to access this attempt")
	// ErrAttemptFinished is returned for any transition on a completed or timed-out attempt.
	ErrAttemptFinished = newError(ErrInvalidState, "attempt already finished")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = newError(ErrValidation, "question not found in quiz")
	// ErrChoiceOutOfRange indicates the selected choice index does not exist.
	ErrChoiceOutOfRange = newError(ErrValidation, "selected choice out of range")
	// ErrInvalidID indicates a malformed attempt, quiz or user identifier.
	ErrInvalidID = newError(ErrValidation, "malformed identifier")
)

type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// KindOf reports which of the four error kinds err belongs to, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrForbidden, ErrInvalidState, ErrValidation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
