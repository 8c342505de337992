package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrQuizNotFound, ErrNotFound},
		{ErrAttemptNotFound, ErrNotFound},
		{ErrUserNotFound, ErrNotFound},
		{ErrQuizNotVisible, ErrForbidden},
		{ErrNotAttemptOwner, ErrForbidden},
		{ErrAttemptFinished, ErrInvalidState},
		{ErrQuestionNotFound, ErrValidation},
		{ErrChoiceOutOfRange, ErrValidation},
		{ErrInvalidID, ErrValidation},
		{fmt.Errorf("load: %w", ErrQuizNotFound), ErrNotFound},
		{fmt.Errorf("%w: field", ErrValidation), ErrValidation},
		{errors.New("boom"), nil},
		{nil, nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), "%v", tc.err)
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrQuizNotFound, ErrAttemptNotFound))
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", ErrAttemptFinished), ErrAttemptFinished))
}
