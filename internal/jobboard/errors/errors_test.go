package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesInvalidInput(t *testing.T) {
	err := fmt.Errorf("create job: %w", Validation("title", "is required"))

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrConflict)

	var verr *ValidationError
	assert.True(t, stderrors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, "invalid input: title: is required", verr.Error())
}

func TestConflictErrorCarriesCurrentState(t *testing.T) {
	current := struct{ Status string }{Status: "hired"}
	err := fmt.Errorf("withdraw: %w", Conflict("application is terminal", current))

	assert.ErrorIs(t, err, ErrConflict)

	var cerr *ConflictError
	assert.True(t, stderrors.As(err, &cerr))
	assert.Equal(t, current, cerr.Current)
}
