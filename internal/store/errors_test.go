package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
)

func TestAppError(t *testing.T) {
	assert.NoError(t, AppError(nil, "task"))

	err := AppError(fmt.Errorf("find: %w", ErrNotFound), "task")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "task not found", apperr.As(err).Message)

	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(AppError(ErrStatusMismatch, "bid")))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(AppError(ErrConflict, "user")))

	forbidden := apperr.Forbidden("nope")
	assert.Same(t, forbidden, AppError(forbidden, "task"))

	internal := AppError(errors.New("tcp reset"), "payment")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(internal))
	assert.Equal(t, "failed to access payment", apperr.As(internal).Message)
}
