package store

import (
	"errors"

	"github.com/sudo-init-do/taskmarket/internal/apperr"
)

// AppError classifies store sentinels for callers; errors that are already
// classified pass through and anything else becomes an internal failure.
func AppError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("%s not found", entity)
	case errors.Is(err, ErrStatusMismatch):
		return apperr.InvalidState("%s was modified concurrently", entity)
	case errors.Is(err, ErrConflict):
		return apperr.Conflict("%s conflicts with an existing record", entity)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err, "failed to access "+entity)
}
