package services

import (
	"errors"
	"fmt"

	"github.com/dimitrije/teamboard/internal/docstore"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	// ErrInvalidCode also matches ErrNotFound.
	ErrInvalidCode = fmt.Errorf("invalid invite code: %w", ErrNotFound)
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// storeError maps a missing document onto ErrNotFound and wraps everything
// else with context.
func storeError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
