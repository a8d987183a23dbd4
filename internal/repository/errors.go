package repository

import (
	"errors"
	"fmt"
)

var (
	ErrGoalNotFound     = errors.New("goal not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrVersionConflict  = errors.New("goal was modified concurrently")
	ErrStoreUnavailable = errors.New("goal store unavailable")
)

// Unavailable marks an infrastructure failure of the backing store.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
