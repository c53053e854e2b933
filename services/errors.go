package services

import (
	"errors"
	"fmt"
)

// Error kinds returned by the progress engine. Validation errors are expected,
// recoverable outcomes; ErrStoreUnavailable wraps any persistence failure and
// is fatal for the calling operation. Callers match with errors.Is.
var (
	ErrInvalidCourse           = errors.New("course not found")
	ErrInvalidChapter          = errors.New("chapter not found")
	ErrAlreadyStarted          = errors.New("course already started")
	ErrChapterProgressNotFound = errors.New("chapter progress not found")
	ErrStoreUnavailable        = errors.New("store unavailable")
)

// storeErr wraps an underlying persistence failure.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
