package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound signals an absent record. Callers match it with
// errors.Is; absence is an expected outcome, not a failure.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict signals a guarded write that lost a concurrent
// update race. Callers reload and retry or surface a conflict.
var ErrVersionConflict = errors.New("version conflict")

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
