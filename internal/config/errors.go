// Package config implements merging, path updates, category mapping and validation of the
// settings record.
package config

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidPath is returned when an update names a field the record does not have.
	ErrInvalidPath = errors.New("unknown settings path")

	// ErrInvalidValue is returned when a value cannot be stored in its field or the
	// resulting record fails validation.
	ErrInvalidValue = errors.New("invalid settings value")

	// ErrEmptySystemName is returned when the system name is blank.
	ErrEmptySystemName = errors.New("system name cannot be empty")

	// ErrInvalidVersion is returned when the version is not a semantic version.
	ErrInvalidVersion = errors.New("version must be a semantic version")

	// ErrOutOfRange is returned when a numeric field is outside its allowed range.
	ErrOutOfRange = errors.New("value out of range")
)

// invalidValueError lets a specific validation error also match ErrInvalidValue.
type invalidValueError struct {
	err error
}

func invalidValue(err error) error {
	return &invalidValueError{err: err}
}

func (e *invalidValueError) Error() string {
	return e.err.Error()
}

func (e *invalidValueError) Unwrap() error {
	return e.err
}

func (*invalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}
