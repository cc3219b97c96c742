package services

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("invalid request")
	ErrConflict      = errors.New("conflict")
	ErrAuthorization = errors.New("access denied")
	ErrStorage       = errors.New("storage failure")
)

type errorKind struct {
	err  error
	name string
}

// Checked in order, the first match wins when an error wraps several kinds.
var errorKinds = []errorKind{
	{ErrNotFound, "not_found"},
	{ErrValidation, "validation"},
	{ErrConflict, "conflict"},
	{ErrAuthorization, "authorization"},
	{ErrStorage, "storage"},
}

func newError(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// ErrorKind names the taxonomy bucket of err, unknown errors count as storage failures.
func ErrorKind(err error) string {
	if kind, ok := lo.Find(errorKinds, func(kind errorKind) bool {
		return errors.Is(err, kind.err)
	}); ok {
		return kind.name
	}
	return "storage"
}

func isDomainError(err error) bool {
	return lo.SomeBy(errorKinds, func(kind errorKind) bool {
		return errors.Is(err, kind.err)
	})
}

// wrapStorage tags raw store errors as ErrStorage and leaves domain errors untouched.
func wrapStorage(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func wrapLookup(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(ErrNotFound, "%s was not found", what)
	}
	return wrapStorage(err)
}
