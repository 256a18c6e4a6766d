// Package continuity chains fallible steps: each step runs only if every
// step before it succeeded, and a failure is reported wrapped with the name
// of the step that caused it. The shard writers use it to run a
// write/sync/close sequence without a ladder of error checks.
package continuity

import (
	"fmt"
	"strings"
)

type IfThen struct {
	failedAt ErrArray
}

type ErrArray []error

func (e ErrArray) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	errs := make([]string, len(e))
	for i, err := range e {
		errs[i] = err.Error()
	}
	return "multiple errors: " + strings.Join(errs, ", ")
}

// Unwrap exposes the collected errors to errors.Is/errors.As.
func (e ErrArray) Unwrap() []error {
	return e
}

func New() *IfThen {
	return new(IfThen)
}

// Thenf runs f unless an earlier step already failed. A non-nil result is
// recorded wrapped with name, so the failing step is identifiable from the
// final error.
func (it *IfThen) Thenf(name string, f func() error) *IfThen {
	if len(it.failedAt) > 0 {
		return it
	}
	if err := f(); err != nil {
		it.failedAt = append(it.failedAt, fmt.Errorf("%s: %w", name, err))
	}
	return it
}

// Then records any non-nil errors among errs under name, unless an earlier
// step already failed.
func (it *IfThen) Then(name string, errs ...error) *IfThen {
	if len(it.failedAt) > 0 {
		return it
	}
	for _, err := range errs {
		if err != nil {
			it.failedAt = append(it.failedAt, fmt.Errorf("%s: %w", name, err))
		}
	}
	return it
}

func (it *IfThen) Err() error {
	if len(it.failedAt) == 0 {
		return nil
	}
	return it.failedAt
}
