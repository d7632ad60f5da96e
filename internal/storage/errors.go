package storage

import (
	"context"
	"errors"
	"fmt"

	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/sentinel"
)

// Translate maps store sentinels onto client-facing codes. Errors that are
// already domain errors pass through untouched.
func Translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s not found", what))
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("concurrent write on %s", what))
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidTransition, fmt.Sprintf("%s is in the wrong state", what))
	case errors.Is(err, sentinel.ErrLockNotAcquired):
		return dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("%s is busy, retry", what))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTimeout, fmt.Sprintf("%s store unavailable", what))
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to access %s", what))
}
