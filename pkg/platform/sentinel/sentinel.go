package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors:
//   - ErrNotFound: row does not exist
//   - ErrConflict: unique key or optimistic check failed
//   - ErrInvalidState: row is in the wrong state for the write
//   - ErrUnavailable: backing service temporarily unreachable
//   - ErrLockNotAcquired: an allocation lease is held elsewhere
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
	ErrLockNotAcquired = errors.New("lock not acquired")
)
