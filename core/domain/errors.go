package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when a remote system rejects the credentials.
	// It aborts the whole run.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotFound is returned when a remote lookup matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned when a remote system kept throttling after all retries.
	ErrRateLimited = errors.New("rate limited")
	// ErrLockTimeout is returned when the store could not acquire a lock within its bound.
	// It aborts the whole run.
	ErrLockTimeout = errors.New("store lock timeout")
	// ErrNoContact is returned when an order has no resolvable destination contact.
	ErrNoContact = errors.New("no destination contact for order")
)

// RemoteCallError is returned when a remote call failed after exhausting its retries.
type RemoteCallError struct {
	Service   string
	Operation string
	Attempts  int
	Err       error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Service, e.Operation, e.Attempts, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// ValidationError is a rejection of the payload by a remote system, such as a duplicate name.
type ValidationError struct {
	Service string
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s rejected request (%d): %s", e.Service, e.Status, e.Message)
}

// IsFatal reports whether err must abort the current run instead of being recorded per entity.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrLockTimeout)
}

// IsNotFound reports whether err means a lookup found nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
