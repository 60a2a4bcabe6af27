package service

import (
	"errors"
	"fmt"
)

var (
	// ErrPriorCrash is returned when a crash flag from an earlier run blocks execution.
	ErrPriorCrash = errors.New("crash flag is set by a previous run, clear it with `autobook crash clear`")
	// ErrAlreadyRunning is returned when another run holds the run lock.
	ErrAlreadyRunning = errors.New("another run is in progress")
)

// AuthenticationError means no valid credential could be obtained in this
// run. The crash flag has been raised by the time it is returned.
type AuthenticationError struct {
	Stage string
	Err   error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed during %s: %v", e.Stage, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
