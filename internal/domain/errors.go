package domain

import "errors"

// ErrLocked is returned by a RunLocker whose lock is already held.
var ErrLocked = errors.New("run lock is held by another process")
