package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"autobook/internal/domain"

	"github.com/gofrs/flock"
)

// FileRunLock is an advisory flock on a file next to the crash flag. The
// kernel drops the lock when the holder exits, so a killed run leaves no
// stale lock behind. The file itself is left in place.
type FileRunLock struct {
	path string
}

func NewFileRunLock(path string) *FileRunLock {
	return &FileRunLock{path: path}
}

func (l *FileRunLock) Acquire(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", l.path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", domain.ErrLocked, l.path)
	}

	return fl.Unlock, nil
}

// NopRunLock never blocks. Used with the memory driver.
type NopRunLock struct{}

func (NopRunLock) Acquire(ctx context.Context) (func() error, error) {
	return func() error { return nil }, nil
}
