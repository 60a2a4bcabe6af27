package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"autobook/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRunLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crash.flag.lock")

	first := NewFileRunLock(path)
	release, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = NewFileRunLock(path).Acquire(ctx)
	assert.ErrorIs(t, err, domain.ErrLocked)

	require.NoError(t, release())

	release, err = NewFileRunLock(path).Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release())
	require.NoError(t, release())
}

func TestFileRunLockIgnoresLeftoverFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crash.flag.lock")
	// a run killed mid-way leaves the file but no kernel lock
	require.NoError(t, os.WriteFile(path, []byte("999999\n"), 0o644))

	for i := 0; i < 3; i++ {
		release, err := NewFileRunLock(path).Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, release())
	}
}

func TestFileRunLockCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileRunLock(filepath.Join(t.TempDir(), "run.lock")).Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNopRunLock(t *testing.T) {
	release, err := NopRunLock{}.Acquire(context.Background())
	require.NoError(t, err)
	assert.NoError(t, release())
}
