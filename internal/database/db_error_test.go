package database

import (
	"context"
	"io"
	"testing"

	"autobook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close() // closed handle makes every query fail

	ctx := context.Background()

	t.Run("RecordAttempt_Error", func(t *testing.T) {
		err := db.RecordAttempt(ctx, &models.Attempt{RunID: "r"})
		assert.Error(t, err)
	})

	t.Run("ListAttempts_Error", func(t *testing.T) {
		_, err := db.ListAttempts(ctx, AttemptFilter{})
		assert.Error(t, err)
	})

	t.Run("OutcomeCounts_Error", func(t *testing.T) {
		_, err := db.OutcomeCounts(ctx)
		assert.Error(t, err)
	})

	t.Run("AddIgnored_Error", func(t *testing.T) {
		assert.Error(t, db.AddIgnored(ctx, "1"))
	})

	t.Run("ListIgnored_Error", func(t *testing.T) {
		_, err := db.ListIgnored(ctx)
		assert.Error(t, err)
	})

	t.Run("CrashFlag_Error", func(t *testing.T) {
		_, _, err := db.CrashFlag(ctx)
		assert.Error(t, err)
		assert.Error(t, db.SetCrashFlag(ctx, "x"))
		assert.Error(t, db.ClearCrashFlag(ctx))
	})
}

func TestNewDB_BadPath(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewDB("/dev/null/nested/history.db", &logger)
	assert.Error(t, err)
}
