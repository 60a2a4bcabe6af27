package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autobook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	storagePath := filepath.Join(t.TempDir(), "backups")

	cfg := config.DatabaseConfig{
		BackupDir:     storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(db, cfg, &logger)

	require.NoError(t, db.AddIgnored(context.Background(), "99"))

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.FileExists(t, path)

		files, err := os.ReadDir(storagePath)
		assert.NoError(t, err)
		assert.Len(t, files, 1)

		restored, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer restored.Close()
		ids, err := restored.ListIgnored(context.Background())
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "history_old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())

		files, err := os.ReadDir(storagePath)
		assert.NoError(t, err)
		assert.Len(t, files, 1)
		assert.NotEqual(t, "history_old.db", files[0].Name())
	})
}

func TestBackupService_NotConfigured(t *testing.T) {
	db := setupTestDB(t)
	logger := zerolog.Nop()
	s := NewBackupService(db, config.DatabaseConfig{}, &logger)

	_, err := s.PerformBackup(context.Background())
	assert.Error(t, err)
	assert.Zero(t, s.CleanupOldBackups())
}
