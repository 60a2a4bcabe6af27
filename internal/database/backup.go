package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autobook/internal/config"

	"github.com/rs/zerolog"
)

// BackupService snapshots the history database with VACUUM INTO.
// It runs on demand from the CLI; scheduling is left to cron.
type BackupService struct {
	db     *DB
	config config.DatabaseConfig
	logger *zerolog.Logger
}

func NewBackupService(db *DB, cfg config.DatabaseConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// PerformBackup writes a timestamped copy into the backup directory and
// returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if s.config.BackupDir == "" {
		return "", fmt.Errorf("database.backup_dir is not configured")
	}
	if err := os.MkdirAll(s.config.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.BackupDir, fmt.Sprintf("history_%s.db", timestamp))

	s.logger.Info().Str("path", backupPath).Msg("Performing database backup using VACUUM INTO")

	escaped := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", backupPath, err)
	}

	s.logger.Info().Msg("Backup completed successfully")
	return backupPath, nil
}

// CleanupOldBackups removes files older than the retention window and
// returns how many were deleted.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 || s.config.BackupDir == "" {
		return 0
	}

	files, err := os.ReadDir(s.config.BackupDir)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)

	removed := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.BackupDir, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("Failed to delete old backup")
				continue
			}
			removed++
		}
	}
	return removed
}
