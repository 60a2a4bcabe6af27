package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autobook/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite database holding attempt history and, when the sqlite
// storage driver is selected, the ignore list and the crash flag.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer, and a single ":memory:" database shared by every query
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, logger: logger}
	if err := db.createTables(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Database initialized")
	return db, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id TEXT NOT NULL,
            category TEXT NOT NULL,
            listing_id TEXT NOT NULL,
            topic TEXT,
            outcome TEXT NOT NULL,
            detail TEXT,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS ignored_listings (
            listing_id TEXT PRIMARY KEY,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS crash_flag (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            reason TEXT,
            raised_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_attempts_run_id ON attempts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_created_at ON attempts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// RecordAttempt appends one history row and sets its ID.
func (db *DB) RecordAttempt(ctx context.Context, attempt *models.Attempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	result, err := db.ExecContext(ctx, `
        INSERT INTO attempts (run_id, category, listing_id, topic, outcome, detail, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.RunID,
		attempt.Category,
		string(attempt.ListingID),
		attempt.Topic,
		string(attempt.Outcome),
		attempt.Detail,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	attempt.ID = id
	return nil
}

// AttemptFilter narrows ListAttempts. Zero values match everything.
type AttemptFilter struct {
	RunID   string
	Outcome models.BookingOutcome
	Since   time.Time
	Limit   int
}

// ListAttempts returns history rows, newest first.
func (db *DB) ListAttempts(ctx context.Context, filter AttemptFilter) ([]models.Attempt, error) {
	query := `
        SELECT id, run_id, category, listing_id, topic, outcome, detail, created_at
        FROM attempts WHERE 1=1`
	var args []interface{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var (
			a             models.Attempt
			listingID     string
			outcome       string
			topic, detail sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.RunID, &a.Category, &listingID, &topic, &outcome, &detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ListingID = models.ListingID(listingID)
		a.Outcome = models.BookingOutcome(outcome)
		a.Topic = topic.String
		a.Detail = detail.String
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// OutcomeCounts aggregates history rows by outcome.
func (db *DB) OutcomeCounts(ctx context.Context) (map[models.BookingOutcome]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.BookingOutcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[models.BookingOutcome(outcome)] = n
	}
	return counts, rows.Err()
}

// PruneAttempts deletes history rows created before cutoff and returns how
// many were removed.
func (db *DB) PruneAttempts(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM attempts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return result.RowsAffected()
}

// AddIgnored inserts id into ignored_listings. Existing ids are kept as is.
func (db *DB) AddIgnored(ctx context.Context, id models.ListingID) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO ignored_listings (listing_id, created_at) VALUES (?, ?) ON CONFLICT(listing_id) DO NOTHING`,
		string(id), time.Now())
	return err
}

func (db *DB) ListIgnored(ctx context.Context) ([]models.ListingID, error) {
	rows, err := db.QueryContext(ctx, `SELECT listing_id FROM ignored_listings ORDER BY created_at, listing_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []models.ListingID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, models.ListingID(id))
	}
	return ids, rows.Err()
}

// SetCrashFlag stores the single crash row. A second call keeps the first reason.
func (db *DB) SetCrashFlag(ctx context.Context, reason string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO crash_flag (id, reason, raised_at) VALUES (1, ?, ?) ON CONFLICT(id) DO NOTHING`,
		reason, time.Now())
	return err
}

// CrashFlag reports whether the crash row exists and its reason.
func (db *DB) CrashFlag(ctx context.Context) (bool, string, error) {
	var reason sql.NullString
	err := db.QueryRowContext(ctx, `SELECT reason FROM crash_flag WHERE id = 1`).Scan(&reason)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, reason.String, nil
}

func (db *DB) ClearCrashFlag(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM crash_flag WHERE id = 1`)
	return err
}

func (db *DB) Close() error {
	return db.DB.Close()
}
