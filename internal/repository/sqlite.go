package repository

import (
	"context"
	"fmt"

	"autobook/internal/database"
	"autobook/internal/models"
)

// SQLiteIgnoreList keeps the ignore list in the ignored_listings table.
type SQLiteIgnoreList struct {
	ignoreSet
	db *database.DB
}

func NewSQLiteIgnoreList(db *database.DB) *SQLiteIgnoreList {
	return &SQLiteIgnoreList{ignoreSet: newIgnoreSet(), db: db}
}

func (s *SQLiteIgnoreList) Load(ctx context.Context) (map[models.ListingID]struct{}, error) {
	ids, err := s.db.ListIgnored(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ignore list from sqlite: %w", err)
	}
	return s.replace(ids), nil
}

func (s *SQLiteIgnoreList) Add(ctx context.Context, id models.ListingID) error {
	if err := validateListingID(id); err != nil {
		return err
	}
	if err := s.db.AddIgnored(ctx, id); err != nil {
		return fmt.Errorf("add to ignore list in sqlite: %w", err)
	}
	s.add(id)
	return nil
}

func (s *SQLiteIgnoreList) List(ctx context.Context) ([]models.ListingID, error) {
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s.sorted(), nil
}

// SQLiteFlagStore keeps the crash flag as the single crash_flag row.
type SQLiteFlagStore struct {
	db *database.DB
}

func NewSQLiteFlagStore(db *database.DB) *SQLiteFlagStore {
	return &SQLiteFlagStore{db: db}
}

func (s *SQLiteFlagStore) Exists(ctx context.Context) (bool, error) {
	exists, _, err := s.db.CrashFlag(ctx)
	return exists, err
}

func (s *SQLiteFlagStore) Set(ctx context.Context, reason string) error {
	return s.db.SetCrashFlag(ctx, reason)
}

func (s *SQLiteFlagStore) Reason(ctx context.Context) (string, error) {
	_, reason, err := s.db.CrashFlag(ctx)
	return reason, err
}

func (s *SQLiteFlagStore) Clear(ctx context.Context) error {
	return s.db.ClearCrashFlag(ctx)
}
