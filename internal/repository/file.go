package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autobook/internal/models"
)

var ErrInvalidListingID = errors.New("invalid listing id")

func validateListingID(id models.ListingID) error {
	if strings.TrimSpace(string(id)) == "" || strings.ContainsAny(string(id), "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidListingID, string(id))
	}
	return nil
}

// FileIgnoreList stores one listing id per line. The file is only ever
// appended to, so it may hold duplicates across runs.
type FileIgnoreList struct {
	ignoreSet
	path string
}

func NewFileIgnoreList(path string) *FileIgnoreList {
	return &FileIgnoreList{ignoreSet: newIgnoreSet(), path: path}
}

// Load reads the file. A missing file yields an empty set.
func (l *FileIgnoreList) Load(ctx context.Context) (map[models.ListingID]struct{}, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return l.replace(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ignore list: %w", err)
	}
	defer f.Close()

	var ids []models.ListingID
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ids = append(ids, models.ListingID(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore list: %w", err)
	}

	return l.replace(ids), nil
}

// Add appends id and fsyncs before it becomes visible through Contains.
func (l *FileIgnoreList) Add(ctx context.Context, id models.ListingID) error {
	if err := validateListingID(id); err != nil {
		return err
	}
	if l.Contains(id) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ignore list directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ignore list: %w", err)
	}
	if _, err := f.WriteString(string(id) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append ignore list: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ignore list: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ignore list: %w", err)
	}

	l.add(id)
	return nil
}

func (l *FileIgnoreList) List(ctx context.Context) ([]models.ListingID, error) {
	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}
	return l.sorted(), nil
}

// FileFlagStore marks a crash with the presence of a file. The file body
// carries the reason for operators.
type FileFlagStore struct {
	path string
}

func NewFileFlagStore(path string) *FileFlagStore {
	return &FileFlagStore{path: path}
}

func (f *FileFlagStore) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat crash flag: %w", err)
}

// Set creates the flag file. An existing flag is left untouched.
func (f *FileFlagStore) Set(ctx context.Context, reason string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create crash flag directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create crash flag: %w", err)
	}
	defer file.Close()

	body := fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339), reason)
	if _, err := file.WriteString(body); err != nil {
		return fmt.Errorf("write crash flag: %w", err)
	}
	return file.Sync()
}

func (f *FileFlagStore) Reason(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read crash flag: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *FileFlagStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove crash flag: %w", err)
	}
	return nil
}
