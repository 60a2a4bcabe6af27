package repository

import (
	"context"
	"sort"
	"sync"

	"autobook/internal/models"
)

// ignoreSet is the in-memory half shared by every IgnoreListStore.
type ignoreSet struct {
	mu  sync.RWMutex
	ids map[models.ListingID]struct{}
}

func newIgnoreSet() ignoreSet {
	return ignoreSet{ids: make(map[models.ListingID]struct{})}
}

func (s *ignoreSet) replace(ids []models.ListingID) map[models.ListingID]struct{} {
	next := make(map[models.ListingID]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		next[id] = struct{}{}
	}

	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()

	return s.snapshot()
}

func (s *ignoreSet) add(id models.ListingID) {
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
}

func (s *ignoreSet) Contains(id models.ListingID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *ignoreSet) snapshot() map[models.ListingID]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.ListingID]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

func (s *ignoreSet) sorted() []models.ListingID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ListingID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MemoryIgnoreList keeps the ignore list for the lifetime of the process only.
type MemoryIgnoreList struct {
	ignoreSet
}

func NewMemoryIgnoreList(ids ...models.ListingID) *MemoryIgnoreList {
	l := &MemoryIgnoreList{ignoreSet: newIgnoreSet()}
	l.replace(ids)
	return l
}

func (l *MemoryIgnoreList) Load(ctx context.Context) (map[models.ListingID]struct{}, error) {
	return l.snapshot(), nil
}

func (l *MemoryIgnoreList) Add(ctx context.Context, id models.ListingID) error {
	if err := validateListingID(id); err != nil {
		return err
	}
	l.add(id)
	return nil
}

func (l *MemoryIgnoreList) List(ctx context.Context) ([]models.ListingID, error) {
	return l.sorted(), nil
}

// MemoryFlagStore is a FlagStore for tests and the memory driver.
type MemoryFlagStore struct {
	mu     sync.Mutex
	set    bool
	reason string
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{}
}

func (f *MemoryFlagStore) Exists(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set, nil
}

func (f *MemoryFlagStore) Set(ctx context.Context, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.set {
		f.set = true
		f.reason = reason
	}
	return nil
}

func (f *MemoryFlagStore) Reason(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reason, nil
}

func (f *MemoryFlagStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = false
	f.reason = ""
	return nil
}

// MemoryCredentialStore holds the token in memory only.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryCredentialStore(token string) *MemoryCredentialStore {
	return &MemoryCredentialStore{token: token}
}

// Get never reports a validity; that is decided by probing.
func (s *MemoryCredentialStore) Get(ctx context.Context) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Credential{Value: s.token, Validity: models.ValidityUnknown}, nil
}

func (s *MemoryCredentialStore) Update(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}
