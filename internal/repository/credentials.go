package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"autobook/internal/models"

	"github.com/joho/godotenv"
)

// EnvFileCredentialStore keeps the bearer token under one key of a dotenv
// file. Other keys in the file are preserved on update.
type EnvFileCredentialStore struct {
	mu    sync.RWMutex
	path  string
	key   string
	token string
}

// NewEnvFileCredentialStore starts from initial, which usually comes from
// the already loaded environment.
func NewEnvFileCredentialStore(path, key, initial string) *EnvFileCredentialStore {
	if key == "" {
		key = models.DefaultTokenKey
	}
	return &EnvFileCredentialStore{path: path, key: key, token: initial}
}

func (s *EnvFileCredentialStore) Get(ctx context.Context) (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Credential{Value: s.token, Validity: models.ValidityUnknown}, nil
}

// Update rewrites the dotenv file first and only then swaps the token held
// in memory.
func (s *EnvFileCredentialStore) Update(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := godotenv.Read(s.path)
	if errors.Is(err, os.ErrNotExist) {
		env = make(map[string]string)
	} else if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	env[s.key] = token
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	s.token = token
	return nil
}
