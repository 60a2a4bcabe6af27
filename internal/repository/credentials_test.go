package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFileCredentialStore(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdatePreservesOtherKeys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("GB_TOKEN=old\nGB_USERNAME=alice\n"), 0o600))

		store := NewEnvFileCredentialStore(path, "", "old")
		require.NoError(t, store.Update(ctx, "fresh"))

		cred, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fresh", cred.Value)

		env, err := godotenv.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "fresh", env["GB_TOKEN"])
		assert.Equal(t, "alice", env["GB_USERNAME"])
	})

	t.Run("CreatesMissingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		store := NewEnvFileCredentialStore(path, "TOKEN", "")
		require.NoError(t, store.Update(ctx, "abc"))

		env, err := godotenv.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "abc", env["TOKEN"])
	})

	t.Run("WriteFailureKeepsOldToken", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing-dir", ".env")
		store := NewEnvFileCredentialStore(path, "", "old")
		assert.Error(t, store.Update(ctx, "new"))

		cred, _ := store.Get(ctx)
		assert.Equal(t, "old", cred.Value)
	})
}
