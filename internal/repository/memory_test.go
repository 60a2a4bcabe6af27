package repository

import (
	"context"
	"testing"

	"autobook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIgnoreList(t *testing.T) {
	list := NewMemoryIgnoreList("1", "1", "2")
	ctx := context.Background()

	set, err := list.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 2)

	require.NoError(t, list.Add(ctx, "3"))
	require.NoError(t, list.Add(ctx, "3"))
	assert.True(t, list.Contains("3"))
	assert.False(t, list.Contains("4"))

	ids, err := list.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ListingID{"1", "2", "3"}, ids)

	assert.ErrorIs(t, list.Add(ctx, ""), ErrInvalidListingID)
}

func TestMemoryIgnoreListSnapshotIsCopy(t *testing.T) {
	list := NewMemoryIgnoreList("1")
	set, err := list.Load(context.Background())
	require.NoError(t, err)

	set["2"] = struct{}{}
	assert.False(t, list.Contains("2"))
}

func TestMemoryFlagStore(t *testing.T) {
	flag := NewMemoryFlagStore()
	ctx := context.Background()

	exists, err := flag.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, flag.Set(ctx, "first"))
	require.NoError(t, flag.Set(ctx, "second"))
	reason, err := flag.Reason(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", reason)

	require.NoError(t, flag.Clear(ctx))
	exists, _ = flag.Exists(ctx)
	assert.False(t, exists)
}

func TestMemoryCredentialStore(t *testing.T) {
	store := NewMemoryCredentialStore("old")
	ctx := context.Background()

	cred, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", cred.Value)
	assert.Equal(t, models.ValidityUnknown, cred.Validity)

	require.NoError(t, store.Update(ctx, "new"))
	cred, _ = store.Get(ctx)
	assert.Equal(t, "new", cred.Value)
}
