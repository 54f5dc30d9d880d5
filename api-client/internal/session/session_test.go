package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronwang/auction-client/shared/models"
)

func testSession() *Session {
	return &Session{
		Token: "jwt-123",
		User:  models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleBuyer},
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(ctx, testSession()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-123", got.Token)
	assert.Equal(t, "alice", got.User.Username)
	assert.False(t, got.SavedAt.IsZero())

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	// clearing twice is fine
	assert.NoError(t, store.Clear(ctx))
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(mr.Addr(), "", 0, "work", time.Hour)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "auctionctl:session:work", store.Key())

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save(ctx, testSession()))
	assert.True(t, mr.Exists(store.Key()))
	assert.Equal(t, time.Hour, mr.TTL(store.Key()))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-123", got.Token)
	assert.Equal(t, models.RoleBuyer, got.User.Role)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(addr, "", 0, "", 0)
	assert.Error(t, err)
}
