package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	s := New(1000, "demo1", time.Minute)
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.UserID)
	assert.Equal(t, "demo1", got.Username)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	s := New(1000, "demo1", time.Minute)
	require.NoError(t, store.Put(context.Background(), s))

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(context.Background(), New(1001, "demo2", time.Hour)))
	assert.Len(t, store.sessions, 1)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set; skipping Redis session store")
	}
	store, err := NewRedisStore(context.Background(), url)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
