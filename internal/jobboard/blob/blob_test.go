package blob

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client), mr
}

func TestStores(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			payload := []byte("%PDF-1.4 resume")

			ref, err := store.Store(ctx, payload, "application/pdf")
			require.NoError(t, err)
			assert.Contains(t, ref, keyPrefix)

			got, err := store.Retrieve(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, payload, got)

			require.NoError(t, store.Delete(ctx, ref))
			_, err = store.Retrieve(ctx, ref)
			assert.ErrorIs(t, err, e.ErrNotFound)

			_, err = store.Retrieve(ctx, "blob:missing")
			assert.ErrorIs(t, err, e.ErrNotFound)
		})
	}
}

func TestRedisStoreKeepsContentType(t *testing.T) {
	store, mr := newRedisStore(t)
	ref, err := store.Store(context.Background(), []byte("doc"), "application/msword")
	require.NoError(t, err)
	assert.Equal(t, "application/msword", mr.HGet(ref, "content_type"))
}

func TestRedisStoreRejectsForeignRef(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("session:1", "secret"))
	_, err := store.Retrieve(context.Background(), "session:1")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Store(ctx, []byte("x"), "application/pdf")
	assert.ErrorIs(t, err, e.ErrTransient)
}
