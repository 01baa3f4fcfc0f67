package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resilmesh/casm/pkg/faults"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWithClient(client)
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.PutText(ctx, "subfinder", "a.example.com\nb.example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "subfinder-"))

	data, err := store.GetText(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "a.example.com\nb.example.com", data)
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-key")
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.BadInput))
}

func TestKeysAreUnique(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.PutText(ctx, "httpx", "one")
	require.NoError(t, err)
	second, err := store.PutText(ctx, "httpx", "two")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	one, err := store.GetText(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "one", one)
}

func TestNewKeyWithoutPrefix(t *testing.T) {
	key := NewKey("")
	assert.NotEmpty(t, key)
	assert.False(t, strings.Contains(key, "--"))
}
