package msgcache_test

import (
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/daggerwin/automod/internal/msgcache"
	"github.com/daggerwin/automod/internal/redis"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupStore(t *testing.T) (*msgcache.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return msgcache.New(redis.NewCache(client), zap.NewNop()), mr
}

func TestPutSetsTTL(t *testing.T) {
	t.Parallel()

	store, mr := setupStore(t)

	snapshot := &msgcache.Snapshot{ID: 42, ChannelID: 7, AuthorID: 9, AuthorName: "farmer", Content: "hello"}
	require.NoError(t, store.Put(t.Context(), snapshot))

	assert.Equal(t, msgcache.SnapshotTTL, mr.TTL("message:42"))

	got, found, err := store.Get(t.Context(), 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snapshot, got)

	mr.FastForward(msgcache.SnapshotTTL + time.Second)

	_, found, err = store.Get(t.Context(), 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutReplacesSnapshot(t *testing.T) {
	t.Parallel()

	store, mr := setupStore(t)

	require.NoError(t, store.Put(t.Context(), &msgcache.Snapshot{ID: 42, Content: "first"}))
	mr.FastForward(time.Hour)
	require.NoError(t, store.Put(t.Context(), &msgcache.Snapshot{ID: 42, Content: "edited"}))

	assert.Equal(t, msgcache.SnapshotTTL, mr.TTL("message:42"))

	got, found, err := store.Get(t.Context(), 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "edited", got.Content)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	store, mr := setupStore(t)

	require.NoError(t, store.Put(t.Context(), &msgcache.Snapshot{ID: 42, Content: "bye"}))

	got, found, err := store.Remove(t.Context(), 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bye", got.Content)
	assert.False(t, mr.Exists("message:42"))

	_, found, err = store.Remove(t.Context(), 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMalformedSnapshotIsMissing(t *testing.T) {
	t.Parallel()

	store, mr := setupStore(t)
	require.NoError(t, mr.Set("message:42", "{not json"))

	_, found, err := store.Get(t.Context(), 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDisplayContent(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 1500)

	tests := []struct {
		name     string
		snapshot msgcache.Snapshot
		want     string
	}{
		{"plain", msgcache.Snapshot{Content: "hello"}, "hello"},
		{"attachment", msgcache.Snapshot{Attachments: 1}, "(Attachment)"},
		{"forwarded", msgcache.Snapshot{Forwarded: true}, "(Forwarded message)"},
		{"truncated", msgcache.Snapshot{Content: long}, long[:1000] + "..."},
		{"just under limit", msgcache.Snapshot{Content: long[:1019]}, long[:1019]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.snapshot.DisplayContent())
		})
	}
}
