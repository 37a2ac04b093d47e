package jobs_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/jobs"
	"github.com/daggerwin/automod/internal/redis"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWordlistJobSwapsLists(t *testing.T) {
	t.Parallel()

	store := &listStore{words: []string{"badword"}, urls: []string{"evil.example"}}
	holder := automod.NewListHolder()
	clock := &stepClock{now: time.Unix(0, 0), limit: 1}

	job := jobs.NewWordlistJob(holder, store, time.Minute, clock, zap.NewNop())
	require.ErrorIs(t, job.Run(t.Context()), errStopped)

	lists := holder.Load()
	assert.True(t, lists.MatchesWord("that is a badword"))
	assert.True(t, lists.MatchesURL("cdn.evil.example"))
}

func TestWordlistJobKeepsSnapshotOnError(t *testing.T) {
	t.Parallel()

	errDown := errors.New("database down")
	store := &listStore{wordErr: errDown}
	holder := automod.NewListHolder()
	previous := automod.NewProhibitedLists([]string{"kept"}, nil, zap.NewNop())
	holder.Swap(previous)

	clock := &stepClock{now: time.Unix(0, 0), limit: 1}
	job := jobs.NewWordlistJob(holder, store, time.Minute, clock, zap.NewNop())

	require.ErrorIs(t, job.Run(t.Context()), errDown)
	assert.Same(t, previous, holder.Load())
}

func TestBlocklistJobRefreshes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("phish.example\nscam.example\n"))
	}))
	t.Cleanup(server.Close)

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	blocklist := automod.NewBlocklist(redis.NewCache(client), server.Client(), automod.BlocklistConfig{
		Sources:         []string{server.URL},
		RefreshInterval: time.Hour,
		UserAgent:       "test-agent",
	}, zap.NewNop())

	clock := &stepClock{now: time.Unix(0, 0), limit: 1}
	job := jobs.NewBlocklistJob(blocklist, 10*time.Minute, clock, zap.NewNop())
	require.ErrorIs(t, job.Run(t.Context()), errStopped)

	domain, found, err := blocklist.Contains(t.Context(), []string{"safe.example", "phish.example"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "phish.example", domain)
	assert.True(t, mr.Exists("malicious_domains"))
}

func TestBlocklistJobFailsWhenNoSourceResponds(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	blocklist := automod.NewBlocklist(redis.NewCache(client), server.Client(), automod.BlocklistConfig{
		Sources:         []string{server.URL},
		RefreshInterval: time.Hour,
	}, zap.NewNop())

	clock := &stepClock{now: time.Unix(0, 0), limit: 1}
	job := jobs.NewBlocklistJob(blocklist, 10*time.Minute, clock, zap.NewNop())

	require.ErrorIs(t, job.Run(t.Context()), automod.ErrNoDomains)
	assert.False(t, mr.Exists("malicious_domains"))
}
