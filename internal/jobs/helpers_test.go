package jobs_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/daggerwin/automod/internal/database/types"
)

var errStopped = errors.New("stopped")

// stepClock advances by the requested duration on every sleep and stops the run after limit sleeps.
type stepClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
	limit  int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *stepClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	c.sleeps++

	if c.sleeps >= c.limit {
		return errStopped
	}

	return nil
}

type listStore struct {
	words   []string
	urls    []string
	wordErr error
}

func (s *listStore) MaxCaseID(context.Context) (int64, error)                         { return 0, nil }
func (s *listStore) CaseExists(context.Context, int64) (bool, error)                  { return false, nil }
func (s *listStore) CreateCase(_ context.Context, c *types.Case) (*types.Case, error) { return c, nil }

func (s *listStore) GetProhibitedWords(context.Context) ([]string, error) {
	return s.words, s.wordErr
}

func (s *listStore) GetProhibitedURLs(context.Context) ([]string, error) {
	return s.urls, nil
}

type presenceRecorder struct {
	mu    sync.Mutex
	names []string
	urls  []string
}

func (r *presenceRecorder) SetStreaming(_ context.Context, name, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names = append(r.names, name)
	r.urls = append(r.urls, url)

	return nil
}
