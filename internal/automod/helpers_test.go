package automod_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/database/types"
	"github.com/daggerwin/automod/internal/redis"
	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Unix(1_700_000_000, 0)

// replyIDBase is below every id handed out for warning replies and above every message id.
const replyIDBase = snowflake.ID(5000)

func setupCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return redis.NewCache(client), mr
}

func newMessage(id int, userID snowflake.ID, at time.Time, content string) *automod.Message {
	return &automod.Message{
		ID:         snowflake.ID(1000 + id),
		ChannelID:  10,
		GuildID:    1,
		AuthorID:   userID,
		AuthorName: "user",
		Content:    content,
		CreatedAt:  at,
	}
}

// fakeStore is an in-memory automod.Store.
type fakeStore struct {
	mu       sync.Mutex
	cases    map[int64]*types.Case
	words    []string
	urls     []string
	maxErr   error
	maxShift int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{cases: make(map[int64]*types.Case)}
}

func (s *fakeStore) MaxCaseID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxErr != nil {
		return 0, s.maxErr
	}

	var maxID int64
	for id := range s.cases {
		maxID = max(maxID, id)
	}

	return maxID - s.maxShift, nil
}

func (s *fakeStore) CaseExists(_ context.Context, caseID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.cases[caseID]

	return ok, nil
}

func (s *fakeStore) CreateCase(_ context.Context, c *types.Case) (*types.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cases[c.CaseID]; ok {
		return nil, errors.New("duplicate case")
	}

	s.cases[c.CaseID] = c

	return c, nil
}

func (s *fakeStore) GetProhibitedWords(context.Context) ([]string, error) {
	return s.words, nil
}

func (s *fakeStore) GetProhibitedURLs(context.Context) ([]string, error) {
	return s.urls, nil
}

func (s *fakeStore) caseList() []*types.Case {
	s.mu.Lock()
	defer s.mu.Unlock()

	cases := make([]*types.Case, 0, len(s.cases))
	for _, c := range s.cases {
		cases = append(cases, c)
	}

	return cases
}

type muteCall struct {
	userID snowflake.ID
	until  time.Time
}

type gatewayCalls struct {
	deleted []snowflake.ID
	replies []string
	notices []automod.Notice
	mutes   []muteCall
	kicks   []snowflake.ID
	bans    []snowflake.ID
	unbans  []snowflake.ID
	logged  []int64
	calls   []string
}

// fakeGateway records every platform call.
type fakeGateway struct {
	mu        sync.Mutex
	nextID    snowflake.ID
	dmFails   bool
	actionErr error
	gatewayCalls
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: replyIDBase}
}

func (g *fakeGateway) record(call string) {
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) DeleteMessage(_ context.Context, _, messageID snowflake.ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Warning replies are removed asynchronously so they stay out of the ordered call log
	if messageID <= replyIDBase {
		g.record("delete")
	}

	g.deleted = append(g.deleted, messageID)

	return nil
}

func (g *fakeGateway) Reply(_ context.Context, _ *automod.Message, text string) (snowflake.ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("reply")
	g.replies = append(g.replies, text)
	g.nextID++

	return g.nextID, nil
}

func (g *fakeGateway) DirectMessage(_ context.Context, _ snowflake.ID, notice automod.Notice) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("dm")

	if g.dmFails {
		return false, errors.New("cannot send messages to this user")
	}

	g.notices = append(g.notices, notice)

	return true, nil
}

func (g *fakeGateway) Mute(_ context.Context, userID snowflake.ID, until time.Time, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("mute")
	g.mutes = append(g.mutes, muteCall{userID: userID, until: until})

	return g.actionErr
}

func (g *fakeGateway) Kick(_ context.Context, userID snowflake.ID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("kick")
	g.kicks = append(g.kicks, userID)

	return g.actionErr
}

func (g *fakeGateway) Ban(_ context.Context, userID snowflake.ID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("ban")
	g.bans = append(g.bans, userID)

	return g.actionErr
}

func (g *fakeGateway) Unban(_ context.Context, userID snowflake.ID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("unban")
	g.unbans = append(g.unbans, userID)

	return nil
}

func (g *fakeGateway) LogCase(_ context.Context, c *types.Case) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("log")
	g.logged = append(g.logged, c.CaseID)

	return nil
}

func (g *fakeGateway) snapshot() gatewayCalls {
	g.mu.Lock()
	defer g.mu.Unlock()

	return gatewayCalls{
		deleted: append([]snowflake.ID(nil), g.deleted...),
		replies: append([]string(nil), g.replies...),
		notices: append([]automod.Notice(nil), g.notices...),
		mutes:   append([]muteCall(nil), g.mutes...),
		kicks:   append([]snowflake.ID(nil), g.kicks...),
		bans:    append([]snowflake.ID(nil), g.bans...),
		unbans:  append([]snowflake.ID(nil), g.unbans...),
		logged:  append([]int64(nil), g.logged...),
		calls:   append([]string(nil), g.calls...),
	}
}

// staticDomains is a DomainChecker over a fixed set.
type staticDomains struct {
	domains map[string]struct{}
	checks  int
}

func (d *staticDomains) EnsureFresh(context.Context) {
	d.checks++
}

func (d *staticDomains) Contains(_ context.Context, hosts []string) (string, bool, error) {
	for _, host := range hosts {
		if _, ok := d.domains[host]; ok {
			return host, true, nil
		}
	}

	return "", false, nil
}
