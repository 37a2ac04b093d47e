package automod_test

import (
	"errors"
	"testing"
	"time"

	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/database/types/enum"
	"github.com/disgoorg/snowflake/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type enforcerFixture struct {
	enforcer *automod.Enforcer
	tracker  *automod.Tracker
	store    *fakeStore
	gateway  *fakeGateway
	metrics  *automod.Metrics
}

func newEnforcer(t *testing.T) *enforcerFixture {
	t.Helper()

	tracker, _ := newTracker(t)
	store := newFakeStore()
	gateway := newFakeGateway()
	metrics := automod.NewMetrics(prometheus.NewRegistry())

	enforcer := automod.NewEnforcer(store, gateway, tracker, 0, zaptest.NewLogger(t),
		automod.WithEnforcerMetrics(metrics),
		automod.WithModerator(func() automod.Moderator {
			return automod.Moderator{ID: 99, Name: "automod"}
		}),
	)
	t.Cleanup(enforcer.Close)

	return &enforcerFixture{enforcer: enforcer, tracker: tracker, store: store, gateway: gateway, metrics: metrics}
}

func testPolicy(action enum.ActionKind, threshold uint32) automod.Policy {
	policy := automod.Policy{
		Enabled:       true,
		Type:          automod.ProhibitedWords,
		Action:        action,
		Reason:        "Use of prohibited words",
		WarnThreshold: threshold,
	}

	if action == enum.ActionMute {
		policy.MuteDuration = 30 * time.Minute
	}

	return policy
}

func TestHandleViolationThreshold(t *testing.T) {
	t.Parallel()

	f := newEnforcer(t)
	policy := testPolicy(enum.ActionKick, 3)
	ctx := t.Context()

	for i := 1; i <= 2; i++ {
		outcome, err := f.enforcer.HandleViolation(ctx, newMessage(i, 7, baseTime, "heck"), policy)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), outcome.Warnings)
		assert.Nil(t, outcome.Case)
	}

	assert.Empty(t, f.store.caseList())

	outcome, err := f.enforcer.HandleViolation(ctx, newMessage(3, 7, baseTime, "heck"), policy)
	require.NoError(t, err)
	require.NotNil(t, outcome.Case)
	assert.Equal(t, int64(1), outcome.Case.CaseID)
	assert.Equal(t, enum.ActionKick, outcome.Case.Action)
	assert.Equal(t, uint64(99), outcome.Case.ModeratorID)
	assert.Nil(t, outcome.Case.Duration)

	f.enforcer.Wait()
	calls := f.gateway.snapshot()

	assert.Equal(t, []snowflake.ID{7}, calls.kicks)
	assert.Equal(t, []int64{1}, calls.logged)
	require.Len(t, calls.notices, 1)
	assert.Equal(t, int64(1), calls.notices[0].CaseID)
	assert.Equal(t, []string{"Watch your language!", "Watch your language!", "Watch your language!"}, calls.replies)

	// Three offending messages and three warning replies are removed
	assert.Len(t, calls.deleted, 6)

	// Counter restarts after the action
	outcome, err = f.enforcer.HandleViolation(ctx, newMessage(4, 7, baseTime, "heck"), policy)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), outcome.Warnings)

	assert.InDelta(t, 1, automod.ActionCount(f.metrics, "kick"), 0)
	assert.InDelta(t, 4, automod.ViolationCount(f.metrics, automod.ProhibitedWords), 0)
}

func TestHandleViolationActions(t *testing.T) {
	t.Parallel()

	t.Run("mute until message time plus duration", func(t *testing.T) {
		t.Parallel()

		f := newEnforcer(t)

		outcome, err := f.enforcer.HandleViolation(t.Context(), newMessage(1, 7, baseTime, "heck"), testPolicy(enum.ActionMute, 1))
		require.NoError(t, err)
		require.NotNil(t, outcome.Case.Duration)
		assert.Equal(t, int64(1800), *outcome.Case.Duration)
		require.NotNil(t, outcome.Case.EndTime)
		assert.True(t, baseTime.Add(30*time.Minute).Equal(*outcome.Case.EndTime))

		calls := f.gateway.snapshot()
		require.Len(t, calls.mutes, 1)
		assert.True(t, baseTime.Add(30*time.Minute).Equal(calls.mutes[0].until))
		assert.Equal(t, 30*time.Minute, calls.notices[0].Duration)
	})

	t.Run("softban bans then unbans", func(t *testing.T) {
		t.Parallel()

		f := newEnforcer(t)

		_, err := f.enforcer.HandleViolation(t.Context(), newMessage(1, 7, baseTime, "x"), testPolicy(enum.ActionSoftban, 1))
		require.NoError(t, err)

		calls := f.gateway.snapshot()
		assert.Equal(t, []snowflake.ID{7}, calls.bans)
		assert.Equal(t, []snowflake.ID{7}, calls.unbans)
		assert.Equal(t, []string{"delete", "reply", "dm", "ban", "unban", "log"}, calls.calls)
	})

	t.Run("warn records case only", func(t *testing.T) {
		t.Parallel()

		f := newEnforcer(t)

		outcome, err := f.enforcer.HandleViolation(t.Context(), newMessage(1, 7, baseTime, "x"), testPolicy(enum.ActionWarn, 1))
		require.NoError(t, err)
		require.NotNil(t, outcome.Case)

		calls := f.gateway.snapshot()
		assert.Empty(t, calls.bans)
		assert.Empty(t, calls.kicks)
		assert.Empty(t, calls.mutes)
	})

	t.Run("failed notice does not stop enforcement", func(t *testing.T) {
		t.Parallel()

		f := newEnforcer(t)
		f.gateway.dmFails = true

		_, err := f.enforcer.HandleViolation(t.Context(), newMessage(1, 7, baseTime, "x"), testPolicy(enum.ActionBan, 1))
		require.NoError(t, err)

		calls := f.gateway.snapshot()
		assert.Empty(t, calls.notices)
		assert.Equal(t, []snowflake.ID{7}, calls.bans)
	})

	t.Run("failed action is reported", func(t *testing.T) {
		t.Parallel()

		f := newEnforcer(t)
		f.gateway.actionErr = errors.New("missing permissions")

		outcome, err := f.enforcer.HandleViolation(t.Context(), newMessage(1, 7, baseTime, "x"), testPolicy(enum.ActionBan, 1))
		require.Error(t, err)
		require.NotNil(t, outcome.Case, "the case is recorded before the action")
	})
}

func TestHandleViolationAborts(t *testing.T) {
	t.Parallel()

	t.Run("case id taken", func(t *testing.T) {
		t.Parallel()

		f := newEnforcer(t)

		_, err := f.enforcer.HandleViolation(t.Context(), newMessage(1, 7, baseTime, "x"), testPolicy(enum.ActionWarn, 1))
		require.NoError(t, err)

		// The store reports a stale maximum so the next id collides
		f.store.maxShift = 1

		_, err = f.enforcer.HandleViolation(t.Context(), newMessage(2, 7, baseTime, "x"), testPolicy(enum.ActionWarn, 1))
		require.ErrorIs(t, err, automod.ErrCaseIDTaken)

		assert.Len(t, f.store.caseList(), 1)

		state, err := f.tracker.State(t.Context(), 7)
		require.NoError(t, err)
		assert.Zero(t, state.Warnings["prohibited_words"].Count, "aborted violations are not counted")
	})

	t.Run("store unavailable", func(t *testing.T) {
		t.Parallel()

		f := newEnforcer(t)
		f.store.maxErr = errors.New("connection refused")

		_, err := f.enforcer.HandleViolation(t.Context(), newMessage(1, 7, baseTime, "x"), testPolicy(enum.ActionWarn, 1))
		require.Error(t, err)
		assert.Empty(t, f.gateway.snapshot().calls)
	})
}
