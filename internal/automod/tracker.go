package automod

import (
	"context"
	"fmt"
	"hash/maphash"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	statsKeyPrefix = "automod_stats:"
	lockStripes    = 64
)

// Warning is the rolling counter of one policy type for one user.
type Warning struct {
	Count uint32 `json:"count"`
	Last  int64  `json:"last"`
}

// ViolationState is the per-user state persisted in the cache.
type ViolationState struct {
	Messages []int64            `json:"messages"`
	Warnings map[string]Warning `json:"warnings"`
}

// TrackerConfig holds the windows used by the tracker.
type TrackerConfig struct {
	// ResetInterval is the idle time after which a warning counter resets.
	ResetInterval time.Duration
	// SpamWindow is the sliding window of the spam detector.
	SpamWindow time.Duration
	// SpamThreshold is the number of messages inside SpamWindow that count as spam.
	SpamThreshold int
}

// DefaultTrackerConfig returns the standard 300s reset and 4 messages per 5s spam window.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		ResetInterval: 300 * time.Second,
		SpamWindow:    5 * time.Second,
		SpamThreshold: 4,
	}
}

// Tracker maintains per-user violation state in the cache.
// Updates for the same user are serialized within this process; state shared
// with other processes through the cache is last-write-wins.
type Tracker struct {
	cache  Cache
	config TrackerConfig
	logger *zap.Logger
	seed   maphash.Seed
	locks  [lockStripes]sync.Mutex
}

// NewTracker creates a tracker backed by cache.
func NewTracker(cache Cache, cfg TrackerConfig, logger *zap.Logger) *Tracker {
	return &Tracker{
		cache:  cache,
		config: cfg,
		logger: logger.Named("tracker"),
		seed:   maphash.MakeSeed(),
	}
}

// RecordMessage appends timestamp to the user's spam window and reports whether the window is full.
func (t *Tracker) RecordMessage(ctx context.Context, userID uint64, timestamp int64) (bool, error) {
	var spam bool

	err := t.update(ctx, userID, func(state *ViolationState) {
		window := int64(t.config.SpamWindow / time.Second)

		kept := state.Messages[:0]
		for _, ts := range state.Messages {
			if timestamp-ts <= window {
				kept = append(kept, ts)
			}
		}

		kept = append(kept, timestamp)

		// Older entries beyond the threshold never change the outcome
		if limit := t.config.SpamThreshold * 2; len(kept) > limit {
			kept = kept[len(kept)-limit:]
		}

		state.Messages = kept
		spam = len(kept) >= t.config.SpamThreshold
	})

	return spam, err
}

// RecordViolation increments the counter for policyType and returns the new count.
// A counter idle for longer than the reset interval starts again from zero.
func (t *Tracker) RecordViolation(ctx context.Context, userID uint64, policyType PolicyType, timestamp int64) (uint32, error) {
	var count uint32

	err := t.update(ctx, userID, func(state *ViolationState) {
		warning := t.expired(state.Warnings[policyType.String()], timestamp)
		warning.Count++
		warning.Last = timestamp
		state.Warnings[policyType.String()] = warning
		count = warning.Count
	})

	return count, err
}

// ExpireWarnings zeroes the counter for policyType if it has been idle past the reset interval.
func (t *Tracker) ExpireWarnings(ctx context.Context, userID uint64, policyType PolicyType, timestamp int64) error {
	return t.update(ctx, userID, func(state *ViolationState) {
		key := policyType.String()
		if warning, ok := state.Warnings[key]; ok {
			state.Warnings[key] = t.expired(warning, timestamp)
		}
	})
}

// ResetWarnings zeroes the counter for policyType.
func (t *Tracker) ResetWarnings(ctx context.Context, userID uint64, policyType PolicyType) error {
	return t.update(ctx, userID, func(state *ViolationState) {
		delete(state.Warnings, policyType.String())
	})
}

// State returns a copy of the stored state for userID.
func (t *Tracker) State(ctx context.Context, userID uint64) (*ViolationState, error) {
	return t.load(ctx, userID)
}

// expired returns the warning with its count cleared when it is stale at timestamp.
func (t *Tracker) expired(warning Warning, timestamp int64) Warning {
	if timestamp-warning.Last >= int64(t.config.ResetInterval/time.Second) {
		warning.Count = 0
	}

	return warning
}

// update runs a read-modify-write cycle on the user's state under the user's lock.
func (t *Tracker) update(ctx context.Context, userID uint64, mutate func(*ViolationState)) error {
	lock := &t.locks[maphash.Comparable(t.seed, userID)%lockStripes]
	lock.Lock()
	defer lock.Unlock()

	state, err := t.load(ctx, userID)
	if err != nil {
		return err
	}

	mutate(state)

	data, err := sonic.MarshalString(state)
	if err != nil {
		return fmt.Errorf("failed to encode violation state: %w", err)
	}

	if err := t.cache.Set(ctx, statsKey(userID), data); err != nil {
		return fmt.Errorf("failed to store violation state: %w", err)
	}

	return nil
}

// load reads the user's state, falling back to an empty state when missing or malformed.
func (t *Tracker) load(ctx context.Context, userID uint64) (*ViolationState, error) {
	state := &ViolationState{Warnings: make(map[string]Warning)}

	raw, found, err := t.cache.Get(ctx, statsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load violation state: %w", err)
	}

	if !found {
		return state, nil
	}

	if err := sonic.UnmarshalString(raw, state); err != nil {
		t.logger.Warn("Discarding malformed violation state",
			zap.Uint64("userID", userID),
			zap.Error(err))

		return &ViolationState{Warnings: make(map[string]Warning)}, nil
	}

	if state.Warnings == nil {
		state.Warnings = make(map[string]Warning)
	}

	return state, nil
}

func statsKey(userID uint64) string {
	return statsKeyPrefix + strconv.FormatUint(userID, 10)
}
