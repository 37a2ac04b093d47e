// Package msgcache keeps short-lived snapshots of guild messages so deletions
// and edits can be logged after the platform no longer serves the original.
package msgcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

const (
	keyPrefix = "message:"

	// SnapshotTTL is how long a snapshot survives without an edit.
	SnapshotTTL = 12 * time.Hour

	maxContentLength = 1020
	truncatedLength  = 1000
)

// Cache is the subset of the redis cache the snapshot store uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Snapshot is the cached copy of a message.
type Snapshot struct {
	ID          snowflake.ID `json:"id"`
	ChannelID   snowflake.ID `json:"channelId"`
	AuthorID    snowflake.ID `json:"authorId"`
	AuthorName  string       `json:"authorName"`
	AuthorBot   bool         `json:"authorBot"`
	Content     string       `json:"content"`
	Attachments int          `json:"attachments"`
	Forwarded   bool         `json:"forwarded"`
	SentAt      int64        `json:"sentAt"`
}

// DisplayContent returns the content as shown in log embeds.
func (s *Snapshot) DisplayContent() string {
	switch {
	case s.Content == "" && s.Forwarded:
		return "(Forwarded message)"
	case s.Content == "":
		return "(Attachment)"
	case len(s.Content) >= maxContentLength:
		return s.Content[:truncatedLength] + "..."
	default:
		return s.Content
	}
}

// Store reads and writes message snapshots.
type Store struct {
	cache  Cache
	logger *zap.Logger
}

// New creates a snapshot store on top of cache.
func New(cache Cache, logger *zap.Logger) *Store {
	return &Store{cache: cache, logger: logger.Named("msgcache")}
}

// Put saves or replaces a snapshot and restarts its TTL.
func (s *Store) Put(ctx context.Context, snapshot *Snapshot) error {
	data, err := sonic.MarshalString(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := snapshotKey(snapshot.ID)

	if err := s.cache.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err := s.cache.Expire(ctx, key, SnapshotTTL); err != nil {
		return fmt.Errorf("failed to set snapshot ttl: %w", err)
	}

	return nil
}

// Get returns the snapshot of messageID if one is cached.
// A malformed snapshot is logged and reported as missing.
func (s *Store) Get(ctx context.Context, messageID snowflake.ID) (*Snapshot, bool, error) {
	raw, found, err := s.cache.Get(ctx, snapshotKey(messageID))
	if err != nil || !found {
		return nil, false, err
	}

	var snapshot Snapshot
	if err := sonic.UnmarshalString(raw, &snapshot); err != nil {
		s.logger.Warn("Discarding malformed snapshot",
			zap.Stringer("messageID", messageID),
			zap.Error(err))

		return nil, false, nil
	}

	return &snapshot, true, nil
}

// Remove deletes the snapshot of messageID and returns it if it existed.
func (s *Store) Remove(ctx context.Context, messageID snowflake.ID) (*Snapshot, bool, error) {
	snapshot, found, err := s.Get(ctx, messageID)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Del(ctx, snapshotKey(messageID)); err != nil {
		return nil, false, fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return snapshot, found, nil
}

func snapshotKey(messageID snowflake.ID) string {
	return keyPrefix + strconv.FormatUint(uint64(messageID), 10)
}
