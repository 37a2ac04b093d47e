package automod

import (
	"context"
	"time"

	"github.com/daggerwin/automod/internal/database/types"
	"github.com/daggerwin/automod/internal/database/types/enum"
	"github.com/disgoorg/snowflake/v2"
)

// Cache is the key-value store holding violation state and the domain blocklist.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store persists cases and serves the prohibited lists.
type Store interface {
	MaxCaseID(ctx context.Context) (int64, error)
	CaseExists(ctx context.Context, caseID int64) (bool, error)
	CreateCase(ctx context.Context, c *types.Case) (*types.Case, error)
	GetProhibitedWords(ctx context.Context) ([]string, error)
	GetProhibitedURLs(ctx context.Context) ([]string, error)
}

// Gateway performs actions on the chat platform.
type Gateway interface {
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error
	Reply(ctx context.Context, msg *Message, text string) (snowflake.ID, error)
	DirectMessage(ctx context.Context, userID snowflake.ID, notice Notice) (bool, error)
	Mute(ctx context.Context, userID snowflake.ID, until time.Time, reason string) error
	Kick(ctx context.Context, userID snowflake.ID, reason string) error
	Ban(ctx context.Context, userID snowflake.ID, reason string) error
	Unban(ctx context.Context, userID snowflake.ID, reason string) error
	LogCase(ctx context.Context, c *types.Case) error
}

// Message is the subset of an inbound guild message the engine inspects.
type Message struct {
	ID         snowflake.ID
	ChannelID  snowflake.ID
	GuildID    snowflake.ID
	AuthorID   snowflake.ID
	AuthorName string
	RoleIDs    []snowflake.ID
	Content    string
	CreatedAt  time.Time
}

// Notice is the direct message sent to a sanctioned user.
type Notice struct {
	Action    enum.ActionKind
	GuildName string
	Reason    string
	CaseID    int64
	Duration  time.Duration
}
