package bot

import (
	"context"

	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/msgcache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// MessageHandler runs automod on a new guild message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *automod.Message) *automod.Outcome
}

// MessageLogger posts edited and deleted messages to the moderation log.
type MessageLogger interface {
	LogDeletedMessage(ctx context.Context, snapshot *msgcache.Snapshot) error
	LogEditedMessage(ctx context.Context, before, after *msgcache.Snapshot) error
}

func (b *Bot) handleMessageCreate(event *events.GuildMessageCreate) {
	if event.GuildID != b.guildID || event.Message.Author.Bot || event.Message.Author.System {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	// A message that triggered a policy has already been removed.
	if outcome := b.handler.HandleMessage(ctx, toAutomodMessage(event.Message, event.GuildID)); outcome != nil {
		return
	}

	if err := b.messages.Put(ctx, toSnapshot(event.Message)); err != nil {
		b.logger.Warn("Failed to cache message",
			zap.Stringer("messageID", event.MessageID),
			zap.Error(err))
	}
}

func (b *Bot) handleMessageUpdate(event *events.GuildMessageUpdate) {
	if event.GuildID != b.guildID || event.Message.Author.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	after := toSnapshot(event.Message)

	before, found, err := b.messages.Get(ctx, event.MessageID)
	if err != nil {
		b.logger.Warn("Failed to read cached message",
			zap.Stringer("messageID", event.MessageID),
			zap.Error(err))
	}

	if found {
		// Edits only change the content.
		after.SentAt = before.SentAt

		if err := b.logs.LogEditedMessage(ctx, before, after); err != nil {
			b.logger.Warn("Failed to log edited message", zap.Error(err))
		}
	}

	if err := b.messages.Put(ctx, after); err != nil {
		b.logger.Warn("Failed to cache edited message",
			zap.Stringer("messageID", event.MessageID),
			zap.Error(err))
	}
}

func (b *Bot) handleMessageDelete(event *events.GuildMessageDelete) {
	if event.GuildID != b.guildID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	snapshot, found, err := b.messages.Remove(ctx, event.MessageID)
	if err != nil {
		b.logger.Warn("Failed to remove cached message",
			zap.Stringer("messageID", event.MessageID),
			zap.Error(err))

		return
	}

	if !found || snapshot.AuthorBot {
		return
	}

	if err := b.logs.LogDeletedMessage(ctx, snapshot); err != nil {
		b.logger.Warn("Failed to log deleted message", zap.Error(err))
	}
}

func toAutomodMessage(m discord.Message, guildID snowflake.ID) *automod.Message {
	msg := &automod.Message{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		GuildID:    guildID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}

	if m.Member != nil {
		msg.RoleIDs = m.Member.RoleIDs
	}

	return msg
}

func toSnapshot(m discord.Message) *msgcache.Snapshot {
	return &msgcache.Snapshot{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		AuthorBot:   m.Author.Bot,
		Content:     m.Content,
		Attachments: len(m.Attachments),
		Forwarded:   m.MessageReference != nil && m.Content == "",
		SentAt:      m.CreatedAt.Unix(),
	}
}
