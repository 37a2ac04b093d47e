// Package bot connects the automod engine to the Discord gateway.
package bot

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/msgcache"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// eventTimeout bounds the work done for a single gateway event.
const eventTimeout = 30 * time.Second

// Bot owns the Discord client and routes guild message events.
type Bot struct {
	client    bot.Client
	guildID   snowflake.ID
	messages  *msgcache.Store
	logger    *zap.Logger
	moderator atomic.Pointer[automod.Moderator]

	handler MessageHandler
	logs    MessageLogger
}

// New creates the Discord client. The gateway is not opened until Start.
func New(token string, guildID snowflake.ID, messages *msgcache.Store, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		guildID:  guildID,
		messages: messages,
		logger:   logger.Named("bot"),
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnReady:              b.handleReady,
			OnGuildMessageCreate: b.handleMessageCreate,
			OnGuildMessageUpdate: b.handleMessageUpdate,
			OnGuildMessageDelete: b.handleMessageDelete,
		}),
	)
	if err != nil {
		return nil, err
	}

	b.client = client

	return b, nil
}

// Rest returns the REST client used for enforcement actions.
func (b *Bot) Rest() rest.Rest {
	return b.client.Rest()
}

// Start installs the message handlers and opens the gateway connection.
func (b *Bot) Start(ctx context.Context, handler MessageHandler, logs MessageLogger) error {
	b.handler = handler
	b.logs = logs

	b.logger.Info("Starting bot", zap.Stringer("guildID", b.guildID))

	return b.client.OpenGateway(ctx)
}

// Close shuts down the gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.client.Close(ctx)
	b.logger.Info("Bot closed")
}

// Moderator returns the bot's own identity, used as the moderator of automod cases.
func (b *Bot) Moderator() automod.Moderator {
	if moderator := b.moderator.Load(); moderator != nil {
		return *moderator
	}

	return automod.Moderator{}
}

// SetStreaming shows a streaming activity as the bot's presence.
func (b *Bot) SetStreaming(ctx context.Context, name, url string) error {
	return b.client.SetPresence(ctx, gateway.WithStreamingActivity(name, url))
}

func (b *Bot) handleReady(event *events.Ready) {
	b.moderator.Store(&automod.Moderator{ID: event.User.ID, Name: event.User.Username})

	b.logger.Info("Bot is ready",
		zap.String("username", event.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}
