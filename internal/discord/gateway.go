// Package discord performs automod actions against the Discord REST API.
package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/daggerwin/automod/internal/automod"
	"github.com/daggerwin/automod/internal/database/types"
	"github.com/daggerwin/automod/internal/msgcache"
	"github.com/daggerwin/automod/internal/setup/config"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

const (
	automodReasonPrefix = "(Automod) "
	noticeTitle         = "Notice from automoderator"
	zeroWidthSpace      = "\u200b"

	// Messages from the last day are purged when banning.
	banPurgeWindow = 24 * time.Hour
)

// RestClient is the part of the disgo REST client the gateway calls.
type RestClient interface {
	GetGuild(guildID snowflake.ID, withCounts bool, opts ...rest.RequestOpt) (*discord.RestGuild, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID, opts ...rest.RequestOpt) error
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
	UpdateMember(guildID snowflake.ID, userID snowflake.ID, memberUpdate discord.MemberUpdate, opts ...rest.RequestOpt) (*discord.Member, error)
	RemoveMember(guildID snowflake.ID, userID snowflake.ID, opts ...rest.RequestOpt) error
	AddBan(guildID snowflake.ID, userID snowflake.ID, deleteMessageDuration time.Duration, opts ...rest.RequestOpt) error
	DeleteBan(guildID snowflake.ID, userID snowflake.ID, opts ...rest.RequestOpt) error
}

// ColorSource supplies the embed colour.
type ColorSource interface {
	Color() int
}

// Gateway implements automod.Gateway for a single guild.
type Gateway struct {
	rest      RestClient
	guildID   snowflake.ID
	modLog    snowflake.ID
	banLog    snowflake.ID
	palette   ColorSource
	logger    *zap.Logger
	guildName atomic.Pointer[string]
}

var _ automod.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway acting in the configured guild.
func NewGateway(client RestClient, cfg *config.Discord, palette ColorSource, logger *zap.Logger) *Gateway {
	return &Gateway{
		rest:    client,
		guildID: snowflake.ID(cfg.GuildID),
		modLog:  snowflake.ID(cfg.ModLogChannel),
		banLog:  snowflake.ID(cfg.BanLogChannel),
		palette: palette,
		logger:  logger.Named("discord_gateway"),
	}
}

// DeleteMessage removes a message.
func (g *Gateway) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	return g.rest.DeleteMessage(channelID, messageID, rest.WithCtx(ctx))
}

// Reply answers msg in its channel and returns the reply's id.
func (g *Gateway) Reply(ctx context.Context, msg *automod.Message, text string) (snowflake.ID, error) {
	reply, err := g.rest.CreateMessage(msg.ChannelID, discord.NewMessageCreateBuilder().
		SetContent(text).
		SetMessageReferenceByID(msg.ID).
		SetAllowedMentions(&discord.AllowedMentions{RepliedUser: true}).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return 0, err
	}

	return reply.ID, nil
}

// DirectMessage sends the sanction notice to userID.
func (g *Gateway) DirectMessage(ctx context.Context, userID snowflake.ID, notice automod.Notice) (bool, error) {
	if notice.GuildName == "" {
		notice.GuildName = g.resolveGuildName(ctx)
	}

	channel, err := g.rest.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to open dm channel: %w", err)
	}

	_, err = g.rest.CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		SetEmbeds(g.noticeEmbed(notice)).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to send notice: %w", err)
	}

	return true, nil
}

// Mute times userID out until the given time.
func (g *Gateway) Mute(ctx context.Context, userID snowflake.ID, until time.Time, reason string) error {
	_, err := g.rest.UpdateMember(g.guildID, userID, discord.MemberUpdate{
		CommunicationDisabledUntil: json.NewNullablePtr(until),
	}, rest.WithCtx(ctx), rest.WithReason(automodReasonPrefix+reason))

	return err
}

// Kick removes userID from the guild.
func (g *Gateway) Kick(ctx context.Context, userID snowflake.ID, reason string) error {
	return g.rest.RemoveMember(g.guildID, userID, rest.WithCtx(ctx), rest.WithReason(automodReasonPrefix+reason))
}

// Ban bans userID and purges their recent messages.
func (g *Gateway) Ban(ctx context.Context, userID snowflake.ID, reason string) error {
	return g.rest.AddBan(g.guildID, userID, banPurgeWindow, rest.WithCtx(ctx), rest.WithReason(automodReasonPrefix+reason))
}

// Unban lifts the ban on userID.
func (g *Gateway) Unban(ctx context.Context, userID snowflake.ID, reason string) error {
	return g.rest.DeleteBan(g.guildID, userID, rest.WithCtx(ctx), rest.WithReason(automodReasonPrefix+reason))
}

// LogCase posts the case to the moderation log. Bans and kicks go to the ban log.
func (g *Gateway) LogCase(ctx context.Context, c *types.Case) error {
	channelID := g.modLog
	if c.Action.IsRemoval() {
		channelID = g.banLog
	}

	if channelID == 0 {
		return nil
	}

	_, err := g.rest.CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(g.caseEmbed(c)).
		Build(), rest.WithCtx(ctx))

	return err
}

// LogDeletedMessage posts a deleted message to the moderation log.
func (g *Gateway) LogDeletedMessage(ctx context.Context, snapshot *msgcache.Snapshot) error {
	if g.modLog == 0 {
		return nil
	}

	embed := discord.NewEmbedBuilder().
		SetAuthorName(fmt.Sprintf("Author: %s (%d)", snapshot.AuthorName, snapshot.AuthorID)).
		SetTitle("Message deleted").
		AddField("Content", snapshot.DisplayContent(), false).
		AddField("Channel", fmt.Sprintf("<#%d>", snapshot.ChannelID), false).
		AddField("Sent", fmt.Sprintf("<t:%d>", snapshot.SentAt), false).
		SetColor(g.palette.Color()).
		SetTimestamp(time.Now()).
		Build()

	_, err := g.rest.CreateMessage(g.modLog, discord.NewMessageCreateBuilder().SetEmbeds(embed).Build(), rest.WithCtx(ctx))

	return err
}

// LogEditedMessage posts the old and new content of an edited message to the moderation log.
func (g *Gateway) LogEditedMessage(ctx context.Context, before, after *msgcache.Snapshot) error {
	if g.modLog == 0 || before.Content == after.Content {
		return nil
	}

	embed := discord.NewEmbedBuilder().
		SetAuthorName(fmt.Sprintf("Author: %s (%d)", after.AuthorName, after.AuthorID)).
		SetTitle("Message edited").
		AddField("Old content", before.DisplayContent(), false).
		AddField("New content", after.DisplayContent(), false).
		AddField("Channel", fmt.Sprintf("<#%d>", after.ChannelID), false).
		SetColor(g.palette.Color()).
		SetTimestamp(time.Now()).
		Build()

	_, err := g.rest.CreateMessage(g.modLog, discord.NewMessageCreateBuilder().SetEmbeds(embed).Build(), rest.WithCtx(ctx))

	return err
}

func (g *Gateway) noticeEmbed(notice automod.Notice) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(noticeTitle).
		SetDescription(fmt.Sprintf("You've been **%s** in **%s** for:```\n%s\n```",
			notice.Action.Verb(), notice.GuildName, notice.Reason)).
		AddField("Case ID", strconv.FormatInt(notice.CaseID, 10), true).
		SetColor(g.palette.Color())

	if notice.Duration > 0 {
		builder.AddField("Duration", FormatDuration(notice.Duration), true)
	}

	return builder.Build()
}

func (g *Gateway) caseEmbed(c *types.Case) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("%s | Case #%d", c.Action.Title(), c.CaseID)).
		AddField("User", fmt.Sprintf("%s\n<@%d>\n`%d`", c.TargetName, c.TargetID, c.TargetID), true).
		AddField("Moderator", fmt.Sprintf("%s\n<@%d>\n`%d`", c.ModeratorName, c.ModeratorID, c.ModeratorID), true).
		AddField(zeroWidthSpace, zeroWidthSpace, true).
		AddField("Reason", automodReasonPrefix+c.Reason, true).
		SetColor(g.palette.Color()).
		SetTimestamp(c.Timestamp)

	if c.Duration != nil {
		builder.AddField("Duration", FormatDuration(time.Duration(*c.Duration)*time.Second), false)
	}

	return builder.Build()
}

// resolveGuildName returns the guild's name, fetching it once.
func (g *Gateway) resolveGuildName(ctx context.Context) string {
	if name := g.guildName.Load(); name != nil {
		return *name
	}

	guild, err := g.rest.GetGuild(g.guildID, false, rest.WithCtx(ctx))
	if err != nil {
		g.logger.Warn("Failed to get guild information", zap.Error(err))
		return "the server"
	}

	g.guildName.Store(&guild.Name)

	return guild.Name
}

// FormatDuration renders d as "1d, 2h, 3m, 4s", omitting zero components.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)

	components := []struct {
		value  int64
		suffix string
	}{
		{secs / 86400, "d"},
		{(secs % 86400) / 3600, "h"},
		{(secs % 3600) / 60, "m"},
		{secs % 60, "s"},
	}

	parts := make([]string, 0, len(components))
	for _, c := range components {
		if c.value > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", c.value, c.suffix))
		}
	}

	return strings.Join(parts, ", ")
}
