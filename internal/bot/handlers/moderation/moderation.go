// Package moderation implements the moderator commands (message moving,
// purges, mutes, warnings, word bans) and the guild logging listeners.
package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// muteForever is the target used for unbounded mutes.
var muteForever = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

// Handler owns the moderation commands and logging listeners.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the moderation handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("moderation"),
	}
}

// logChannel returns a guild's configured log channel, zero when unset.
func (h *Handler) logChannel(ctx context.Context, guildID snowflake.ID) snowflake.ID {
	server, err := h.env.Server(ctx, guildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return 0
	}
	value, _ := database.GetPath(server, "channels.log")
	return snowflake.ID(database.ToInt64(value))
}

// sendLog posts an embed to the guild's log channel when one is configured.
func (h *Handler) sendLog(ctx context.Context, guildID snowflake.ID, embed discord.Embed) {
	channelID := h.logChannel(ctx, guildID)
	if channelID == 0 {
		return
	}
	if _, err := h.env.Client.Rest().CreateMessage(channelID,
		discord.NewMessageCreateBuilder().SetEmbeds(embed).Build()); err != nil {
		h.logger.Debug("Failed to send log message", zap.Error(err))
	}
}

// warn increments a member's warning count and logs the warning.
func (h *Handler) warn(ctx context.Context, guildID, userID snowflake.ID, reason string) error {
	if reason == "" {
		reason = "No reason given."
	}

	doc, err := h.env.PatchUser(ctx, userID, database.Patch{
		Inc: map[string]int64{fmt.Sprintf("servers.%d.warnings", guildID): 1},
	})
	if err != nil {
		return err
	}
	count, _ := database.GetPath(doc, fmt.Sprintf("servers.%d.warnings", guildID))

	h.sendLog(ctx, guildID, discord.NewEmbedBuilder().
		SetTitlef("Member %s was warned!", utils.UserMention(userID)).
		SetDescriptionf("This was their warning number %d.", database.ToInt64(count)).
		SetColor(constants.ColorOrange).
		AddField("Reason: ", reason, false).
		Build())
	return nil
}

func (h *Handler) move(ctx *command.Context) error {
	messageID, err := snowflake.Parse(ctx.Arg(0))
	if err != nil {
		return ctx.Reply("Give the ID of the message to move and the target channel.")
	}
	channelID, ok := utils.ParseChannelMention(ctx.Arg(1))
	if !ok {
		return ctx.Reply("Mention the target channel like #name.")
	}

	message, err := h.env.Client.Rest().GetMessage(ctx.Message.ChannelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to fetch message: %w", err)
	}

	content := message.Content
	for _, attachment := range message.Attachments {
		content += "\n" + attachment.URL
	}

	if _, err := h.env.Client.Rest().CreateMessage(channelID,
		discord.NewMessageCreateBuilder().
			SetContentf("Message by %s:\n%s", utils.UserMention(message.Author.ID), content).
			Build()); err != nil {
		return fmt.Errorf("failed to repost message: %w", err)
	}

	if err := h.env.Client.Rest().DeleteMessage(ctx.Message.ChannelID, messageID); err != nil {
		h.logger.Debug("Failed to delete moved message", zap.Error(err))
	}
	if err := h.env.Client.Rest().DeleteMessage(ctx.Message.ChannelID, ctx.Message.MessageID); err != nil {
		h.logger.Debug("Failed to delete move command", zap.Error(err))
	}
	return nil
}

func (h *Handler) clear(ctx *command.Context) error {
	amount, err := strconv.Atoi(ctx.Arg(0))
	if err != nil || amount < 1 || amount > 99 {
		return ctx.Reply("Give the number of messages to delete (1-99).")
	}

	// Include the invoking command message itself.
	messages, err := h.env.Client.Rest().GetMessages(ctx.Message.ChannelID, 0, 0, 0, amount+1)
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	ids := make([]snowflake.ID, len(messages))
	for i, message := range messages {
		ids[i] = message.ID
	}
	if err := h.env.Client.Rest().BulkDeleteMessages(ctx.Message.ChannelID, ids); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	h.logBulkDelete(ctx, messages)

	confirmation, err := h.env.Client.Rest().CreateMessage(ctx.Message.ChannelID,
		discord.NewMessageCreateBuilder().
			SetContentf("Deleted %d messages in channel %s", amount, utils.ChannelMention(ctx.Message.ChannelID)).
			Build())
	if err != nil {
		return err
	}

	time.Sleep(2 * time.Second)
	if err := h.env.Client.Rest().DeleteMessage(ctx.Message.ChannelID, confirmation.ID); err != nil {
		h.logger.Debug("Failed to delete purge confirmation", zap.Error(err))
	}
	return nil
}

func (h *Handler) mute(ctx *command.Context) error {
	member, ok := utils.ParseUserMention(ctx.Arg(0))
	if !ok {
		return ctx.Reply("Mention the member to mute like @name.")
	}

	amount := 0
	unit := "inf"
	if ctx.Arg(1) != "" {
		amount, _ = strconv.Atoi(ctx.Arg(1))
	}
	if ctx.Arg(2) != "" {
		unit = ctx.Arg(2)
	}

	duration, ok := utils.ParseDuration(amount, unit)
	if !ok {
		return ctx.Reply("Invalid time format!")
	}

	target := muteForever
	if duration > 0 {
		target = time.Now().UTC().Add(duration)
	}

	doc, err := h.env.User(ctx, member)
	if err != nil {
		return err
	}
	currentValue, _ := database.GetPath(doc, fmt.Sprintf("servers.%d.muted_until", ctx.GuildID))
	if current, err := time.Parse(time.RFC3339, database.ToString(currentValue)); err == nil && current.After(target) {
		return ctx.Replyf("%s is already muted until %s",
			utils.UserMention(member), current.Format(constants.FmtDateTime))
	}

	if _, err := h.env.PatchUser(ctx, member, database.Patch{
		Set: map[string]any{
			fmt.Sprintf("servers.%d.muted_until", ctx.GuildID): target.Format(time.RFC3339),
		},
	}); err != nil {
		return err
	}

	server, err := h.env.Server(ctx, ctx.GuildID)
	if err != nil {
		return err
	}
	roleValue, _ := database.GetPath(server, "roles.muted")
	roleID := database.ToInt64(roleValue)
	if roleID == 0 {
		return ctx.Reply("This server does not have a muted role setup! Nothing happened...")
	}

	if err := h.env.Client.Rest().AddMemberRole(ctx.GuildID, member, snowflake.ID(roleID)); err != nil {
		return fmt.Errorf("failed to add muted role: %w", err)
	}
	return ctx.Replyf("%s has been muted until %s GMT+00:00!",
		utils.UserMention(member), target.Format(constants.FmtDateTime))
}

func (h *Handler) unmute(ctx *command.Context) error {
	member, ok := utils.ParseUserMention(ctx.Arg(0))
	if !ok {
		return ctx.Reply("Mention the member to unmute like @name.")
	}

	if _, err := h.env.PatchUser(ctx, member, database.Patch{
		Unset: []string{fmt.Sprintf("servers.%d.muted_until", ctx.GuildID)},
	}); err != nil {
		return err
	}

	server, err := h.env.Server(ctx, ctx.GuildID)
	if err != nil {
		return err
	}
	roleValue, _ := database.GetPath(server, "roles.muted")
	if roleID := database.ToInt64(roleValue); roleID != 0 {
		if err := h.env.Client.Rest().RemoveMemberRole(ctx.GuildID, member, snowflake.ID(roleID)); err != nil {
			h.logger.Debug("Failed to remove muted role", zap.Error(err))
		}
	}

	return ctx.Replyf("%s was unmuted.", utils.UserMention(member))
}

func (h *Handler) warnCommand(ctx *command.Context) error {
	member, ok := utils.ParseUserMention(ctx.Arg(0))
	if !ok {
		return ctx.Reply("Mention the member to warn like @name.")
	}
	return h.warn(ctx, ctx.GuildID, member, strings.Join(ctx.Args[1:], " "))
}

func (h *Handler) unwarn(ctx *command.Context) error {
	member, ok := utils.ParseUserMention(ctx.Arg(0))
	if !ok {
		return ctx.Reply("Mention the member to unwarn like @name.")
	}

	amount := 1
	if ctx.Arg(1) != "" {
		parsed, err := strconv.Atoi(ctx.Arg(1))
		if err != nil || parsed < 1 {
			return ctx.Reply("Give the number of warnings to remove.")
		}
		amount = parsed
	}

	doc, err := h.env.User(ctx, member)
	if err != nil {
		return err
	}
	countValue, _ := database.GetPath(doc, fmt.Sprintf("servers.%d.warnings", ctx.GuildID))
	count := database.ToInt64(countValue)
	if int64(amount) > count {
		amount = int(count)
	}

	if _, err := h.env.PatchUser(ctx, member, database.Patch{
		Inc: map[string]int64{fmt.Sprintf("servers.%d.warnings", ctx.GuildID): -int64(amount)},
	}); err != nil {
		return err
	}
	return ctx.Replyf("%s now has %d warnings left.", utils.UserMention(member), count-int64(amount))
}

func (h *Handler) banWord(ctx *command.Context) error {
	word := strings.ToLower(strings.TrimSpace(ctx.Arg(0)))
	if word == "" {
		return ctx.Reply("Give the word to ban.")
	}

	if _, err := h.env.PatchServer(ctx, ctx.GuildID, database.Patch{
		AddToSet: map[string]any{"banned_words": word},
	}); err != nil {
		return err
	}

	confirmation, err := h.env.Client.Rest().CreateMessage(ctx.Message.ChannelID,
		discord.NewMessageCreateBuilder().
			SetContentf("Word ||%s|| has been added to the ban list.", word).
			Build())
	if err != nil {
		return err
	}

	time.Sleep(5 * time.Second)
	if err := h.env.Client.Rest().DeleteMessage(ctx.Message.ChannelID, confirmation.ID); err != nil {
		h.logger.Debug("Failed to delete ban confirmation", zap.Error(err))
	}
	if err := h.env.Client.Rest().DeleteMessage(ctx.Message.ChannelID, ctx.Message.MessageID); err != nil {
		h.logger.Debug("Failed to delete ban command", zap.Error(err))
	}
	return nil
}

func (h *Handler) showBannedWords(ctx *command.Context) error {
	server, err := h.env.Server(ctx, ctx.GuildID)
	if err != nil {
		return err
	}

	words, _ := server["banned_words"].([]any)
	if len(words) == 0 {
		return ctx.Reply("No words are banned on this server.")
	}

	spoilered := make([]string, 0, len(words))
	for _, word := range words {
		spoilered = append(spoilered, fmt.Sprintf("||%s||", database.ToString(word)))
	}
	return ctx.Reply(strings.Join(spoilered, ", "))
}

// Commands returns the moderation commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "move",
			Description: "Move a message to another channel.",
			Usage:       "<message-id> #channel",
			GuildOnly:   true,
			Permission:  discord.PermissionManageMessages,
			Handler:     h.move,
		},
		{
			Name:        "clear",
			Description: "Remove the last messages in this channel.",
			Usage:       "<amount>",
			GuildOnly:   true,
			Permission:  discord.PermissionManageMessages,
			Handler:     h.clear,
		},
		{
			Name:        "mute",
			Description: "Mute a member, optionally for a limited time.",
			Usage:       "@member [amount] [w|d|h|m|s|inf]",
			GuildOnly:   true,
			Permission:  discord.PermissionMuteMembers,
			Handler:     h.mute,
		},
		{
			Name:        "unmute",
			Description: "Remove a member's mute.",
			Usage:       "@member",
			GuildOnly:   true,
			Permission:  discord.PermissionMuteMembers,
			Handler:     h.unmute,
		},
		{
			Name:        "warn",
			Description: "Warn a member.",
			Usage:       "@member [reason]",
			GuildOnly:   true,
			Permission:  discord.PermissionMuteMembers,
			Handler:     h.warnCommand,
		},
		{
			Name:        "unwarn",
			Description: "Remove warnings from a member.",
			Usage:       "@member [amount]",
			GuildOnly:   true,
			Permission:  discord.PermissionMuteMembers,
			Handler:     h.unwarn,
		},
		{
			Name:        "ban_word",
			Description: "Add a word to the banned word list.",
			Usage:       "<word>",
			GuildOnly:   true,
			Permission:  discord.PermissionManageMessages,
			Handler:     h.banWord,
		},
		{
			Name:        "show_banned_words",
			Description: "Show the banned word list.",
			GuildOnly:   true,
			Permission:  discord.PermissionManageMessages,
			Handler:     h.showBannedWords,
		},
	}
}
