package maintenance

import (
	"context"
	"fmt"

	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// OnMessageDelete drops manager records backed by the deleted message and
// reports the loss in the log channel.
func (h *Handler) OnMessageDelete(event *events.MessageDelete) {
	if event.GuildID == nil {
		return
	}
	ctx := context.Background()

	server, err := h.env.Server(ctx, *event.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	category := ""
	for _, candidate := range constants.ManagerCategories {
		if _, ok := database.GetPath(server, fmt.Sprintf("%s.%d", candidate, event.MessageID)); ok {
			category = candidate
			break
		}
	}
	if category == "" {
		return
	}

	if _, err := h.env.PatchServer(ctx, *event.GuildID, database.Patch{
		Unset: []string{fmt.Sprintf("%s.%d", category, event.MessageID)},
	}); err != nil {
		h.logger.Error("Failed to drop manager record", zap.Error(err))
		return
	}

	h.sendLog(ctx, server, discord.NewEmbedBuilder().
		SetTitlef("Important message in category *%s* was deleted!", category).
		SetDescriptionf("Message with id %d in channel <#%d>", event.MessageID, event.ChannelID).
		SetColor(constants.ColorRed).
		Build())
}

// OnGuildChannelDelete drops channel slots and ignore-list entries pointing
// at the deleted channel.
func (h *Handler) OnGuildChannelDelete(event *events.GuildChannelDelete) {
	ctx := context.Background()

	server, err := h.env.Server(ctx, event.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	patch := database.Patch{Pull: map[string]any{
		"channels.ignore":     int64(event.ChannelID),
		"channels.ignore_exp": int64(event.ChannelID),
	}}

	slot := ""
	channelsValue, _ := database.GetPath(server, "channels")
	for name, value := range database.ToStringMap(channelsValue) {
		if database.ToInt64(value) == int64(event.ChannelID) {
			slot = name
			patch.Unset = append(patch.Unset, "channels."+name)
			break
		}
	}

	if _, err := h.env.PatchServer(ctx, event.GuildID, patch); err != nil {
		h.logger.Error("Failed to drop channel references", zap.Error(err))
		return
	}
	if slot == "" {
		return
	}

	h.sendLog(ctx, server, discord.NewEmbedBuilder().
		SetTitlef("Important channel *%s* was deleted!", event.Channel.Name()).
		SetDescriptionf("Channel with id %d.", event.ChannelID).
		SetColor(constants.ColorRed).
		Build())
}

// OnRoleDelete drops role slots pointing at the deleted role.
func (h *Handler) OnRoleDelete(event *events.RoleDelete) {
	ctx := context.Background()

	server, err := h.env.Server(ctx, event.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	slot := ""
	rolesValue, _ := database.GetPath(server, "roles")
	for name, value := range database.ToStringMap(rolesValue) {
		if database.ToInt64(value) == int64(event.RoleID) {
			slot = name
			break
		}
	}
	if slot == "" {
		return
	}

	if _, err := h.env.PatchServer(ctx, event.GuildID, database.Patch{
		Unset: []string{"roles." + slot},
	}); err != nil {
		h.logger.Error("Failed to drop role reference", zap.Error(err))
		return
	}

	h.sendLog(ctx, server, discord.NewEmbedBuilder().
		SetTitle("An important role was deleted!").
		SetDescriptionf("Role for '%s' with id:%d was deleted.", slot, event.RoleID).
		SetFooterText("This could hamper working of certain features!").
		SetColor(constants.ColorRed).
		Build())
}

// sendLog posts an embed to the guild's log channel when one is bound.
func (h *Handler) sendLog(ctx context.Context, server database.Document, embed discord.Embed) {
	value, _ := database.GetPath(server, "channels.log")
	logID := database.ToInt64(value)
	if logID == 0 {
		return
	}
	if _, err := h.env.Client.Rest().CreateMessage(snowflake.ID(logID),
		discord.NewMessageCreateBuilder().SetEmbeds(embed).Build()); err != nil {
		h.logger.Debug("Failed to send log message", zap.Error(err))
	}
}
