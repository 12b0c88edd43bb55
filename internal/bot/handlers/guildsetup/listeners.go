package guildsetup

import (
	"context"
	"fmt"
	"time"

	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// OnGuildJoin provisions a freshly joined guild.
func (h *Handler) OnGuildJoin(event *events.GuildJoin) {
	if err := h.setupGuild(context.Background(), event.GuildID); err != nil {
		h.logger.Error("Failed to set up joined guild",
			zap.Uint64("guild_id", uint64(event.GuildID)), zap.Error(err))
	}
}

// OnGuildLeave scrubs a guild's data once the bot is removed from it.
func (h *Handler) OnGuildLeave(event *events.GuildLeave) {
	if err := h.teardownGuild(context.Background(), event.GuildID); err != nil {
		h.logger.Error("Failed to tear down left guild",
			zap.Uint64("guild_id", uint64(event.GuildID)), zap.Error(err))
	}
}

// OnGuildMemberJoin seeds the member's per-guild state, greets them in the
// spawn channel and grants the level zero role when one is bound.
func (h *Handler) OnGuildMemberJoin(event *events.GuildMemberJoin) {
	if event.Member.User.Bot {
		return
	}
	ctx := context.Background()
	userID := event.Member.User.ID

	doc, err := h.env.User(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load user document", zap.Error(err))
		return
	}

	statePath := fmt.Sprintf("servers.%d", event.GuildID)
	patch := database.Patch{Unset: []string{statePath + ".leave_date"}}
	if _, ok := database.GetPath(doc, statePath); !ok {
		patch = database.Patch{Set: map[string]any{
			statePath: map[string]any{
				"join_date":  time.Now().UTC().Format(time.RFC3339),
				"experience": int64(0),
			},
		}}
	}
	if _, err := h.env.PatchUser(ctx, userID, patch); err != nil {
		h.logger.Error("Failed to seed member state", zap.Error(err))
	}

	server, err := h.env.Server(ctx, event.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	if spawnValue, _ := database.GetPath(server, "channels.spawn"); database.ToInt64(spawnValue) != 0 {
		guildName := ""
		if guild, err := h.env.Client.Rest().GetGuild(event.GuildID, false); err == nil {
			guildName = guild.Name
		}
		if _, err := h.env.Client.Rest().CreateMessage(snowflake.ID(database.ToInt64(spawnValue)),
			discord.NewMessageCreateBuilder().
				SetContentf("Hello %s, welcome to %s!", utils.UserMention(userID), guildName).
				Build()); err != nil {
			h.logger.Debug("Failed to send welcome message", zap.Error(err))
		}
	}

	if startValue, _ := database.GetPath(server, "roles.0"); database.ToInt64(startValue) != 0 {
		if err := h.env.Client.Rest().AddMemberRole(event.GuildID, userID,
			snowflake.ID(database.ToInt64(startValue))); err != nil {
			h.logger.Debug("Failed to grant start role", zap.Error(err))
		}
	}
}

// OnGuildMemberLeave stamps the leave date and posts the eject message.
func (h *Handler) OnGuildMemberLeave(event *events.GuildMemberLeave) {
	if event.User.Bot {
		return
	}
	ctx := context.Background()

	if _, err := h.env.PatchUser(ctx, event.User.ID, database.Patch{
		Set: map[string]any{
			fmt.Sprintf("servers.%d.leave_date", event.GuildID): time.Now().UTC().Format(time.RFC3339),
		},
	}); err != nil {
		h.logger.Error("Failed to stamp leave date", zap.Error(err))
	}

	server, err := h.env.Server(ctx, event.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	ejectValue, _ := database.GetPath(server, "channels.eject")
	if database.ToInt64(ejectValue) == 0 {
		return
	}
	if _, err := h.env.Client.Rest().CreateMessage(snowflake.ID(database.ToInt64(ejectValue)),
		discord.NewMessageCreateBuilder().
			SetContentf("%s was ejected :(", event.User.Username).
			Build()); err != nil {
		h.logger.Debug("Failed to send eject message", zap.Error(err))
	}
}
