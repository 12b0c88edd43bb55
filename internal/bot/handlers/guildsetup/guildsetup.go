// Package guildsetup provisions guilds (default channels, muted and birthday
// roles), manages the per-guild prefix and channel assignments, and keeps
// documents in sync as the bot and members join and leave.
package guildsetup

import (
	"context"
	"fmt"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Handler owns the guild setup commands and lifecycle listeners.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the guild setup handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("guildsetup"),
	}
}

// setupGuild provisions the default roles and channels a guild is missing
// and records their IDs.
func (h *Handler) setupGuild(ctx context.Context, guildID snowflake.ID) error {
	server, err := h.env.Server(ctx, guildID)
	if err != nil {
		return err
	}

	existing := make(map[snowflake.ID]struct{})
	if roles, err := h.env.Client.Rest().GetRoles(guildID); err == nil {
		for _, role := range roles {
			existing[role.ID] = struct{}{}
		}
	}

	patch := database.Patch{Set: map[string]any{}}

	mutedID, err := h.ensureRole(guildID, server, existing, "muted", "muted", constants.ColorRed, patch)
	if err != nil {
		return err
	}
	if _, err := h.ensureRole(guildID, server, existing, "birthday",
		"It's my birthday!", constants.ColorGold, patch); err != nil {
		return err
	}

	// The muted role loses speaking rights in every channel the bot creates.
	overwrites := []discord.PermissionOverwrite{
		discord.RolePermissionOverwrite{
			RoleID: mutedID,
			Deny:   discord.PermissionSendMessages | discord.PermissionAddReactions,
		},
	}

	for _, name := range constants.DefaultChannels {
		value, _ := database.GetPath(server, "channels."+name)
		if database.ToInt64(value) != 0 {
			continue
		}

		channel, err := h.env.Client.Rest().CreateGuildChannel(guildID, discord.GuildTextChannelCreate{
			Name:                 name,
			PermissionOverwrites: overwrites,
		})
		if err != nil {
			return fmt.Errorf("failed to create channel %q: %w", name, err)
		}
		patch.Set["channels."+name] = int64(channel.ID())
	}

	if len(patch.Set) == 0 {
		return nil
	}
	_, err = h.env.Store.Apply(ctx, database.CollectionServers, int64(guildID),
		database.DefaultServer(int64(guildID)), patch)
	return err
}

// ensureRole creates a role slot when the stored one is missing or was
// deleted on Discord, and returns the effective role ID.
func (h *Handler) ensureRole(
	guildID snowflake.ID, server database.Document, existing map[snowflake.ID]struct{},
	slot, name string, color int, patch database.Patch,
) (snowflake.ID, error) {
	value, _ := database.GetPath(server, "roles."+slot)
	roleID := snowflake.ID(database.ToInt64(value))
	if roleID != 0 {
		if _, ok := existing[roleID]; ok {
			return roleID, nil
		}
	}

	role, err := h.env.Client.Rest().CreateRole(guildID, discord.RoleCreate{
		Name:  name,
		Color: color,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create role %q: %w", name, err)
	}
	patch.Set["roles."+slot] = int64(role.ID)
	return role.ID, nil
}

// teardownGuild removes the guild's document and its traces on user
// documents.
func (h *Handler) teardownGuild(ctx context.Context, guildID snowflake.ID) error {
	if err := h.env.Store.Delete(ctx, database.CollectionServers, int64(guildID)); err != nil {
		return err
	}

	users, err := h.env.Store.All(ctx, database.CollectionUsers)
	if err != nil {
		return err
	}
	for userID, doc := range users {
		if _, ok := database.GetPath(doc, fmt.Sprintf("servers.%d", guildID)); !ok {
			continue
		}
		if _, err := h.env.PatchUser(ctx, snowflake.ID(userID), database.Patch{
			Unset: []string{fmt.Sprintf("servers.%d", guildID)},
		}); err != nil {
			h.logger.Error("Failed to scrub user document",
				zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

func (h *Handler) forceSetup(ctx *command.Context) error {
	return h.setupGuild(ctx, ctx.GuildID)
}

func (h *Handler) leave(ctx *command.Context) error {
	if err := h.teardownGuild(ctx, ctx.GuildID); err != nil {
		return err
	}
	return h.env.Client.Rest().LeaveGuild(ctx.GuildID)
}

func (h *Handler) setPrefix(ctx *command.Context) error {
	prefix := ctx.Arg(0)
	if prefix == "" {
		return ctx.Reply("Give the new prefix.")
	}
	if len(prefix) > constants.MaxPrefixLength {
		return ctx.Replyf("The prefix may not be longer than %d characters.", constants.MaxPrefixLength)
	}

	if _, err := h.env.PatchServer(ctx, ctx.GuildID, database.Patch{
		Set: map[string]any{"prefix": prefix},
	}); err != nil {
		return err
	}
	return ctx.Replyf("Your prefix has been changed to %s", prefix)
}

// Commands returns the guild setup commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "force_setup",
			Description: "Provision the default channels and roles.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.forceSetup,
		},
		{
			Name:        "leave",
			Description: "Make the bot leave and delete all stored guild data.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.leave,
		},
		{
			Name:        "set_prefix",
			Description: "Set the command prefix.",
			Usage:       "<prefix>",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.setPrefix,
		},
		{
			Name:        "set_channel",
			Description: "Assign one of the bot's channel slots.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.setChannel,
		},
	}
}
