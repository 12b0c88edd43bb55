package command

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// MemberPermissions computes a member's guild-wide permissions from their
// roles. The guild owner and administrators hold every permission.
func (e *Env) MemberPermissions(
	_ context.Context, guildID snowflake.ID, userID snowflake.ID,
) (discord.Permissions, error) {
	guild, err := e.Client.Rest().GetGuild(guildID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to get guild %d: %w", guildID, err)
	}
	if guild.OwnerID == userID {
		return discord.PermissionsAll, nil
	}

	member, err := e.Client.Rest().GetMember(guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get member %d: %w", userID, err)
	}

	roles, err := e.Client.Rest().GetRoles(guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to get roles for guild %d: %w", guildID, err)
	}

	var perms discord.Permissions
	for _, role := range roles {
		// The @everyone role shares the guild's ID.
		if role.ID == guildID {
			perms = perms.Add(role.Permissions)
			continue
		}
		for _, roleID := range member.RoleIDs {
			if roleID == role.ID {
				perms = perms.Add(role.Permissions)
				break
			}
		}
	}

	if perms.Has(discord.PermissionAdministrator) {
		return discord.PermissionsAll, nil
	}
	return perms, nil
}
