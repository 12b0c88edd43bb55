package leveling

import (
	"fmt"
	"strconv"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/snowflake/v2"
)

// showRanking displays the chunked leaderboard as an embedded menu that is
// deleted once the invoker is done with it.
func (h *Handler) showRanking(ctx *command.Context, chunks [][]string) error {
	pages := make([]*menu.Page, len(chunks))
	for i, chunk := range chunks {
		pages[i] = menu.List(chunk...)
	}

	ranking, err := ctx.NewMenu(pages, menu.Options{
		Page:               menu.PageOptions{Title: "Level ranking for this server."},
		AllEmbedded:        true,
		RemoveMessageAfter: true,
	})
	if err != nil {
		return err
	}

	_, _, err = ranking.Display(ctx, true, true)
	return err
}

// setupLevelRoles is a two-step wizard: pick a level, then mention the role
// to bind to it.
func (h *Handler) setupLevelRoles(ctx *command.Context) error {
	server, err := h.env.Server(ctx, ctx.GuildID)
	if err != nil {
		return err
	}

	var prefixes, lines []string
	for name, value := range database.ToStringMap(server["roles"]) {
		level, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		prefixes = append(prefixes, utils.EmojiNumber(level))
		lines = append(lines, utils.RoleMention(snowflake.ID(database.ToInt64(value))))
	}
	if len(lines) == 0 {
		lines = []string{"There are no level roles set up for this server."}
		prefixes = nil
	}

	levelPage, err := menu.NewPage(menu.PageOptions{
		Title:    "Enter the number of the level (max: 100) you want to change.",
		Lines:    lines,
		Prefixes: prefixes,
	})
	if err != nil {
		return err
	}

	wizard, err := ctx.NewMenu([]*menu.Page{levelPage}, menu.Options{
		Input: func(msg stream.Message) bool {
			level, err := strconv.Atoi(msg.Content)
			return err == nil && level >= 0 && level <= 100
		},
		RemoveMessageAfter: true,
	})
	if err != nil {
		return err
	}

	input, _, err := wizard.Display(ctx, true, true)
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	level, _ := strconv.Atoi(input.Message.Content)

	rolePage, err := menu.NewPage(menu.PageOptions{
		Title:    "Enter the role you want to link to this level below!",
		Footer:   "Do this by mentioning the role as follows @[role-name]",
		Embedded: true,
	})
	if err != nil {
		return err
	}
	if err := wizard.Update(rolePage); err != nil {
		return err
	}

	wizard.SetInput(func(msg stream.Message) bool {
		_, ok := utils.ParseRoleMention(msg.Content)
		return ok
	})

	input2, _, err := wizard.Display(ctx, false, true)
	if err != nil {
		return err
	}
	if input2 == nil {
		return nil
	}

	roleID, _ := utils.ParseRoleMention(input2.Message.Content)
	if _, err := h.env.PatchServer(ctx, ctx.GuildID, database.Patch{
		Set: map[string]any{fmt.Sprintf("roles.%d", level): int64(roleID)},
	}); err != nil {
		return err
	}

	if err := wizard.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop wizard menu")
	}
	return ctx.Replyf("Role %s will now be obtained upon reaching level %d.",
		utils.RoleMention(roleID), level)
}

// setupExpChannels toggles experience gain in a mentioned channel.
func (h *Handler) setupExpChannels(ctx *command.Context) error {
	server, err := h.env.Server(ctx, ctx.GuildID)
	if err != nil {
		return err
	}

	ignored, _ := database.GetPath(server, "channels.ignore_exp")
	ignoredIDs := database.ToInt64Slice(ignored)

	lines := make([]string, 0, len(ignoredIDs))
	for _, id := range ignoredIDs {
		lines = append(lines, utils.ChannelMention(snowflake.ID(id)))
	}
	if len(lines) == 0 {
		lines = []string{"Every channel currently gains experience."}
	}

	page, err := menu.NewPage(menu.PageOptions{
		Title:       "Channels that will not gain experience",
		Description: "Mention a channel below to toggle experience gain there.",
		Footer:      "Do this using #[channel-name]!",
		Lines:       lines,
	})
	if err != nil {
		return err
	}

	wizard, err := ctx.NewMenu([]*menu.Page{page}, menu.Options{
		Input: func(msg stream.Message) bool {
			_, ok := utils.ParseChannelMention(msg.Content)
			return ok
		},
		RemoveMessageAfter: true,
	})
	if err != nil {
		return err
	}

	input, _, err := wizard.Display(ctx, true, true)
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}

	channelID, _ := utils.ParseChannelMention(input.Message.Content)

	patch := database.Patch{AddToSet: map[string]any{"channels.ignore_exp": int64(channelID)}}
	for _, id := range ignoredIDs {
		if id == int64(channelID) {
			patch = database.Patch{Pull: map[string]any{"channels.ignore_exp": int64(channelID)}}
			break
		}
	}
	if _, err := h.env.PatchServer(ctx, ctx.GuildID, patch); err != nil {
		return err
	}

	if err := wizard.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop wizard menu")
	}
	return ctx.Replyf("Experience gain has been toggled in channel %s!",
		utils.ChannelMention(channelID))
}
