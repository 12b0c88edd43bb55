package guildsetup

import (
	"fmt"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
)

// setChannel is a two-step wizard: pick the channel slot with a numeral
// reaction, then mention the channel to bind.
func (h *Handler) setChannel(ctx *command.Context) error {
	slots := constants.DefaultChannels

	slotPage, err := menu.NewPage(menu.PageOptions{
		Title:              "Select down below what channel type you would like to set up!",
		Lines:              slots,
		EnumerateWithEmoji: true,
		Embedded:           true,
	})
	if err != nil {
		return err
	}

	wizard, err := ctx.NewMenu([]*menu.Page{slotPage}, menu.Options{
		Selectors:          constants.NumberEmotesUnicode[:len(slots)],
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

	slot := ""
	for i, emoji := range constants.NumberEmotesUnicode[:len(slots)] {
		if emoji == input.Reaction.Emoji {
			slot = slots[i]
			break
		}
	}
	if slot == "" {
		return nil
	}

	channelPage, err := menu.NewPage(menu.PageOptions{
		Title:       "Enter the channel you want to link below!",
		Description: "Do this by mentioning the channel as follows #[channel-name]",
		Embedded:    true,
	})
	if err != nil {
		return err
	}
	if err := wizard.Update(channelPage); err != nil {
		return err
	}

	wizard.SetSelectors(nil)
	wizard.SetInput(func(msg stream.Message) bool {
		_, ok := utils.ParseChannelMention(msg.Content)
		return ok
	})

	input, _, err = wizard.Display(ctx, false, true)
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}

	channelID, _ := utils.ParseChannelMention(input.Message.Content)
	if _, err := h.env.PatchServer(ctx, ctx.GuildID, database.Patch{
		Set: map[string]any{fmt.Sprintf("channels.%s", slot): int64(channelID)},
	}); err != nil {
		return err
	}

	if err := wizard.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop channel wizard")
	}
	return ctx.Replyf("%s has been setup as the %s channel!", utils.ChannelMention(channelID), slot)
}
