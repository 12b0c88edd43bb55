// Package rolemanager implements reaction-role managers: an admin wizard
// binding emoji to roles on a message, and the listeners granting and
// revoking those roles as members react.
package rolemanager

import (
	"context"
	"fmt"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

const (
	managerMessageExample = "https://i.imgur.com/aWWPakN.png"
	roleMessageExample    = "https://i.imgur.com/a72g73D.png"
	roleReactionExample   = "https://i.imgur.com/SIfTfUU.png"
)

// Handler owns the role manager commands and reaction listeners.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the role manager handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("rolemanager"),
	}
}

func (h *Handler) createRoleManager(ctx *command.Context) error {
	managerPage, err := menu.NewPage(menu.PageOptions{
		Title:       "Enter the message that people will react to.",
		Description: "I suggest providing a list of the role and it's reaction!",
		Image:       managerMessageExample,
		Embedded:    true,
	})
	if err != nil {
		return err
	}

	wizard, err := ctx.NewMenu([]*menu.Page{managerPage}, menu.Options{
		Input:              func(stream.Message) bool { return true },
		Timeout:            300 * time.Second,
		RemoveMessageAfter: true,
	})
	if err != nil {
		return err
	}

	// The author's next message becomes the manager message itself.
	input, _, err := wizard.Display(ctx, true, true)
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	managerMessage := *input.Message

	wizard.SetTimeout(60 * time.Second)

	multi, ok, err := h.askMultiRole(ctx, wizard)
	if err != nil || !ok {
		return err
	}

	roles, err := h.collectRolePairs(ctx, wizard, managerMessage)
	if err != nil {
		return err
	}

	if err := wizard.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop role manager wizard")
	}
	if len(roles) == 0 {
		return nil
	}

	if _, err := h.env.PatchServer(ctx, ctx.GuildID, database.Patch{
		Set: map[string]any{
			fmt.Sprintf("role_managers.%d", managerMessage.MessageID): map[string]any{
				"channel": int64(ctx.Message.ChannelID),
				"multi":   multi,
				"roles":   roles,
			},
		},
	}); err != nil {
		return err
	}

	if err := h.env.Client.Rest().DeleteMessage(ctx.Message.ChannelID, ctx.Message.MessageID); err != nil {
		h.logger.Debug("Failed to delete wizard command", zap.Error(err))
	}

	end, err := h.env.Client.Rest().CreateMessage(ctx.Message.ChannelID,
		discord.NewMessageCreateBuilder().
			SetContent("Everything is setup! You may delete anything unnecessary :)").
			Build())
	if err != nil {
		return err
	}
	time.Sleep(5 * time.Second)
	if err := h.env.Client.Rest().DeleteMessage(ctx.Message.ChannelID, end.ID); err != nil {
		h.logger.Debug("Failed to delete end message", zap.Error(err))
	}
	return nil
}

// askMultiRole asks whether members may hold several manager roles at once.
func (h *Handler) askMultiRole(ctx *command.Context, wizard *menu.Menu) (bool, bool, error) {
	page, err := menu.NewPage(menu.PageOptions{
		Title:       "Should one be able to get multiple of these roles?",
		Description: "Enter yes or no below!",
	})
	if err != nil {
		return false, false, err
	}
	if err := wizard.Update(page); err != nil {
		return false, false, err
	}

	wizard.SetInput(func(msg stream.Message) bool {
		return msg.Content == "yes" || msg.Content == "no"
	})

	input, _, err := wizard.Display(ctx, false, true)
	if err != nil {
		return false, false, err
	}
	if input == nil {
		return false, false, nil
	}
	return input.Message.Content == "yes", true, nil
}

// collectRolePairs alternates between a role mention step and a reaction
// step until the author stops the wizard or the entry cap is reached.
func (h *Handler) collectRolePairs(
	ctx *command.Context, wizard *menu.Menu, managerMessage stream.Message,
) (map[string]any, error) {
	rolePage, err := menu.NewPage(menu.PageOptions{
		Title:       "Enter the role you want to add.",
		Description: "Do this by mentioning the role with @[role-name]",
		Footer:      "Click :x: to finish!",
		Image:       roleMessageExample,
		Embedded:    true,
	})
	if err != nil {
		return nil, err
	}
	reactionPage, err := menu.NewPage(menu.PageOptions{
		Title:    "React the emoji that you want to link to your previous message!",
		Image:    roleReactionExample,
		Embedded: true,
	})
	if err != nil {
		return nil, err
	}

	roles := make(map[string]any)
	for len(roles) < constants.MaxManagerRoles {
		// Role step: text input, stop button available to finish.
		wizard.SetGeneralButtonsHidden(false)
		wizard.SetReactionInput(nil)
		wizard.SetInput(func(msg stream.Message) bool {
			_, ok := utils.ParseRoleMention(msg.Content)
			return ok
		})
		if err := wizard.Update(rolePage); err != nil {
			return roles, err
		}

		input, _, err := wizard.Display(ctx, false, true)
		if err != nil {
			return roles, err
		}
		if input == nil {
			break
		}
		roleID, _ := utils.ParseRoleMention(input.Message.Content)

		// Reaction step: any reaction from the author links the emoji.
		wizard.SetGeneralButtonsHidden(true)
		wizard.SetInput(nil)
		wizard.SetReactionInput(func(r stream.Reaction) bool {
			return r.UserID == ctx.Message.AuthorID && !r.Removed
		})
		if err := wizard.Update(reactionPage); err != nil {
			return roles, err
		}

		input, _, err = wizard.Display(ctx, false, true)
		if err != nil {
			return roles, err
		}
		if input == nil {
			break
		}
		emoji := input.Reaction.Emoji

		if err := h.env.Messenger.AddReaction(ctx, managerMessage.ChannelID,
			managerMessage.MessageID, emoji); err != nil {
			if err := ctx.Reply("Something went wrong... Maybe this emoji is invalid? :S"); err != nil {
				return roles, err
			}
			continue
		}
		roles[emoji] = int64(roleID)
	}

	if len(roles) >= constants.MaxManagerRoles {
		if err := ctx.Replyf("You have reached the maximum of %d entries! "+
			"Message has been activated, create a new manager to make more!",
			constants.MaxManagerRoles); err != nil {
			return roles, err
		}
	}
	return roles, nil
}

// reManage reattaches the stored reactions to an existing manager message.
func (h *Handler) reManage(ctx *command.Context) error {
	managerID, err := snowflake.Parse(ctx.Arg(0))
	if err != nil {
		return ctx.Reply("Give the ID of the manager message.")
	}

	server, err := h.env.Server(ctx, ctx.GuildID)
	if err != nil {
		return err
	}

	info, ok := database.GetPath(server, fmt.Sprintf("role_managers.%d", managerID))
	if !ok {
		return nil
	}
	manager := database.ToStringMap(info)
	channelID := snowflake.ID(database.ToInt64(manager["channel"]))
	roles := database.ToStringMap(manager["roles"])

	if err := h.env.Messenger.ClearReactions(ctx, channelID, managerID); err != nil {
		return err
	}
	for emoji := range roles {
		if err := h.env.Messenger.AddReaction(ctx, channelID, managerID, emoji); err != nil {
			h.logger.Debug("Failed to reattach manager reaction",
				zap.String("emoji", emoji), zap.Error(err))
		}
	}
	return nil
}

// OnReaction grants or revokes a manager's roles as members react.
func (h *Handler) OnReaction(ctx context.Context, reaction stream.Reaction) {
	if reaction.GuildID == 0 || reaction.UserBot {
		return
	}

	server, err := h.env.Server(ctx, reaction.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	info, ok := database.GetPath(server, fmt.Sprintf("role_managers.%d", reaction.MessageID))
	if !ok {
		return
	}
	manager := database.ToStringMap(info)
	roles := database.ToStringMap(manager["roles"])

	roleValue, bound := roles[reaction.Emoji]
	if reaction.Removed {
		if !bound {
			return
		}
		if err := h.env.Client.Rest().RemoveMemberRole(reaction.GuildID,
			reaction.UserID, snowflake.ID(database.ToInt64(roleValue))); err != nil {
			h.logger.Debug("Failed to revoke manager role", zap.Error(err))
		}
		return
	}

	if !bound {
		// Keep the manager message free of unrelated reactions.
		if err := h.env.Messenger.RemoveUserReaction(ctx, reaction.ChannelID,
			reaction.MessageID, reaction.Emoji, reaction.UserID); err != nil {
			h.logger.Debug("Failed to remove unbound reaction", zap.Error(err))
		}
		return
	}

	multi, _ := manager["multi"].(bool)
	if !multi {
		member, err := h.env.Client.Rest().GetMember(reaction.GuildID, reaction.UserID)
		if err != nil {
			h.logger.Debug("Failed to get member", zap.Error(err))
			return
		}
		for _, held := range member.RoleIDs {
			for _, value := range roles {
				if int64(held) == database.ToInt64(value) {
					if err := h.env.Messenger.RemoveUserReaction(ctx, reaction.ChannelID,
						reaction.MessageID, reaction.Emoji, reaction.UserID); err != nil {
						h.logger.Debug("Failed to remove extra reaction", zap.Error(err))
					}
					return
				}
			}
		}
	}

	if err := h.env.Client.Rest().AddMemberRole(reaction.GuildID,
		reaction.UserID, snowflake.ID(database.ToInt64(roleValue))); err != nil {
		h.logger.Debug("Failed to grant manager role", zap.Error(err))
	}
}

// Commands returns the role manager commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "create_role_manager",
			Description: "Bind emoji reactions on a message to roles.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.createRoleManager,
		},
		{
			Name:        "re_manage",
			Description: "Reattach the reactions of an existing role manager.",
			Usage:       "<message-id>",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.reManage,
		},
	}
}
