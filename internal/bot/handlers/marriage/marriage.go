// Package marriage implements the marriage commands: proposals, the status
// check and divorces, all tracked per guild on user documents.
package marriage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

var answerPattern = regexp.MustCompile(`(?i)\b(yes|no)\b`)

// Handler owns the marriage commands.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the marriage handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("marriage"),
	}
}

// marriedTo returns who a user is married to in a guild, zero when single.
func (h *Handler) marriedTo(ctx *command.Context, userID snowflake.ID) (snowflake.ID, error) {
	doc, err := h.env.User(ctx, userID)
	if err != nil {
		return 0, err
	}
	value, _ := database.GetPath(doc, fmt.Sprintf("servers.%d.married_to", ctx.GuildID))
	return snowflake.ID(database.ToInt64(value)), nil
}

func (h *Handler) marriage(ctx *command.Context) error {
	doc, err := h.env.User(ctx, ctx.Message.AuthorID)
	if err != nil {
		return err
	}

	partnerValue, _ := database.GetPath(doc, fmt.Sprintf("servers.%d.married_to", ctx.GuildID))
	partner := database.ToInt64(partnerValue)
	if partner == 0 {
		return ctx.Reply("You are not married to anyone.")
	}

	dateValue, _ := database.GetPath(doc, fmt.Sprintf("servers.%d.marriage_date", ctx.GuildID))
	date, err := time.Parse(time.RFC3339, database.ToString(dateValue))
	if err != nil {
		return fmt.Errorf("failed to parse marriage date: %w", err)
	}

	days := int(time.Since(date).Hours() / 24)
	return ctx.Replyf("You have been married to %s for %d days! :heart:",
		utils.UserMention(snowflake.ID(partner)), days)
}

func (h *Handler) propose(ctx *command.Context) error {
	member, ok := utils.ParseUserMention(ctx.Arg(0))
	if !ok {
		return ctx.Reply("Mention the member you want to propose to like @name.")
	}

	proposerMarried, err := h.marriedTo(ctx, ctx.Message.AuthorID)
	if err != nil {
		return err
	}
	proposedMarried, err := h.marriedTo(ctx, member)
	if err != nil {
		return err
	}
	if proposerMarried != 0 || proposedMarried != 0 {
		return ctx.Reply("Cannot propose to this person because either you or they are already married!")
	}

	page, err := menu.NewPage(menu.PageOptions{
		Title:  fmt.Sprintf("%s has proposed to %s! :heart:", utils.UserMention(ctx.Message.AuthorID), utils.UserMention(member)),
		Text:   fmt.Sprintf("%s, how do you respond? (yes/no)", utils.UserMention(member)),
		Footer: "Type your answer in the chat below!",
	})
	if err != nil {
		return err
	}

	// The proposal is answered by the proposed member, not the invoker.
	proposal, err := menu.New(menu.Config{
		Messenger:   h.env.Messenger,
		Events:      h.env.Events,
		Logger:      ctx.Logger,
		ChannelID:   ctx.Message.ChannelID,
		Interactors: []snowflake.ID{member},
		Pages:       []*menu.Page{page},
		Options: menu.Options{
			Input: func(msg stream.Message) bool {
				return answerPattern.MatchString(msg.Content)
			},
			HideButtons:        true,
			HideGeneralButtons: true,
			RemoveMessageAfter: true,
		},
	})
	if err != nil {
		return err
	}

	input, _, err := proposal.Display(ctx, true, true)
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	if err := proposal.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop proposal menu")
	}

	if strings.ToLower(answerPattern.FindString(input.Message.Content)) == "no" {
		return ctx.Reply("Ouch that must sting... :broken_heart:")
	}

	date := time.Now().UTC().Format(time.RFC3339)
	for _, pair := range [][2]snowflake.ID{{ctx.Message.AuthorID, member}, {member, ctx.Message.AuthorID}} {
		if _, err := h.env.PatchUser(ctx, pair[0], database.Patch{
			Set: map[string]any{
				fmt.Sprintf("servers.%d.married_to", ctx.GuildID):    int64(pair[1]),
				fmt.Sprintf("servers.%d.marriage_date", ctx.GuildID): date,
			},
		}); err != nil {
			return err
		}
	}

	return ctx.Replyf("Congratulations %s & %s are officially married! :heart:",
		utils.UserMention(member), utils.UserMention(ctx.Message.AuthorID))
}

func (h *Handler) divorce(ctx *command.Context) error {
	partner, err := h.marriedTo(ctx, ctx.Message.AuthorID)
	if err != nil {
		return err
	}
	if partner == 0 {
		return ctx.Reply("You are not married... Therefore you cannot divorce anyone :s")
	}

	page, err := menu.NewPage(menu.PageOptions{
		Title: fmt.Sprintf("Are you sure you want to divorce %s?", utils.UserMention(partner)),
		Text:  "Confirm your decision below. (yes/no)",
	})
	if err != nil {
		return err
	}

	confirmation, err := ctx.NewMenu([]*menu.Page{page}, menu.Options{
		Input: func(msg stream.Message) bool {
			return answerPattern.MatchString(msg.Content)
		},
		RemoveMessageAfter: true,
	})
	if err != nil {
		return err
	}

	input, _, err := confirmation.Display(ctx, true, true)
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	if err := confirmation.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop divorce menu")
	}

	if strings.ToLower(answerPattern.FindString(input.Message.Content)) == "no" {
		return nil
	}

	for _, userID := range []snowflake.ID{ctx.Message.AuthorID, partner} {
		if _, err := h.env.PatchUser(ctx, userID, database.Patch{
			Unset: []string{
				fmt.Sprintf("servers.%d.married_to", ctx.GuildID),
				fmt.Sprintf("servers.%d.marriage_date", ctx.GuildID),
			},
		}); err != nil {
			return err
		}
	}

	return ctx.Replyf("%s and %s are now officially divorced! :o",
		utils.UserMention(ctx.Message.AuthorID), utils.UserMention(partner))
}

// Commands returns the marriage commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "marriage",
			Description: "Show who you are married to and for how long.",
			GuildOnly:   true,
			Handler:     h.marriage,
		},
		{
			Name:        "propose",
			Description: "Propose to another member.",
			Usage:       "@member",
			GuildOnly:   true,
			Handler:     h.propose,
		},
		{
			Name:        "divorce",
			Description: "Divorce your partner.",
			GuildOnly:   true,
			Handler:     h.divorce,
		},
	}
}
