// Package birthday stores member birthdays with their timezone and keeps the
// per-guild birthday role in sync.
package birthday

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Handler owns the birthday commands and the role sweep.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the birthday handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("birthday"),
	}
}

func (h *Handler) birthday(ctx *command.Context) error {
	doc, err := h.env.User(ctx, ctx.Message.AuthorID)
	if err != nil {
		return err
	}

	var user database.UserDoc
	if err := database.Decode(doc, &user); err != nil {
		return err
	}
	if user.Birthday == "" || user.Timezone == "" {
		return ctx.Replyf("You have not setup a birthday yet! Command: %sset_birthday", ctx.Prefix)
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", user.Timezone, err)
	}
	stored, err := time.ParseInLocation(constants.FmtDate, user.Birthday, loc)
	if err != nil {
		return fmt.Errorf("failed to parse stored birthday %q: %w", user.Birthday, err)
	}

	now := time.Now().In(loc)
	next := time.Date(now.Year(), stored.Month(), stored.Day(), 0, 0, 0, 0, loc)
	return ctx.Replyf("Your birthday this year: %s", next.Format("Mon 02 January"))
}

// Commands returns the birthday commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "birthday",
			Description: "Show when your birthday falls this year.",
			GuildOnly:   true,
			Handler:     h.birthday,
		},
		{
			Name:        "set_birthday",
			Description: "Set your birthday and timezone through a DM wizard.",
			Handler:     h.setBirthday,
		},
	}
}

// Sweep grants the birthday role to members whose birthday it is in their
// timezone and removes it from everyone else. Wired into the maintenance
// scheduler.
func (h *Handler) Sweep(ctx context.Context) error {
	users, err := h.env.Store.All(ctx, database.CollectionUsers)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	servers, err := h.env.Store.All(ctx, database.CollectionServers)
	if err != nil {
		return fmt.Errorf("failed to list servers: %w", err)
	}

	for userID, doc := range users {
		var user database.UserDoc
		if err := database.Decode(doc, &user); err != nil {
			h.logger.Debug("Skipping malformed user document",
				zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		if user.Birthday == "" || user.Timezone == "" {
			continue
		}

		loc, err := time.LoadLocation(user.Timezone)
		if err != nil {
			continue
		}
		stored, err := time.ParseInLocation(constants.FmtDate, user.Birthday, loc)
		if err != nil {
			continue
		}

		celebrating := time.Now().In(loc).Format(constants.FmtDateNoYear) ==
			stored.Format(constants.FmtDateNoYear)
		if celebrating == user.HasBirthdayRole {
			continue
		}

		h.updateBirthdayRoles(snowflake.ID(userID), servers, celebrating)

		if _, err := h.env.PatchUser(ctx, snowflake.ID(userID), database.Patch{
			Set: map[string]any{"has_birthday_role": celebrating},
		}); err != nil {
			h.logger.Error("Failed to record birthday role state",
				zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// updateBirthdayRoles toggles the birthday role in every guild that has one
// configured and counts the user as a member.
func (h *Handler) updateBirthdayRoles(
	userID snowflake.ID, servers map[int64]database.Document, celebrating bool,
) {
	for guildID, server := range servers {
		roleValue, _ := database.GetPath(server, "roles.birthday")
		roleID := database.ToInt64(roleValue)
		if roleID == 0 {
			continue
		}

		if _, err := h.env.Client.Rest().GetMember(snowflake.ID(guildID), userID); err != nil {
			continue
		}

		var err error
		if celebrating {
			err = h.env.Client.Rest().AddMemberRole(snowflake.ID(guildID), userID, snowflake.ID(roleID))
		} else {
			err = h.env.Client.Rest().RemoveMemberRole(snowflake.ID(guildID), userID, snowflake.ID(roleID))
		}
		if err != nil {
			h.logger.Debug("Failed to toggle birthday role",
				zap.Int64("guild_id", guildID), zap.Error(err))
		}
	}
}

// parseBirthdayInput turns a YYYY/MM/DD (or MM/DD) string into a date. The
// year defaults to 1970 when omitted.
func parseBirthdayInput(content string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(content), "/")

	year := 1970
	if len(parts) == 3 {
		year, _ = strconv.Atoi(parts[0])
		parts = parts[1:]
	} else if len(parts) != 2 {
		return time.Time{}, false
	}

	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, false
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflowing components, so 2000/02/31 silently
	// becomes March. Reject anything that moved.
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}
