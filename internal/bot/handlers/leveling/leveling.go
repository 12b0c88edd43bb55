// Package leveling grants experience for activity and exposes the rank,
// top, level and leveling setup commands.
package leveling

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/attendantbot/attendant/internal/redis"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Handler owns the leveling commands and the experience listener.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the leveling handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("leveling"),
	}
}

// OnMessage grants experience for guild messages outside the excluded
// channels, announcing level-ups and swapping level roles.
func (h *Handler) OnMessage(ctx context.Context, msg stream.Message) {
	if msg.AuthorBot || msg.GuildID == 0 {
		return
	}

	server, err := h.env.Server(ctx, msg.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	ignored, _ := database.GetPath(server, "channels.ignore_exp")
	for _, channelID := range database.ToInt64Slice(ignored) {
		if channelID == int64(msg.ChannelID) {
			return
		}
	}

	cooldown := time.Duration(h.env.Config.Bot.ExpCooldown) * time.Second
	if cooldown <= 0 {
		cooldown = constants.ExpCooldown
	}

	ok, err := h.env.Cooldowns.Try(ctx,
		redis.MemberKey("exp", int64(msg.GuildID), int64(msg.AuthorID)), cooldown)
	if err != nil {
		h.logger.Error("Failed to check experience cooldown", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	increase := h.env.Config.Bot.ExpIncrease
	if increase <= 0 {
		increase = constants.DefaultExpIncrease
	}

	expPath := fmt.Sprintf("servers.%d.experience", msg.GuildID)
	user, err := h.env.User(ctx, msg.AuthorID)
	if err != nil {
		h.logger.Error("Failed to load user document", zap.Error(err))
		return
	}
	before, _ := database.GetPath(user, expPath)
	experience := database.ToInt64(before)

	_, err = h.env.PatchUser(ctx, msg.AuthorID, database.Patch{
		Inc: map[string]int64{expPath: increase},
		Set: map[string]any{
			fmt.Sprintf("servers.%d.last_experience_gain", msg.GuildID): time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		h.logger.Error("Failed to grant experience", zap.Error(err))
		return
	}

	oldLevel := utils.ExpToLevel(experience)
	newLevel := utils.ExpToLevel(experience + increase)
	if newLevel <= oldLevel {
		return
	}

	if _, err := h.env.Client.Rest().CreateMessage(msg.ChannelID,
		discord.NewMessageCreateBuilder().
			SetContentf("%s leveled up to %d! Congratulations :partying_face:",
				utils.UserMention(msg.AuthorID), newLevel).
			Build()); err != nil {
		h.logger.Debug("Failed to announce level up", zap.Error(err))
	}

	h.swapLevelRoles(ctx, msg.GuildID, msg.AuthorID, server, newLevel)
}

// swapLevelRoles removes the previous level role and grants the one bound
// to the reached level, if any.
func (h *Handler) swapLevelRoles(
	ctx context.Context, guildID, userID snowflake.ID, server database.Document, level int,
) {
	roles := database.ToStringMap(server["roles"])

	newRoleID := database.ToInt64(roles[strconv.Itoa(level)])
	if newRoleID == 0 {
		return
	}

	member, err := h.env.Client.Rest().GetMember(guildID, userID)
	if err != nil {
		h.logger.Debug("Failed to get member for level roles", zap.Error(err))
		return
	}

	for name, value := range roles {
		boundLevel, err := strconv.Atoi(name)
		if err != nil || boundLevel >= level {
			continue
		}
		oldRoleID := snowflake.ID(database.ToInt64(value))
		for _, roleID := range member.RoleIDs {
			if roleID == oldRoleID {
				if err := h.env.Client.Rest().RemoveMemberRole(guildID, userID, oldRoleID); err != nil {
					h.logger.Debug("Failed to remove old level role", zap.Error(err))
				}
				break
			}
		}
	}

	if err := h.env.Client.Rest().AddMemberRole(guildID, userID, snowflake.ID(newRoleID)); err != nil {
		h.logger.Debug("Failed to add level role", zap.Error(err))
	}
}

// guildExperience returns every member's experience in a guild, keyed by
// user ID.
func (h *Handler) guildExperience(ctx context.Context, guildID snowflake.ID) (map[int64]int64, error) {
	users, err := h.env.Store.All(ctx, database.CollectionUsers)
	if err != nil {
		return nil, err
	}

	expPath := fmt.Sprintf("servers.%d.experience", guildID)
	experience := make(map[int64]int64)
	for id, doc := range users {
		if value, ok := database.GetPath(doc, expPath); ok {
			experience[id] = database.ToInt64(value)
		}
	}
	return experience, nil
}

func (h *Handler) rank(ctx *command.Context) error {
	experience, err := h.guildExperience(ctx, ctx.GuildID)
	if err != nil {
		return err
	}

	own, ok := experience[int64(ctx.Message.AuthorID)]
	if !ok {
		return ctx.Reply("No record found!")
	}

	rank := 1
	for _, exp := range experience {
		if exp > own {
			rank++
		}
	}
	return ctx.Replyf("You are ranked #%d in this server!", rank)
}

func (h *Handler) top(ctx *command.Context) error {
	experience, err := h.guildExperience(ctx, ctx.GuildID)
	if err != nil {
		return err
	}
	if len(experience) == 0 {
		return ctx.Reply("Nobody has gained experience here yet!")
	}

	type entry struct {
		userID int64
		exp    int64
	}
	entries := make([]entry, 0, len(experience))
	for id, exp := range experience {
		entries = append(entries, entry{userID: id, exp: exp})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].exp > entries[j].exp })
	if len(entries) > 80 {
		entries = entries[:80]
	}

	ranking := make([]string, len(entries))
	for i, e := range entries {
		ranking[i] = fmt.Sprintf("%s %s - Level: %d | %d",
			utils.EmojiNumber(i+1), utils.UserMention(snowflake.ID(e.userID)),
			utils.ExpToLevel(e.exp), e.exp)
	}

	return h.showRanking(ctx, utils.Chunk(ranking, 8))
}

func (h *Handler) level(ctx *command.Context) error {
	target := ctx.Message.AuthorID
	if mention := ctx.Arg(0); mention != "" {
		id, ok := utils.ParseUserMention(mention)
		if !ok {
			return ctx.Reply("Mention the member like @name.")
		}
		target = id
	}

	user, err := h.env.User(ctx, target)
	if err != nil {
		return err
	}

	value, ok := database.GetPath(user, fmt.Sprintf("servers.%d.experience", ctx.GuildID))
	if !ok {
		return ctx.Reply("No record found!")
	}
	experience := database.ToInt64(value)

	level := utils.ExpToLevel(experience)
	reqCurrent := utils.LevelToExp(level)
	gained := experience - reqCurrent
	reqNext := utils.LevelToExp(level + 1)
	levelUp := reqNext - reqCurrent

	fraction := 0.0
	if levelUp > 0 {
		fraction = float64(gained) / float64(levelUp)
	}

	embed := discord.NewEmbedBuilder().
		SetTitlef("%s is level %d!", utils.UserMention(target), level).
		SetDescriptionf("They have gained a total of %d experience points!", experience).
		AddField(
			fmt.Sprintf("%d/%d", gained, levelUp),
			utils.ProgressBar(fraction, int(experience)),
			false,
		).
		Build()

	return ctx.ReplyEmbed(embed)
}

// Commands returns the leveling commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "rank",
			Description: "Show your rank on this server's leveling ladder.",
			GuildOnly:   true,
			Handler:     h.rank,
		},
		{
			Name:        "top",
			Description: "Show the server's leveling ladder.",
			GuildOnly:   true,
			Handler:     h.top,
		},
		{
			Name:        "level",
			Description: "Show a member's level and progress.",
			Usage:       "[@member]",
			GuildOnly:   true,
			Handler:     h.level,
		},
		{
			Name:        "setup_level_roles",
			Description: "Bind a role to a level.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.setupLevelRoles,
		},
		{
			Name:        "setup_exp_channels",
			Description: "Toggle experience gain per channel.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.setupExpChannels,
		},
	}
}
