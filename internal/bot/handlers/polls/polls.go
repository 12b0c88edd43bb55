// Package polls implements reaction-voted polls: a creation wizard and the
// listener that keeps the bar-chart embed in sync with the votes.
package polls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// replyTimeout bounds each wizard prompt.
const replyTimeout = 60 * time.Second

// Handler owns the poll command and the vote listener.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the polls handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("polls"),
	}
}

// awaitReply blocks until the invoker sends another message in the channel,
// or the prompt times out.
func (h *Handler) awaitReply(ctx *command.Context) (stream.Message, bool) {
	waiter := h.env.Events.AwaitMessage(func(msg stream.Message) bool {
		return msg.AuthorID == ctx.Message.AuthorID && msg.ChannelID == ctx.Message.ChannelID
	})

	timer := time.NewTimer(replyTimeout)
	defer timer.Stop()

	select {
	case msg := <-waiter.C:
		return msg, true
	case <-timer.C:
		waiter.Cancel()
		return stream.Message{}, false
	case <-ctx.Done():
		waiter.Cancel()
		return stream.Message{}, false
	}
}

func (h *Handler) poll(ctx *command.Context) error {
	prompt, err := h.env.Client.Rest().CreateMessage(ctx.Message.ChannelID,
		discord.NewMessageCreateBuilder().SetContent("Enter your poll question").Build())
	if err != nil {
		return err
	}

	cleanup := []snowflake.ID{ctx.Message.MessageID, prompt.ID}

	question, ok := h.awaitReply(ctx)
	if !ok {
		return ctx.Reply("Timed out! Please start over.")
	}
	cleanup = append(cleanup, question.MessageID)

	var queries []string
	for len(queries) < constants.MaxPollOptions {
		if _, err := h.env.Client.Rest().UpdateMessage(ctx.Message.ChannelID, prompt.ID,
			discord.NewMessageUpdateBuilder().
				SetContentf("Enter response query (%d) - 'done' to finish.", len(queries)+1).
				Build()); err != nil {
			return err
		}

		query, ok := h.awaitReply(ctx)
		if !ok {
			return ctx.Reply("Timed out! Please start over.")
		}
		cleanup = append(cleanup, query.MessageID)

		if strings.EqualFold(query.Content, "done") {
			break
		}
		queries = append(queries, query.Content)
	}
	if len(queries) == 0 {
		return ctx.Reply("A poll needs at least one response query!")
	}

	embed := discord.NewEmbedBuilder().SetTitlef(":bar_chart: %s", question.Content)
	for i, query := range queries {
		embed.AddField(
			fmt.Sprintf("%s %s", utils.EmojiNumber(i+1), query),
			utils.ProgressBar(0, 0),
			false,
		)
	}

	if err := h.env.Client.Rest().BulkDeleteMessages(ctx.Message.ChannelID, cleanup); err != nil {
		h.logger.Debug("Failed to clean up poll wizard messages", zap.Error(err))
	}

	pollMessage, err := h.env.Client.Rest().CreateMessage(ctx.Message.ChannelID,
		discord.NewMessageCreateBuilder().SetEmbeds(embed.Build()).Build())
	if err != nil {
		return err
	}

	for i := range queries {
		if err := h.env.Messenger.AddReaction(ctx, ctx.Message.ChannelID,
			pollMessage.ID, constants.NumberEmotesUnicode[i]); err != nil {
			h.logger.Debug("Failed to add poll reaction", zap.Error(err))
		}
	}

	_, err = h.env.PatchServer(ctx, ctx.GuildID, database.Patch{
		Set: map[string]any{
			fmt.Sprintf("polls.%d.channel", pollMessage.ID): int64(ctx.Message.ChannelID),
			fmt.Sprintf("polls.%d.title", pollMessage.ID):   question.Content,
			fmt.Sprintf("polls.%d.queries", pollMessage.ID): toAnySlice(queries),
		},
	})
	return err
}

// OnReaction recomputes a poll's bar chart whenever a vote is added or
// removed.
func (h *Handler) OnReaction(ctx context.Context, reaction stream.Reaction) {
	if reaction.GuildID == 0 || reaction.UserBot {
		return
	}

	server, err := h.env.Server(ctx, reaction.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	info, ok := database.GetPath(server, fmt.Sprintf("polls.%d", reaction.MessageID))
	if !ok {
		return
	}
	poll := database.ToStringMap(info)
	queries := toStringSlice(poll["queries"])

	message, err := h.env.Client.Rest().GetMessage(reaction.ChannelID, reaction.MessageID)
	if err != nil {
		h.logger.Debug("Failed to fetch poll message", zap.Error(err))
		return
	}

	// The bot's own reactions seed the options; they never count as votes.
	total := 0
	for _, messageReaction := range message.Reactions {
		total += messageReaction.Count - 1
	}

	embed := discord.NewEmbedBuilder().SetTitlef(":bar_chart: %s", database.ToString(poll["title"]))
	for i, messageReaction := range message.Reactions {
		if i >= len(queries) {
			break
		}

		votes := messageReaction.Count - 1
		fraction := 0.0
		if total > 0 {
			fraction = float64(votes) / float64(total)
		}

		embed.AddField(
			fmt.Sprintf("%s %s", utils.EmojiNumber(i+1), queries[i]),
			utils.ProgressBar(fraction, votes),
			false,
		)
	}

	if _, err := h.env.Client.Rest().UpdateMessage(reaction.ChannelID, reaction.MessageID,
		discord.NewMessageUpdateBuilder().SetEmbeds(embed.Build()).Build()); err != nil {
		h.logger.Debug("Failed to update poll message", zap.Error(err))
	}
}

// Commands returns the poll commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "poll",
			Description: "Create a reaction-voted poll.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.poll,
		},
	}
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func toStringSlice(value any) []string {
	items, _ := value.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, database.ToString(item))
	}
	return out
}
