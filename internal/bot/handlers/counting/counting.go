// Package counting runs the counting game: members post arithmetic
// expressions in the counting channel and the bot verifies them against the
// running count.
package counting

import (
	"context"
	"math"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"go.uber.org/zap"
)

// Handler owns the counting listener.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the counting handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("counting"),
	}
}

// OnMessage checks counting-channel messages against the expected count.
// A correct, non-repeated count gets a thumbs up and advances the game;
// anything else resets it to one.
func (h *Handler) OnMessage(ctx context.Context, msg stream.Message) {
	if msg.AuthorBot || msg.GuildID == 0 || !IsExpression(msg.Content) {
		return
	}

	server, err := h.env.Server(ctx, msg.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	channelID, _ := database.GetPath(server, "channels.counting")
	if database.ToInt64(channelID) != int64(msg.ChannelID) {
		return
	}

	value, err := Evaluate(msg.Content)
	if err != nil {
		return
	}

	current, _ := database.GetPath(server, "counting.current")
	lastCounter, _ := database.GetPath(server, "counting.last_counter")
	expected := database.ToInt64(current)
	if expected == 0 {
		expected = 1
	}

	correct := value == float64(expected) && math.Trunc(value) == value &&
		database.ToInt64(lastCounter) != int64(msg.AuthorID)

	if correct {
		h.react(msg, constants.ReactionThumbsUp)
		_, err = h.env.PatchServer(ctx, msg.GuildID, database.Patch{
			Inc: map[string]int64{"counting.current": 1},
			Set: map[string]any{"counting.last_counter": int64(msg.AuthorID)},
		})
		if err != nil {
			h.logger.Error("Failed to advance count", zap.Error(err))
		}
		return
	}

	h.react(msg, constants.ReactionThumbsDown)
	if _, err := h.env.Client.Rest().CreateMessage(msg.ChannelID,
		discord.NewMessageCreateBuilder().
			SetContentf("%s fucked it up at %d!", msg.AuthorName, expected).
			Build()); err != nil {
		h.logger.Debug("Failed to announce reset", zap.Error(err))
	}

	_, err = h.env.PatchServer(ctx, msg.GuildID, database.Patch{
		Set: map[string]any{
			"counting.current":      int64(1),
			"counting.last_counter": int64(0),
		},
	})
	if err != nil {
		h.logger.Error("Failed to reset count", zap.Error(err))
	}
}

func (h *Handler) react(msg stream.Message, emoji string) {
	if err := h.env.Messenger.AddReaction(context.Background(), msg.ChannelID, msg.MessageID, emoji); err != nil {
		h.logger.Debug("Failed to add counting reaction", zap.Error(err))
	}
}
