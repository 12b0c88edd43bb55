// Package platform adapts the Discord client to the menu widget's messenger
// boundary and feeds gateway events into the in-process event stream.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// Messenger implements menu.Messenger over the Discord REST API, mapping
// platform failures to the menu error taxonomy.
type Messenger struct {
	client bot.Client
}

// NewMessenger wraps a Discord client.
func NewMessenger(client bot.Client) *Messenger {
	return &Messenger{client: client}
}

// SendMessage posts a message and returns its ID.
func (m *Messenger) SendMessage(
	_ context.Context, channelID snowflake.ID, content string, embed *discord.Embed,
) (snowflake.ID, error) {
	builder := discord.NewMessageCreateBuilder().SetContent(content)
	if embed != nil {
		builder.SetEmbeds(*embed)
	}

	message, err := m.client.Rest().CreateMessage(channelID, builder.Build())
	if err != nil {
		return 0, mapError("send message", err)
	}
	return message.ID, nil
}

// EditMessage replaces a message's content and embed.
func (m *Messenger) EditMessage(
	_ context.Context, channelID snowflake.ID, messageID snowflake.ID, content string, embed *discord.Embed,
) error {
	builder := discord.NewMessageUpdateBuilder().SetContent(content)
	if embed != nil {
		builder.SetEmbeds(*embed)
	} else {
		builder.SetEmbeds()
	}

	if _, err := m.client.Rest().UpdateMessage(channelID, messageID, builder.Build()); err != nil {
		return mapError("edit message", err)
	}
	return nil
}

// DeleteMessage removes a message.
func (m *Messenger) DeleteMessage(_ context.Context, channelID snowflake.ID, messageID snowflake.ID) error {
	if err := m.client.Rest().DeleteMessage(channelID, messageID); err != nil {
		return mapError("delete message", err)
	}
	return nil
}

// AddReaction attaches the bot's reaction to a message.
func (m *Messenger) AddReaction(_ context.Context, channelID snowflake.ID, messageID snowflake.ID, emoji string) error {
	if err := m.client.Rest().AddReaction(channelID, messageID, emoji); err != nil {
		return mapError("add reaction", err)
	}
	return nil
}

// RemoveUserReaction removes a user's reaction from a message.
func (m *Messenger) RemoveUserReaction(
	_ context.Context, channelID snowflake.ID, messageID snowflake.ID, emoji string, userID snowflake.ID,
) error {
	if err := m.client.Rest().RemoveUserReaction(channelID, messageID, emoji, userID); err != nil {
		return mapError("remove reaction", err)
	}
	return nil
}

// ClearReactions removes every reaction from a message.
func (m *Messenger) ClearReactions(_ context.Context, channelID snowflake.ID, messageID snowflake.ID) error {
	if err := m.client.Rest().RemoveAllReactions(channelID, messageID); err != nil {
		return mapError("clear reactions", err)
	}
	return nil
}

// Discord JSON error codes the menu needs to distinguish.
const (
	codeUnknownChannel     = 10003
	codeUnknownMessage     = 10008
	codeMissingAccess      = 50001
	codeMissingPermissions = 50013
)

// mapError translates REST failures into the menu error taxonomy so the
// display loop can branch on permission and existence problems.
func mapError(op string, err error) error {
	var restErr rest.Error
	if errors.As(err, &restErr) {
		switch int(restErr.Code) {
		case codeMissingPermissions, codeMissingAccess:
			return fmt.Errorf("%s: %w", op, menu.ErrForbidden)
		case codeUnknownMessage, codeUnknownChannel:
			return fmt.Errorf("%s: %w", op, menu.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
