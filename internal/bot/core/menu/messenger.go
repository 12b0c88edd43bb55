package menu

import (
	"context"
	"errors"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

var (
	// ErrEmptyPage indicates a page built with no content at all.
	ErrEmptyPage = errors.New("page has no content")

	// ErrFieldsNeedList indicates field rendering requested on a page whose
	// content is a single string rather than a list of entries.
	ErrFieldsNeedList = errors.New("field rendering requires list content")

	// ErrPageBounds indicates a page index outside the menu's page list.
	ErrPageBounds = errors.New("page index out of bounds")

	// ErrNoMessage indicates a continuation display on a menu that has no
	// live message to continue from.
	ErrNoMessage = errors.New("menu has no message to continue")

	// ErrAlreadyRunning indicates Display called on a menu whose previous
	// display loop has not returned yet.
	ErrAlreadyRunning = errors.New("menu display already running")

	// ErrForbidden indicates the platform rejected an operation for lack of
	// permissions.
	ErrForbidden = errors.New("missing permissions")

	// ErrNotFound indicates the target message or channel no longer exists.
	ErrNotFound = errors.New("message or channel not found")
)

// Messenger is the platform surface a menu drives. Implementations translate
// platform-specific failures into ErrForbidden and ErrNotFound so the display
// loop can react uniformly.
type Messenger interface {
	// SendMessage posts content and an optional embed, returning the new
	// message's ID.
	SendMessage(ctx context.Context, channelID snowflake.ID, content string, embed *discord.Embed) (snowflake.ID, error)

	// EditMessage replaces the content and embed of an existing message.
	EditMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID, content string, embed *discord.Embed) error

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID) error

	// AddReaction attaches the bot's own reaction to a message.
	AddReaction(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID, emoji string) error

	// RemoveUserReaction removes a single user's reaction from a message.
	RemoveUserReaction(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID, emoji string, userID snowflake.ID) error

	// ClearReactions removes every reaction from a message.
	ClearReactions(ctx context.Context, channelID snowflake.ID, messageID snowflake.ID) error
}
