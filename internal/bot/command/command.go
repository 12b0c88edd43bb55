// Package command implements the prefix command layer: the shared handler
// environment, the per-invocation context and the router that dispatches
// incoming messages.
package command

import (
	"context"
	"fmt"

	"github.com/attendantbot/attendant/internal/ai"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/attendantbot/attendant/internal/redis"
	"github.com/attendantbot/attendant/internal/setup/config"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Handler runs one command invocation.
type Handler func(ctx *Context) error

// Command describes a prefix command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	// Usage shows the arguments, without the prefix and name.
	Usage string

	// GuildOnly rejects invocations from direct messages.
	GuildOnly bool

	// Permission is required of the invoking member; zero means everyone.
	// The guild owner and administrators always qualify.
	Permission discord.Permissions

	Handler Handler
}

// Env bundles the dependencies every handler works with.
type Env struct {
	Client    bot.Client
	Messenger menu.Messenger
	Events    *stream.Stream
	Store     *database.Store
	Cooldowns *redis.CooldownTracker
	AI        *ai.Client
	Config    *config.Config
	Logger    *zap.Logger
}

// Server fetches a guild's document, materializing it from defaults on
// first access.
func (e *Env) Server(ctx context.Context, guildID snowflake.ID) (database.Document, error) {
	doc, err := e.Store.Get(ctx, database.CollectionServers, int64(guildID))
	if err == nil {
		return doc, nil
	}
	return e.PatchServer(ctx, guildID, database.Patch{})
}

// PatchServer patches a guild's document, creating it from defaults when
// missing.
func (e *Env) PatchServer(ctx context.Context, guildID snowflake.ID, patch database.Patch) (database.Document, error) {
	return e.Store.Apply(ctx, database.CollectionServers, int64(guildID),
		database.DefaultServer(int64(guildID)), patch)
}

// User fetches a user's document, materializing it from defaults on first
// access.
func (e *Env) User(ctx context.Context, userID snowflake.ID) (database.Document, error) {
	doc, err := e.Store.Get(ctx, database.CollectionUsers, int64(userID))
	if err == nil {
		return doc, nil
	}
	return e.PatchUser(ctx, userID, database.Patch{})
}

// PatchUser patches a user's document, creating it from defaults when
// missing.
func (e *Env) PatchUser(ctx context.Context, userID snowflake.ID, patch database.Patch) (database.Document, error) {
	return e.Store.Apply(ctx, database.CollectionUsers, int64(userID),
		database.DefaultUser(int64(userID)), patch)
}

// Context carries one command invocation.
type Context struct {
	context.Context
	*Env

	Message stream.Message
	// GuildID is zero for direct messages.
	GuildID snowflake.ID
	// Args are the whitespace-split arguments after the command name.
	Args []string
	// Prefix the command was invoked with.
	Prefix string

	Logger *zap.Logger
}

// Arg returns the i-th argument or an empty string.
func (c *Context) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Reply sends a plain message to the invoking channel.
func (c *Context) Reply(content string) error {
	_, err := c.Client.Rest().CreateMessage(c.Message.ChannelID,
		discord.NewMessageCreateBuilder().SetContent(content).Build())
	if err != nil {
		return fmt.Errorf("failed to reply: %w", err)
	}
	return nil
}

// Replyf formats and sends a plain message to the invoking channel.
func (c *Context) Replyf(format string, args ...any) error {
	return c.Reply(fmt.Sprintf(format, args...))
}

// ReplyEmbed sends an embed to the invoking channel.
func (c *Context) ReplyEmbed(embed discord.Embed) error {
	_, err := c.Client.Rest().CreateMessage(c.Message.ChannelID,
		discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
	if err != nil {
		return fmt.Errorf("failed to reply: %w", err)
	}
	return nil
}

// NewMenu builds a menu in the invoking channel with the invoking user as
// its only interactor.
func (c *Context) NewMenu(pages []*menu.Page, opts menu.Options) (*menu.Menu, error) {
	return menu.New(menu.Config{
		Messenger:   c.Messenger,
		Events:      c.Events,
		Logger:      c.Logger,
		ChannelID:   c.Message.ChannelID,
		Interactors: []snowflake.ID{c.Message.AuthorID},
		Pages:       pages,
		Options:     opts,
	})
}
