package command

import (
	"context"
	"strings"

	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Router resolves a guild's prefix, parses incoming messages and runs the
// matching command.
type Router struct {
	env      *Env
	commands map[string]*Command
	logger   *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(env *Env) *Router {
	return &Router{
		env:      env,
		commands: make(map[string]*Command),
		logger:   env.Logger.Named("router"),
	}
}

// Register adds commands and their aliases. A duplicate name is a wiring
// bug caught at startup, so it panics.
func (r *Router) Register(cmds ...*Command) {
	for _, cmd := range cmds {
		names := append([]string{cmd.Name}, cmd.Aliases...)
		for _, name := range names {
			name = strings.ToLower(name)
			if _, exists := r.commands[name]; exists {
				panic("duplicate command name: " + name)
			}
			r.commands[name] = cmd
		}
	}
}

// Commands returns the registered commands keyed by primary name, used by
// the help command.
func (r *Router) Commands() []*Command {
	seen := make(map[*Command]bool, len(r.commands))
	var cmds []*Command
	for _, cmd := range r.commands {
		if !seen[cmd] {
			seen[cmd] = true
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

// Prefix resolves the command prefix for a guild. Direct messages and
// unconfigured guilds use the default.
func (r *Router) Prefix(ctx context.Context, guildID snowflake.ID) string {
	prefix := r.env.Config.Bot.DefaultPrefix
	if prefix == "" {
		prefix = constants.DefaultPrefix
	}
	if guildID == 0 {
		return prefix
	}

	doc, err := r.env.Store.Get(ctx, database.CollectionServers, int64(guildID))
	if err != nil {
		return prefix
	}
	if configured, ok := doc["prefix"].(string); ok && configured != "" {
		prefix = configured
	}
	return prefix
}

// Dispatch parses a message and runs the matching command, if any. Bot
// messages and non-command messages are ignored. Handler panics are
// recovered so one broken command cannot take the gateway loop down.
func (r *Router) Dispatch(ctx context.Context, msg stream.Message) {
	if msg.AuthorBot {
		return
	}

	prefix := r.Prefix(ctx, msg.GuildID)
	if !strings.HasPrefix(msg.Content, prefix) {
		return
	}

	fields := strings.Fields(msg.Content[len(prefix):])
	if len(fields) == 0 {
		return
	}

	cmd, ok := r.commands[strings.ToLower(fields[0])]
	if !ok {
		return
	}

	cmdCtx := &Context{
		Context: ctx,
		Env:     r.env,
		Message: msg,
		GuildID: msg.GuildID,
		Args:    fields[1:],
		Prefix:  prefix,
		Logger:  r.env.Logger.Named(cmd.Name),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Command panicked",
				zap.String("command", cmd.Name),
				zap.Any("panic", rec))
		}
	}()

	if cmd.GuildOnly && msg.GuildID == 0 {
		if err := cmdCtx.Reply("This command can only be used in a server."); err != nil {
			r.logger.Debug("Failed to send guild-only notice", zap.Error(err))
		}
		return
	}

	if cmd.Permission != 0 && !r.allowed(cmdCtx, cmd) {
		if err := cmdCtx.Reply("You don't have permission to use this command."); err != nil {
			r.logger.Debug("Failed to send permission notice", zap.Error(err))
		}
		return
	}

	if err := cmd.Handler(cmdCtx); err != nil {
		r.logger.Error("Command failed",
			zap.String("command", cmd.Name),
			zap.Uint64("guild", uint64(msg.GuildID)),
			zap.Uint64("user", uint64(msg.AuthorID)),
			zap.Error(err))

		if err := cmdCtx.Reply("Something went wrong running that command."); err != nil {
			r.logger.Debug("Failed to send error notice", zap.Error(err))
		}
	}
}

func (r *Router) allowed(ctx *Context, cmd *Command) bool {
	perms, err := r.env.MemberPermissions(ctx, ctx.GuildID, ctx.Message.AuthorID)
	if err != nil {
		r.logger.Warn("Failed to resolve member permissions",
			zap.Uint64("guild", uint64(ctx.GuildID)),
			zap.Uint64("user", uint64(ctx.Message.AuthorID)),
			zap.Error(err))
		return false
	}
	return perms.Has(cmd.Permission)
}
