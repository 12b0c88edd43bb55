// Package bot assembles the Discord client: gateway intents, the event
// stream feeding menus and wizards, the command router and every feature
// handler.
package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"go.uber.org/zap"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/handlers/ai"
	"github.com/attendantbot/attendant/internal/bot/handlers/birthday"
	"github.com/attendantbot/attendant/internal/bot/handlers/counting"
	eventcmds "github.com/attendantbot/attendant/internal/bot/handlers/events"
	"github.com/attendantbot/attendant/internal/bot/handlers/general"
	"github.com/attendantbot/attendant/internal/bot/handlers/guildsetup"
	"github.com/attendantbot/attendant/internal/bot/handlers/leveling"
	"github.com/attendantbot/attendant/internal/bot/handlers/maintenance"
	"github.com/attendantbot/attendant/internal/bot/handlers/marriage"
	"github.com/attendantbot/attendant/internal/bot/handlers/moderation"
	"github.com/attendantbot/attendant/internal/bot/handlers/polls"
	"github.com/attendantbot/attendant/internal/bot/handlers/rolemanager"
	"github.com/attendantbot/attendant/internal/bot/platform"
	"github.com/attendantbot/attendant/internal/setup"
)

// Bot wires the Discord client to the command router and the feature
// handlers.
type Bot struct {
	client    disgobot.Client
	env       *command.Env
	router    *command.Router
	publisher *platform.Publisher
	logger    *zap.Logger

	counting    *counting.Handler
	leveling    *leveling.Handler
	moderation  *moderation.Handler
	polls       *polls.Handler
	events      *eventcmds.Handler
	rolemanager *rolemanager.Handler
	guildsetup  *guildsetup.Handler
	maintenance *maintenance.Handler
}

// New builds the bot from the initialized application dependencies.
func New(app *setup.App) (*Bot, error) {
	logger := app.Logger.Named("bot")

	b := &Bot{logger: logger}

	client, err := disgo.New(app.Config.Discord.Token,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentDirectMessages,
				gateway.IntentDirectMessageReactions,
				gateway.IntentMessageContent,
			),
		),
		disgobot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagRoles, cache.FlagMessages),
		),
		disgobot.WithEventListeners(&events.ListenerAdapter{
			OnMessageCreate:         b.onMessageCreate,
			OnMessageReactionAdd:    b.onReactionAdd,
			OnMessageReactionRemove: b.onReactionRemove,
			OnMessageDelete:         b.onMessageDelete,
			OnMessageUpdate:         b.onMessageUpdate,
			OnGuildJoin:             b.onGuildJoin,
			OnGuildLeave:            b.onGuildLeave,
			OnGuildMemberJoin:       b.onMemberJoin,
			OnGuildMemberLeave:      b.onMemberLeave,
			OnGuildChannelDelete:    b.onChannelDelete,
			OnRoleDelete:            b.onRoleDelete,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}
	b.client = client

	eventStream := stream.New(logger)
	b.publisher = platform.NewPublisher(eventStream, client.ApplicationID())

	b.env = &command.Env{
		Client:    client,
		Messenger: platform.NewMessenger(client),
		Events:    eventStream,
		Store:     app.DB.Store(),
		Cooldowns: app.Cooldowns,
		AI:        app.AIClient,
		Config:    app.Config,
		Logger:    app.Logger,
	}
	b.router = command.NewRouter(b.env)

	b.counting = counting.New(b.env)
	b.leveling = leveling.New(b.env)
	b.moderation = moderation.New(b.env)
	b.polls = polls.New(b.env)
	b.events = eventcmds.New(b.env)
	b.rolemanager = rolemanager.New(b.env)
	b.guildsetup = guildsetup.New(b.env)

	birthdays := birthday.New(b.env)
	b.maintenance = maintenance.New(b.env, birthdays)

	b.router.Register(birthdays.Commands()...)
	b.router.Register(b.leveling.Commands()...)
	b.router.Register(marriage.New(b.env).Commands()...)
	b.router.Register(b.moderation.Commands()...)
	b.router.Register(b.polls.Commands()...)
	b.router.Register(b.events.Commands()...)
	b.router.Register(b.rolemanager.Commands()...)
	b.router.Register(b.guildsetup.Commands()...)
	b.router.Register(ai.New(b.env).Commands()...)
	b.router.Register(general.New(b.env, b.router).Commands()...)

	return b, nil
}

// Start opens the gateway connection and launches the maintenance
// scheduler. It returns once the gateway handshake completes; events are
// handled until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")
	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	go b.maintenance.Run(ctx)
	return nil
}

// Close shuts the gateway connection down.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.client.Close(context.Background())
}

func (b *Bot) onMessageCreate(event *events.MessageCreate) {
	b.publisher.OnMessageCreate(event)

	msg := platform.MessageFromEvent(event)
	ctx := context.Background()
	go b.router.Dispatch(ctx, msg)
	go b.counting.OnMessage(ctx, msg)
	go b.leveling.OnMessage(ctx, msg)
	go b.moderation.OnMessage(ctx, msg)
}

func (b *Bot) onReactionAdd(event *events.MessageReactionAdd) {
	b.publisher.OnMessageReactionAdd(event)

	reaction := platform.ReactionFromAdd(event, b.client.ApplicationID())
	ctx := context.Background()
	go b.polls.OnReaction(ctx, reaction)
	go b.events.OnReaction(ctx, reaction)
	go b.rolemanager.OnReaction(ctx, reaction)
}

func (b *Bot) onReactionRemove(event *events.MessageReactionRemove) {
	b.publisher.OnMessageReactionRemove(event)

	reaction := platform.ReactionFromRemove(event, b.client.ApplicationID())
	ctx := context.Background()
	go b.polls.OnReaction(ctx, reaction)
	go b.events.OnReaction(ctx, reaction)
	go b.rolemanager.OnReaction(ctx, reaction)
}

func (b *Bot) onMessageDelete(event *events.MessageDelete) {
	go b.moderation.OnMessageDelete(event)
	go b.maintenance.OnMessageDelete(event)
}

func (b *Bot) onMessageUpdate(event *events.MessageUpdate) {
	go b.moderation.OnMessageUpdate(event)
}

func (b *Bot) onGuildJoin(event *events.GuildJoin) {
	go b.guildsetup.OnGuildJoin(event)
}

func (b *Bot) onGuildLeave(event *events.GuildLeave) {
	go b.guildsetup.OnGuildLeave(event)
}

func (b *Bot) onMemberJoin(event *events.GuildMemberJoin) {
	go b.guildsetup.OnGuildMemberJoin(event)
}

func (b *Bot) onMemberLeave(event *events.GuildMemberLeave) {
	go b.guildsetup.OnGuildMemberLeave(event)
	go b.moderation.OnGuildMemberLeave(event)
}

func (b *Bot) onChannelDelete(event *events.GuildChannelDelete) {
	go b.maintenance.OnGuildChannelDelete(event)
}

func (b *Bot) onRoleDelete(event *events.RoleDelete) {
	go b.maintenance.OnRoleDelete(event)
}
