package platform

import (
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
)

// Publisher translates gateway events into stream events. Wire its methods
// into the client's event listener adapter.
type Publisher struct {
	events *stream.Stream
	selfID snowflake.ID
}

// NewPublisher creates a publisher feeding the given stream. selfID is the
// bot's own user ID, used to flag its reactions on events that carry no
// member payload.
func NewPublisher(events *stream.Stream, selfID snowflake.ID) *Publisher {
	return &Publisher{events: events, selfID: selfID}
}

// MessageFromEvent converts a gateway message create into a stream message.
func MessageFromEvent(event *events.MessageCreate) stream.Message {
	msg := stream.Message{
		MessageID:  event.MessageID,
		ChannelID:  event.ChannelID,
		AuthorID:   event.Message.Author.ID,
		AuthorName: event.Message.Author.Username,
		AuthorBot:  event.Message.Author.Bot,
		Content:    event.Message.Content,
	}
	if event.GuildID != nil {
		msg.GuildID = *event.GuildID
	}
	return msg
}

// OnMessageCreate publishes an incoming message.
func (p *Publisher) OnMessageCreate(event *events.MessageCreate) {
	p.events.PublishMessage(MessageFromEvent(event))
}

// ReactionFromAdd converts a gateway reaction add into a stream reaction.
// selfID is the bot's own user ID, used when the payload carries no member.
func ReactionFromAdd(event *events.MessageReactionAdd, selfID snowflake.ID) stream.Reaction {
	reaction := stream.Reaction{
		MessageID: event.MessageID,
		ChannelID: event.ChannelID,
		UserID:    event.UserID,
		Emoji:     emojiString(event.Emoji.Name, event.Emoji.ID),
		UserBot:   event.UserID == selfID,
	}
	if event.GuildID != nil {
		reaction.GuildID = *event.GuildID
	}
	if event.Member != nil {
		reaction.UserBot = event.Member.User.Bot
	}
	return reaction
}

// ReactionFromRemove converts a gateway reaction remove into a stream
// reaction. Removal payloads carry no member, so only the bot's own
// reactions can be flagged.
func ReactionFromRemove(event *events.MessageReactionRemove, selfID snowflake.ID) stream.Reaction {
	reaction := stream.Reaction{
		MessageID: event.MessageID,
		ChannelID: event.ChannelID,
		UserID:    event.UserID,
		Emoji:     emojiString(event.Emoji.Name, event.Emoji.ID),
		UserBot:   event.UserID == selfID,
		Removed:   true,
	}
	if event.GuildID != nil {
		reaction.GuildID = *event.GuildID
	}
	return reaction
}

// OnMessageReactionAdd publishes an added reaction.
func (p *Publisher) OnMessageReactionAdd(event *events.MessageReactionAdd) {
	p.events.PublishReaction(ReactionFromAdd(event, p.selfID))
}

// OnMessageReactionRemove publishes a removed reaction.
func (p *Publisher) OnMessageReactionRemove(event *events.MessageReactionRemove) {
	p.events.PublishReaction(ReactionFromRemove(event, p.selfID))
}

// emojiString renders an emoji the way reactions address it: the raw glyph
// for unicode emoji, name:id for custom ones.
func emojiString(name *string, id *snowflake.ID) string {
	n := ""
	if name != nil {
		n = *name
	}
	if id != nil {
		return n + ":" + id.String()
	}
	return n
}
