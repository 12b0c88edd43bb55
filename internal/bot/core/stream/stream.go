// Package stream provides an in-process broker for gateway events. Components
// that need to block until "the first event matching a predicate" register a
// one-shot subscription and race its channel against others; the broker
// guarantees that cancelled subscriptions stop matching immediately, so
// repeated waits never leak listeners onto the shared event feed.
package stream

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Message is a text message observed on the gateway.
type Message struct {
	MessageID  snowflake.ID
	ChannelID  snowflake.ID
	GuildID    snowflake.ID // zero for direct messages
	AuthorID   snowflake.ID
	AuthorName string
	AuthorBot  bool
	Content    string
}

// Reaction is a reaction added to or removed from a message.
type Reaction struct {
	MessageID snowflake.ID
	ChannelID snowflake.ID
	GuildID   snowflake.ID // zero for direct messages
	UserID    snowflake.ID
	UserBot   bool
	Emoji     string
	Removed   bool
}

// MessageFilter reports whether a message resolves a waiting subscription.
type MessageFilter func(Message) bool

// ReactionFilter reports whether a reaction resolves a waiting subscription.
type ReactionFilter func(Reaction) bool

// MessageWaiter is a one-shot subscription for a matching message. C yields
// at most one event; Cancel detaches the subscription from the broker.
type MessageWaiter struct {
	C      <-chan Message
	stream *Stream
	id     uint64
}

// Cancel detaches the waiter. Safe to call multiple times and after delivery.
func (w *MessageWaiter) Cancel() {
	w.stream.dropMessageWaiter(w.id)
}

// ReactionWaiter is the reaction counterpart of MessageWaiter.
type ReactionWaiter struct {
	C      <-chan Reaction
	stream *Stream
	id     uint64
}

// Cancel detaches the waiter. Safe to call multiple times and after delivery.
func (w *ReactionWaiter) Cancel() {
	w.stream.dropReactionWaiter(w.id)
}

type messageSub struct {
	filter MessageFilter
	ch     chan Message
}

type reactionSub struct {
	filter ReactionFilter
	ch     chan Reaction
}

// Stream fans incoming gateway events out to one-shot waiters.
type Stream struct {
	mu           sync.Mutex
	nextID       uint64
	messageSubs  map[uint64]*messageSub
	reactionSubs map[uint64]*reactionSub
	logger       *zap.Logger
}

// New creates an empty event stream.
func New(logger *zap.Logger) *Stream {
	return &Stream{
		messageSubs:  make(map[uint64]*messageSub),
		reactionSubs: make(map[uint64]*reactionSub),
		logger:       logger.Named("stream"),
	}
}

// AwaitMessage registers a one-shot waiter for the first message matching
// filter. The returned waiter must be cancelled by the caller once it loses
// the race, or it keeps matching future events.
func (s *Stream) AwaitMessage(filter MessageFilter) *MessageWaiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ch := make(chan Message, 1)
	s.messageSubs[s.nextID] = &messageSub{filter: filter, ch: ch}

	return &MessageWaiter{C: ch, stream: s, id: s.nextID}
}

// AwaitReaction registers a one-shot waiter for the first reaction matching
// filter. Same cancellation contract as AwaitMessage.
func (s *Stream) AwaitReaction(filter ReactionFilter) *ReactionWaiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ch := make(chan Reaction, 1)
	s.reactionSubs[s.nextID] = &reactionSub{filter: filter, ch: ch}

	return &ReactionWaiter{C: ch, stream: s, id: s.nextID}
}

// PublishMessage delivers a message to every waiter whose filter accepts it.
// Each matching waiter is resolved and removed; delivery never blocks.
func (s *Stream) PublishMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sub := range s.messageSubs {
		if !sub.filter(m) {
			continue
		}
		sub.ch <- m
		delete(s.messageSubs, id)
	}
}

// PublishReaction delivers a reaction to every waiter whose filter accepts it.
func (s *Stream) PublishReaction(r Reaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sub := range s.reactionSubs {
		if !sub.filter(r) {
			continue
		}
		sub.ch <- r
		delete(s.reactionSubs, id)
	}
}

// Waiters returns the number of live subscriptions, used by tests to verify
// that display loops clean up after themselves.
func (s *Stream) Waiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.messageSubs) + len(s.reactionSubs)
}

func (s *Stream) dropMessageWaiter(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messageSubs, id)
}

func (s *Stream) dropReactionWaiter(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reactionSubs, id)
}
