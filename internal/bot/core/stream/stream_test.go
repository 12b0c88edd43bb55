package stream_test

import (
	"testing"
	"time"

	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAwaitMessageDeliversOnce(t *testing.T) {
	t.Parallel()

	s := stream.New(zap.NewNop())
	waiter := s.AwaitMessage(func(m stream.Message) bool {
		return m.Content == "hello"
	})

	s.PublishMessage(stream.Message{Content: "ignored"})
	s.PublishMessage(stream.Message{Content: "hello", AuthorID: snowflake.ID(1)})
	s.PublishMessage(stream.Message{Content: "hello", AuthorID: snowflake.ID(2)})

	select {
	case m := <-waiter.C:
		assert.Equal(t, snowflake.ID(1), m.AuthorID)
	case <-time.After(time.Second):
		t.Fatal("expected delivery")
	}

	// The waiter detached after the first match, so the second matching
	// message was not buffered.
	select {
	case <-waiter.C:
		t.Fatal("waiter delivered twice")
	default:
	}

	assert.Zero(t, s.Waiters())
}

func TestAwaitReactionFiltering(t *testing.T) {
	t.Parallel()

	s := stream.New(zap.NewNop())
	waiter := s.AwaitReaction(func(r stream.Reaction) bool {
		return r.Emoji == "✅" && !r.Removed
	})

	s.PublishReaction(stream.Reaction{Emoji: "✅", Removed: true})
	s.PublishReaction(stream.Reaction{Emoji: "❌"})
	s.PublishReaction(stream.Reaction{Emoji: "✅", UserID: snowflake.ID(7)})

	select {
	case r := <-waiter.C:
		assert.Equal(t, snowflake.ID(7), r.UserID)
	case <-time.After(time.Second):
		t.Fatal("expected delivery")
	}
}

func TestCancelDetachesWaiter(t *testing.T) {
	t.Parallel()

	s := stream.New(zap.NewNop())
	waiter := s.AwaitMessage(func(stream.Message) bool { return true })
	require.Equal(t, 1, s.Waiters())

	waiter.Cancel()
	assert.Zero(t, s.Waiters())

	s.PublishMessage(stream.Message{Content: "late"})
	select {
	case <-waiter.C:
		t.Fatal("cancelled waiter received an event")
	default:
	}

	// Repeated cancellation is a no-op.
	waiter.Cancel()
}

func TestMultipleWaitersEachResolved(t *testing.T) {
	t.Parallel()

	s := stream.New(zap.NewNop())
	first := s.AwaitReaction(func(stream.Reaction) bool { return true })
	second := s.AwaitReaction(func(stream.Reaction) bool { return true })

	s.PublishReaction(stream.Reaction{Emoji: "▶️"})

	for _, w := range []*stream.ReactionWaiter{first, second} {
		select {
		case r := <-w.C:
			assert.Equal(t, "▶️", r.Emoji)
		case <-time.After(time.Second):
			t.Fatal("expected delivery to every matching waiter")
		}
	}

	assert.Zero(t, s.Waiters())
}
