package menu_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testChannelID  = snowflake.ID(100)
	testUserID     = snowflake.ID(200)
	testOutsiderID = snowflake.ID(300)
)

type sentMessage struct {
	ID      snowflake.ID
	Content string
	Embed   *discord.Embed
}

// fakeMessenger records every platform call and can be primed to fail.
type fakeMessenger struct {
	mu sync.Mutex

	nextID   snowflake.ID
	sent     []sentMessage
	edits    []sentMessage
	deleted  []snowflake.ID
	attached []string
	removed  []string
	clears   int

	clearErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 1000}
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ snowflake.ID, content string, embed *discord.Embed) (snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.sent = append(f.sent, sentMessage{ID: f.nextID, Content: content, Embed: embed})
	return f.nextID, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, _ snowflake.ID, messageID snowflake.ID, content string, embed *discord.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.edits = append(f.edits, sentMessage{ID: messageID, Content: content, Embed: embed})
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _ snowflake.ID, messageID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) AddReaction(_ context.Context, _ snowflake.ID, _ snowflake.ID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attached = append(f.attached, emoji)
	return nil
}

func (f *fakeMessenger) RemoveUserReaction(_ context.Context, _ snowflake.ID, _ snowflake.ID, emoji string, _ snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, emoji)
	return nil
}

func (f *fakeMessenger) ClearReactions(_ context.Context, _ snowflake.ID, _ snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.clearErr != nil {
		return f.clearErr
	}
	f.clears++
	return nil
}

func (f *fakeMessenger) snapshot() fakeMessenger {
	f.mu.Lock()
	defer f.mu.Unlock()

	return fakeMessenger{
		sent:     append([]sentMessage(nil), f.sent...),
		edits:    append([]sentMessage(nil), f.edits...),
		deleted:  append([]snowflake.ID(nil), f.deleted...),
		attached: append([]string(nil), f.attached...),
		removed:  append([]string(nil), f.removed...),
		clears:   f.clears,
	}
}

type displayResult struct {
	input *menu.Input
	page  *menu.Page
	err   error
}

func setupMenu(t *testing.T, pages []*menu.Page, opts menu.Options) (*menu.Menu, *fakeMessenger, *stream.Stream) {
	t.Helper()

	messenger := newFakeMessenger()
	events := stream.New(zap.NewNop())

	m, err := menu.New(menu.Config{
		Messenger:   messenger,
		Events:      events,
		Logger:      zap.NewNop(),
		ChannelID:   testChannelID,
		Interactors: []snowflake.ID{testUserID},
		Pages:       pages,
		Options:     opts,
	})
	require.NoError(t, err)

	return m, messenger, events
}

func startDisplay(m *menu.Menu, createNew, resetPosition bool) <-chan displayResult {
	results := make(chan displayResult, 1)
	go func() {
		input, page, err := m.Display(context.Background(), createNew, resetPosition)
		results <- displayResult{input: input, page: page, err: err}
	}()
	return results
}

// awaitWaiters blocks until the display loop has registered at least n event
// subscriptions, so a published event cannot slip in between registrations.
func awaitWaiters(t *testing.T, events *stream.Stream, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return events.Waiters() >= n
	}, time.Second, time.Millisecond)
}

func awaitResult(t *testing.T, results <-chan displayResult) displayResult {
	t.Helper()

	select {
	case res := <-results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("display loop did not return")
		return displayResult{}
	}
}

func reactionFrom(m *menu.Menu, userID snowflake.ID, emoji string) stream.Reaction {
	return stream.Reaction{
		MessageID: m.MessageID(),
		ChannelID: testChannelID,
		UserID:    userID,
		Emoji:     emoji,
	}
}

func TestMenuCircularNavigation(t *testing.T) {
	t.Parallel()

	m, _, _ := setupMenu(t, []*menu.Page{menu.Text("1"), menu.Text("2"), menu.Text("3")}, menu.Options{})
	ctx := context.Background()

	require.NoError(t, m.LastPage(ctx))
	require.Equal(t, 3, m.CurrentPageNumber())

	require.NoError(t, m.NextPage(ctx))
	assert.Equal(t, 1, m.CurrentPageNumber(), "next from the last page wraps to the first")

	require.NoError(t, m.PreviousPage(ctx))
	assert.Equal(t, 3, m.CurrentPageNumber(), "previous from the first page wraps to the last")

	require.NoError(t, m.SetPage(ctx, 2))
	assert.Equal(t, 2, m.CurrentPageNumber())

	err := m.SetPage(ctx, 4)
	assert.ErrorIs(t, err, menu.ErrPageBounds)
}

func TestMenuUpdateIdempotent(t *testing.T) {
	t.Parallel()

	m, _, _ := setupMenu(t, []*menu.Page{menu.List("a", "b")}, menu.Options{
		Page: menu.PageOptions{Title: "Inventory", Enumerate: true},
	})

	first := m.CurrentPage().Render("")
	require.NoError(t, m.Update())
	second := m.CurrentPage().Render("")

	assert.Equal(t, first, second)
	assert.Equal(t, "**Inventory**\n\n1 a\n2 b", second)
}

func TestMenuOptionsFillVersusOverwrite(t *testing.T) {
	t.Parallel()

	page, err := menu.NewPage(menu.PageOptions{Text: "body", Title: "Own title"})
	require.NoError(t, err)

	m, _, _ := setupMenu(t, []*menu.Page{page}, menu.Options{
		Page: menu.PageOptions{Title: "Menu title", Description: "shared"},
	})
	opts := m.CurrentPage().Options()
	assert.Equal(t, "Own title", opts.Title, "fill keeps attributes the page set itself")
	assert.Equal(t, "shared", opts.Description, "fill supplies attributes the page left unset")

	page, err = menu.NewPage(menu.PageOptions{Text: "body", Title: "Own title"})
	require.NoError(t, err)

	m, _, _ = setupMenu(t, []*menu.Page{page}, menu.Options{
		Page:             menu.PageOptions{Title: "Menu title"},
		OverwriteOptions: true,
	})
	assert.Equal(t, "Menu title", m.CurrentPage().Options().Title)
}

func TestMenuDisplayResolvesTextInput(t *testing.T) {
	t.Parallel()

	m, messenger, events := setupMenu(t, []*menu.Page{menu.Text("enter a value")}, menu.Options{
		Input:   func(msg stream.Message) bool { return msg.Content == "go" },
		Timeout: time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 3)

	events.PublishMessage(stream.Message{
		ChannelID: testChannelID,
		AuthorID:  testUserID,
		Content:   "go",
	})

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	require.NotNil(t, res.input)
	require.NotNil(t, res.input.Message)
	assert.Equal(t, "go", res.input.Message.Content)
	assert.Equal(t, "enter a value", res.page.Options().Text)

	snap := messenger.snapshot()
	require.Len(t, snap.sent, 1)
	assert.Equal(t, "enter a value", snap.sent[0].Content)
}

func TestMenuDisplayTimesOut(t *testing.T) {
	t.Parallel()

	m, messenger, _ := setupMenu(t, []*menu.Page{menu.Text("anyone there?")}, menu.Options{
		Input:   func(msg stream.Message) bool { return true },
		Timeout: 50 * time.Millisecond,
	})

	res := awaitResult(t, startDisplay(m, true, true))
	require.NoError(t, res.err)
	assert.Nil(t, res.input)
	assert.False(t, m.Running())

	// Default cleanup policy clears the reactions and keeps the message.
	snap := messenger.snapshot()
	assert.Equal(t, 1, snap.clears)
	assert.Empty(t, snap.deleted)
}

func TestMenuStopButtonNeverSatisfiesPredicates(t *testing.T) {
	t.Parallel()

	m, messenger, events := setupMenu(t, []*menu.Page{menu.Text("p1"), menu.Text("p2")}, menu.Options{
		ReactionInput: func(stream.Reaction) bool { return true },
		Timeout:       time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 2)

	events.PublishReaction(reactionFrom(m, testUserID, constants.ButtonStop))

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	assert.Nil(t, res.input, "a stop press is never surfaced through a predicate")
	assert.False(t, m.Running())

	snap := messenger.snapshot()
	assert.Contains(t, snap.attached, constants.ButtonNextPage)
	assert.Contains(t, snap.attached, constants.ButtonStop)
}

func TestMenuNavigationButtonsRedraw(t *testing.T) {
	t.Parallel()

	m, messenger, events := setupMenu(t, []*menu.Page{menu.Text("p1"), menu.Text("p2")}, menu.Options{
		Timeout: time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 2)

	events.PublishReaction(reactionFrom(m, testUserID, constants.ButtonNextPage))

	require.Eventually(t, func() bool {
		return len(messenger.snapshot().edits) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, 2, m.CurrentPageNumber())

	snap := messenger.snapshot()
	assert.Contains(t, snap.edits[0].Content, "p2")
	assert.Contains(t, snap.edits[0].Content, "page 2/2")

	awaitWaiters(t, events, 2)
	events.PublishReaction(reactionFrom(m, testUserID, constants.ButtonStop))

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	assert.Nil(t, res.input, "navigation presses are handled internally")
}

func TestMenuBotAndOutsiderEventsIgnored(t *testing.T) {
	t.Parallel()

	m, _, events := setupMenu(t, []*menu.Page{menu.Text("step")}, menu.Options{
		Input:   func(msg stream.Message) bool { return msg.Content == "yes" },
		Timeout: time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 3)

	// Matching content from a bot account and from an unauthorized user must
	// not resolve the loop.
	events.PublishMessage(stream.Message{
		ChannelID: testChannelID, AuthorID: testUserID, AuthorBot: true, Content: "yes",
	})
	events.PublishMessage(stream.Message{
		ChannelID: testChannelID, AuthorID: testOutsiderID, Content: "yes",
	})
	events.PublishMessage(stream.Message{
		ChannelID: testChannelID, AuthorID: testUserID, Content: "yes",
	})

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	require.NotNil(t, res.input)
	assert.Equal(t, testUserID, res.input.Message.AuthorID)
}

func TestMenuSelectorsResolve(t *testing.T) {
	t.Parallel()

	m, messenger, events := setupMenu(t, []*menu.Page{menu.List("red", "blue")}, menu.Options{
		Selectors: []string{"1️⃣", "2️⃣"},
		Timeout:   time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 3)

	events.PublishReaction(reactionFrom(m, testUserID, "2️⃣"))

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	require.NotNil(t, res.input)
	require.NotNil(t, res.input.Reaction)
	assert.Equal(t, "2️⃣", res.input.Reaction.Emoji)

	// Selectors are attached before the buttons.
	snap := messenger.snapshot()
	require.GreaterOrEqual(t, len(snap.attached), 2)
	assert.Equal(t, []string{"1️⃣", "2️⃣"}, snap.attached[:2])
}

func TestMenuSelectorCollidingWithButtonIsDropped(t *testing.T) {
	t.Parallel()

	m, _, events := setupMenu(t, []*menu.Page{menu.Text("pick")}, menu.Options{
		Selectors: []string{constants.ButtonStop, "✅"},
		Timeout:   time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 3)

	// The stop glyph stays a button, so pressing it stops instead of
	// selecting.
	events.PublishReaction(reactionFrom(m, testUserID, constants.ButtonStop))

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	assert.Nil(t, res.input)
}

func TestMenuSweepsUnrecognizedReactions(t *testing.T) {
	t.Parallel()

	m, messenger, events := setupMenu(t, []*menu.Page{menu.Text("wait")}, menu.Options{
		Timeout: 200 * time.Millisecond,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 2)

	events.PublishReaction(reactionFrom(m, testUserID, "🦆"))

	require.Eventually(t, func() bool {
		snap := messenger.snapshot()
		return len(snap.removed) == 1 && snap.removed[0] == "🦆"
	}, time.Second, time.Millisecond)

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	assert.Nil(t, res.input)
}

func TestMenuContinuationReusesMessage(t *testing.T) {
	t.Parallel()

	m, messenger, events := setupMenu(t, []*menu.Page{menu.Text("step one")}, menu.Options{
		Input:   func(msg stream.Message) bool { return true },
		Timeout: 50 * time.Millisecond,
	})

	res := awaitResult(t, startDisplay(m, true, true))
	require.NoError(t, res.err)
	require.Nil(t, res.input)

	firstID := m.MessageID()
	require.NotZero(t, firstID)

	m.SetTimeout(time.Second)
	results := startDisplay(m, false, true)
	awaitWaiters(t, events, 3)

	events.PublishMessage(stream.Message{
		ChannelID: testChannelID, AuthorID: testUserID, Content: "next",
	})

	res = awaitResult(t, results)
	require.NoError(t, res.err)
	require.NotNil(t, res.input)

	snap := messenger.snapshot()
	assert.Len(t, snap.sent, 1, "a continuation edits instead of sending again")
	assert.Equal(t, firstID, m.MessageID())
	require.NotEmpty(t, snap.edits)
	assert.Equal(t, firstID, snap.edits[0].ID)
}

func TestMenuContinuationWithoutMessageFails(t *testing.T) {
	t.Parallel()

	m, _, _ := setupMenu(t, []*menu.Page{menu.Text("hello")}, menu.Options{})

	_, _, err := m.Display(context.Background(), false, true)
	assert.ErrorIs(t, err, menu.ErrNoMessage)
}

func TestMenuContinuationRecreatesOnForbidden(t *testing.T) {
	t.Parallel()

	m, messenger, _ := setupMenu(t, []*menu.Page{menu.Text("fragile")}, menu.Options{
		Input:   func(msg stream.Message) bool { return true },
		Timeout: 50 * time.Millisecond,
	})

	res := awaitResult(t, startDisplay(m, true, true))
	require.NoError(t, res.err)
	firstID := m.MessageID()

	// Losing permission to clear reactions makes the old message unusable.
	messenger.mu.Lock()
	messenger.clearErr = menu.ErrForbidden
	messenger.mu.Unlock()

	res = awaitResult(t, startDisplay(m, false, true))
	require.NoError(t, res.err)

	snap := messenger.snapshot()
	assert.Contains(t, snap.deleted, firstID)
	require.Len(t, snap.sent, 2)
	assert.NotEqual(t, firstID, m.MessageID())
}

func TestMenuRemoveMessageAfterStop(t *testing.T) {
	t.Parallel()

	m, messenger, events := setupMenu(t, []*menu.Page{menu.Text("p1"), menu.Text("p2")}, menu.Options{
		RemoveMessageAfter: true,
		Timeout:            time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 2)

	snap := messenger.snapshot()
	require.Len(t, snap.sent, 1)
	assert.Contains(t, snap.sent[0].Content, "p1")
	assert.Contains(t, snap.sent[0].Content, "page 1/2")

	messageID := m.MessageID()
	events.PublishReaction(reactionFrom(m, testUserID, constants.ButtonStop))

	res := awaitResult(t, results)
	require.NoError(t, res.err)
	assert.Nil(t, res.input)
	assert.False(t, m.Running())

	snap = messenger.snapshot()
	assert.Contains(t, snap.deleted, messageID)
	assert.Zero(t, m.MessageID(), "a deleted menu message cannot be continued")

	_, _, err := m.Display(context.Background(), false, true)
	assert.ErrorIs(t, err, menu.ErrNoMessage)
}

func TestMenuDisplayLeavesNoWaiters(t *testing.T) {
	t.Parallel()

	m, _, events := setupMenu(t, []*menu.Page{menu.Text("quick")}, menu.Options{
		Input:   func(msg stream.Message) bool { return true },
		Timeout: 50 * time.Millisecond,
	})

	res := awaitResult(t, startDisplay(m, true, true))
	require.NoError(t, res.err)
	assert.Zero(t, events.Waiters(), "losing subscriptions are cancelled")
}

func TestMenuRejectsConcurrentDisplay(t *testing.T) {
	t.Parallel()

	m, _, events := setupMenu(t, []*menu.Page{menu.Text("busy")}, menu.Options{
		Timeout: time.Second,
	})

	results := startDisplay(m, true, true)
	awaitWaiters(t, events, 2)

	_, _, err := m.Display(context.Background(), true, true)
	assert.ErrorIs(t, err, menu.ErrAlreadyRunning)

	events.PublishReaction(reactionFrom(m, testUserID, constants.ButtonStop))
	awaitResult(t, results)
}

func TestMenuDisplayCancelledByContext(t *testing.T) {
	t.Parallel()

	m, _, events := setupMenu(t, []*menu.Page{menu.Text("ctx")}, menu.Options{
		Timeout: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan displayResult, 1)
	go func() {
		input, page, err := m.Display(ctx, true, true)
		results <- displayResult{input: input, page: page, err: err}
	}()
	awaitWaiters(t, events, 2)

	cancel()

	res := awaitResult(t, results)
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.False(t, m.Running())
}
