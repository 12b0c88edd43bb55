package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// DefaultTimeout is the inactivity window applied when Options.Timeout is
// unset.
const DefaultTimeout = 60 * time.Second

// navButtons lists the navigation glyphs in the order they are attached.
var navButtons = []string{
	constants.ButtonFirstPage,
	constants.ButtonPreviousPage,
	constants.ButtonNextPage,
	constants.ButtonLastPage,
}

func isButton(emoji string) bool {
	if emoji == constants.ButtonStop {
		return true
	}
	for _, b := range navButtons {
		if b == emoji {
			return true
		}
	}
	return false
}

// Options configures a menu. The zero value gives the default behavior:
// page formatting filled from Page without overwriting, buttons and page
// counter shown, reactions cleared on stop, message kept.
type Options struct {
	// Page supplies formatting applied to every page the menu adopts.
	// By default each field fills only where the page left it unset;
	// OverwriteOptions forces the menu's values over the page's own.
	Page             PageOptions
	OverwriteOptions bool

	// AllEmbedded renders every page as an embed.
	AllEmbedded bool

	// Input resolves the display loop with the first channel message from an
	// authorized interactor that satisfies it. Nil disables the source.
	Input stream.MessageFilter

	// ReactionInput resolves the display loop with the first non-button
	// reaction on the menu message from an authorized interactor that
	// satisfies it. Nil disables the source.
	ReactionInput stream.ReactionFilter

	// Selectors are reaction glyphs attached before the buttons; a selector
	// reaction from an authorized interactor resolves the display loop. A
	// selector matching a button glyph is dropped with a warning, the button
	// keeps the glyph.
	Selectors []string

	// Timeout is the inactivity window per waiting iteration. Zero or
	// negative means DefaultTimeout.
	Timeout time.Duration

	HidePageNumber     bool
	HideButtons        bool
	HideGeneralButtons bool

	// KeepReactionsAfter leaves the reactions in place when the menu stops.
	// RemoveMessageAfter deletes the whole message instead; it takes
	// precedence and ends the menu's message ownership.
	KeepReactionsAfter bool
	RemoveMessageAfter bool
}

// Config carries the dependencies and initial state of a menu.
type Config struct {
	Messenger Messenger
	Events    *stream.Stream
	Logger    *zap.Logger
	ChannelID snowflake.ID

	// Interactors are the users allowed to operate the menu. Empty means any
	// non-bot user.
	Interactors []snowflake.ID

	Pages   []*Page
	Options Options
}

// Input is the event that resolved a display loop. Exactly one field is set.
type Input struct {
	Message  *stream.Message
	Reaction *stream.Reaction
}

// Menu renders pages into a channel and runs the interactive display loop.
// A menu owns at most one outstanding message at a time.
type Menu struct {
	messenger Messenger
	events    *stream.Stream
	logger    *zap.Logger

	channelID   snowflake.ID
	interactors []snowflake.ID
	opts        Options
	selectors   []string

	mu        sync.Mutex
	pages     []*Page
	current   int // 1-based
	messageID snowflake.ID
	running   bool
}

// New builds a menu and adopts its initial pages, reconciling them against
// the menu's page options.
func New(cfg Config) (*Menu, error) {
	switch {
	case cfg.Messenger == nil:
		return nil, errors.New("menu requires a messenger")
	case cfg.Events == nil:
		return nil, errors.New("menu requires an event stream")
	case cfg.ChannelID == 0:
		return nil, errors.New("menu requires a channel")
	case len(cfg.Pages) == 0:
		return nil, ErrEmptyPage
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Menu{
		messenger:   cfg.Messenger,
		events:      cfg.Events,
		logger:      logger.Named("menu"),
		channelID:   cfg.ChannelID,
		interactors: cfg.Interactors,
		opts:        cfg.Options,
		current:     1,
	}

	// Buttons are registered before caller selectors, so a colliding glyph
	// stays a button.
	for _, selector := range cfg.Options.Selectors {
		if isButton(selector) {
			m.logger.Warn("selector shadows a button glyph and is ignored",
				zap.String("emoji", selector))
			continue
		}
		m.selectors = append(m.selectors, selector)
	}

	if err := m.Update(cfg.Pages...); err != nil {
		return nil, err
	}

	return m, nil
}

// Update replaces the menu's pages when given any, then reconciles every
// page against the menu's page options. Applying the same pages twice yields
// the same rendered state. The live message is not redrawn.
func (m *Menu) Update(pages ...*Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(pages) > 0 {
		m.pages = pages
	}

	for i, page := range m.pages {
		adopted, err := m.adoptPage(page)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		m.pages[i] = adopted
	}

	if m.current > len(m.pages) {
		m.current = len(m.pages)
	}

	return nil
}

// AddPage inserts a page at the 1-based position, clamping out-of-range
// positions to an append, and redraws the live message if one exists.
func (m *Menu) AddPage(ctx context.Context, page *Page, position int) error {
	m.mu.Lock()

	adopted, err := m.adoptPage(page)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	if position < 1 || position > len(m.pages) {
		m.pages = append(m.pages, adopted)
	} else {
		m.pages = append(m.pages[:position-1],
			append([]*Page{adopted}, m.pages[position-1:]...)...)
	}
	m.mu.Unlock()

	return m.redraw(ctx)
}

// adoptPage reconciles a page against the menu options and revalidates it.
// Callers hold m.mu.
func (m *Menu) adoptPage(page *Page) (*Page, error) {
	merged := mergePageOptions(m.opts.Page, page.Options(), m.opts.OverwriteOptions)
	if m.opts.AllEmbedded {
		merged.Embedded = true
	}
	return NewPage(merged)
}

// mergePageOptions applies the menu's formatting onto a page's own options.
// Without overwrite, only attributes the page left unset are filled.
func mergePageOptions(menu, page PageOptions, overwrite bool) PageOptions {
	str := func(dst *string, src string) {
		if src != "" && (overwrite || *dst == "") {
			*dst = src
		}
	}
	boolean := func(dst *bool, src bool) {
		if src && (overwrite || !*dst) {
			*dst = src
		}
	}

	out := page
	str(&out.Title, menu.Title)
	str(&out.Description, menu.Description)
	str(&out.Footer, menu.Footer)
	str(&out.Prefix, menu.Prefix)
	if len(menu.Prefixes) > 0 && (overwrite || len(out.Prefixes) == 0) {
		out.Prefixes = menu.Prefixes
	}
	boolean(&out.Enumerate, menu.Enumerate)
	boolean(&out.EnumerateWithEmoji, menu.EnumerateWithEmoji)
	if menu.Display != "" && (overwrite || out.Display == "") {
		out.Display = menu.Display
	}
	boolean(&out.Embedded, menu.Embedded)
	boolean(&out.UsingFields, menu.UsingFields)
	boolean(&out.Inline, menu.Inline)
	if menu.Color != 0 && (overwrite || out.Color == 0) {
		out.Color = menu.Color
	}
	str(&out.Image, menu.Image)
	str(&out.Thumbnail, menu.Thumbnail)

	return out
}

// CurrentPage returns the page at the current position.
func (m *Menu) CurrentPage() *Page {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pages[m.current-1]
}

// CurrentPageNumber returns the 1-based current position.
func (m *Menu) CurrentPageNumber() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

// TotalPages returns the number of pages.
func (m *Menu) TotalPages() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pages)
}

// Running reports whether a display loop is active.
func (m *Menu) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

// MessageID returns the live message's ID, or zero when none exists.
func (m *Menu) MessageID() snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.messageID
}

// SetTimeout changes the inactivity window used by subsequent waiting
// iterations.
func (m *Menu) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opts.Timeout = d
}

// SetInput replaces the text input predicate for subsequent displays. Nil
// disables the source. Wizards use this to collect a different answer per
// step on the same menu.
func (m *Menu) SetInput(filter stream.MessageFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opts.Input = filter
}

// SetReactionInput replaces the reaction input predicate for subsequent
// displays. Nil disables the source.
func (m *Menu) SetReactionInput(filter stream.ReactionFilter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opts.ReactionInput = filter
}

// SetGeneralButtonsHidden toggles the stop button for subsequent displays.
// Reaction-input wizard steps hide it so the message only carries the
// caller's glyphs.
func (m *Menu) SetGeneralButtonsHidden(hidden bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opts.HideGeneralButtons = hidden
}

// SetSelectors replaces the selector glyphs for subsequent displays, with
// the same button collision rule as construction.
func (m *Menu) SetSelectors(selectors []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selectors = m.selectors[:0]
	for _, selector := range selectors {
		if isButton(selector) {
			m.logger.Warn("selector shadows a button glyph and is ignored",
				zap.String("emoji", selector))
			continue
		}
		m.selectors = append(m.selectors, selector)
	}
}

// FirstPage moves to page 1 and redraws the live message.
func (m *Menu) FirstPage(ctx context.Context) error {
	m.mu.Lock()
	m.current = 1
	m.mu.Unlock()

	return m.redraw(ctx)
}

// LastPage moves to the last page and redraws the live message.
func (m *Menu) LastPage(ctx context.Context) error {
	m.mu.Lock()
	m.current = len(m.pages)
	m.mu.Unlock()

	return m.redraw(ctx)
}

// NextPage advances one page, wrapping from the last page to the first, and
// redraws the live message.
func (m *Menu) NextPage(ctx context.Context) error {
	m.mu.Lock()
	m.current = m.current%len(m.pages) + 1
	m.mu.Unlock()

	return m.redraw(ctx)
}

// PreviousPage goes back one page, wrapping from the first page to the last,
// and redraws the live message.
func (m *Menu) PreviousPage(ctx context.Context) error {
	m.mu.Lock()
	m.current = (m.current+len(m.pages)-2)%len(m.pages) + 1
	m.mu.Unlock()

	return m.redraw(ctx)
}

// SetPage jumps to the 1-based page n and redraws the live message. Returns
// ErrPageBounds when n is outside the page list.
func (m *Menu) SetPage(ctx context.Context, n int) error {
	m.mu.Lock()
	if n < 1 || n > len(m.pages) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrPageBounds, n, len(m.pages))
	}
	m.current = n
	m.mu.Unlock()

	return m.redraw(ctx)
}

// redraw edits the live message with the current page. A menu without a
// message only updates its position.
func (m *Menu) redraw(ctx context.Context) error {
	m.mu.Lock()
	messageID := m.messageID
	content, embed := m.renderCurrentLocked()
	m.mu.Unlock()

	if messageID == 0 {
		return nil
	}

	err := m.messenger.EditMessage(ctx, m.channelID, messageID, content, embed)
	if errors.Is(err, ErrNotFound) {
		// The message was deleted underneath the menu.
		m.mu.Lock()
		m.messageID = 0
		m.mu.Unlock()
	}
	return err
}

// renderCurrentLocked renders the current page with the composed footer.
// Callers hold m.mu.
func (m *Menu) renderCurrentLocked() (string, *discord.Embed) {
	page := m.pages[m.current-1]

	footer := page.Footer()
	if len(m.pages) > 1 && !m.opts.HidePageNumber {
		if footer != "" {
			footer += " | "
		}
		footer += fmt.Sprintf("page %d/%d", m.current, len(m.pages))
	}

	if page.Embedded() {
		embed := page.RenderEmbed(footer)
		return "", &embed
	}
	return page.Render(footer), nil
}

// Display renders the current page and blocks until an input source resolves
// or the inactivity window elapses. createNew posts a fresh message;
// otherwise the existing message is reused, which requires one to exist.
// resetPosition starts from page 1.
//
// A nil Input with a nil error means the menu stopped without caller-visible
// input (timeout or stop button); callers must abort their flow in that
// case. Navigation button presses are handled internally and never returned.
func (m *Menu) Display(ctx context.Context, createNew, resetPosition bool) (*Input, *Page, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, nil, ErrAlreadyRunning
	}
	if !createNew && m.messageID == 0 {
		m.mu.Unlock()
		return nil, nil, ErrNoMessage
	}
	if resetPosition {
		m.current = 1
	}
	m.running = true
	messageID := m.messageID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	// A continuation clears stale reactions first. Losing permission to do
	// so makes the message unusable, so it is replaced.
	if !createNew {
		switch err := m.messenger.ClearReactions(ctx, m.channelID, messageID); {
		case errors.Is(err, ErrForbidden):
			if err := m.messenger.DeleteMessage(ctx, m.channelID, messageID); err != nil &&
				!errors.Is(err, ErrNotFound) {
				return nil, nil, fmt.Errorf("replace menu message: %w", err)
			}
			createNew = true
		case errors.Is(err, ErrNotFound):
			createNew = true
		case err != nil:
			return nil, nil, fmt.Errorf("clear menu reactions: %w", err)
		}
	}

	m.mu.Lock()
	content, embed := m.renderCurrentLocked()
	totalPages := len(m.pages)
	m.mu.Unlock()

	if createNew {
		id, err := m.messenger.SendMessage(ctx, m.channelID, content, embed)
		if err != nil {
			return nil, nil, fmt.Errorf("send menu message: %w", err)
		}
		m.mu.Lock()
		m.messageID = id
		messageID = id
		m.mu.Unlock()
	} else if err := m.messenger.EditMessage(ctx, m.channelID, messageID, content, embed); err != nil {
		return nil, nil, fmt.Errorf("edit menu message: %w", err)
	}

	if err := m.attachReactions(ctx, messageID, totalPages); err != nil {
		return nil, nil, err
	}

	for m.Running() {
		input, page, stopped, err := m.waitOnce(ctx)
		if err != nil {
			return nil, nil, err
		}
		if stopped {
			return nil, nil, nil
		}
		if input != nil {
			return input, page, nil
		}
	}

	return nil, nil, nil
}

// attachReactions adds selectors first, then navigation buttons when there
// is more than one page, then the stop button.
func (m *Menu) attachReactions(ctx context.Context, messageID snowflake.ID, totalPages int) error {
	emojis := make([]string, 0, len(m.selectors)+len(navButtons)+1)
	emojis = append(emojis, m.selectors...)

	if !m.opts.HideButtons {
		if totalPages > 1 {
			emojis = append(emojis, navButtons...)
		}
		if !m.opts.HideGeneralButtons {
			emojis = append(emojis, constants.ButtonStop)
		}
	}

	for _, emoji := range emojis {
		if err := m.messenger.AddReaction(ctx, m.channelID, messageID, emoji); err != nil {
			return fmt.Errorf("attach reaction %s: %w", emoji, err)
		}
	}
	return nil
}

// waitOnce runs a single waiting iteration. It returns the resolving input,
// whether the menu stopped, or neither when the event was handled internally
// and the loop should re-enter the waiting state.
func (m *Menu) waitOnce(ctx context.Context) (*Input, *Page, bool, error) {
	timer := time.NewTimer(m.timeout())

	buttonWaiter := m.events.AwaitReaction(m.buttonFilter())
	cancels := []func(){buttonWaiter.Cancel}

	var inputC <-chan stream.Message
	if m.opts.Input != nil {
		w := m.events.AwaitMessage(m.inputFilter())
		cancels = append(cancels, w.Cancel)
		inputC = w.C
	}

	var reactionC <-chan stream.Reaction
	if m.opts.ReactionInput != nil {
		w := m.events.AwaitReaction(m.reactionInputFilter())
		cancels = append(cancels, w.Cancel)
		reactionC = w.C
	}

	var selectorC <-chan stream.Reaction
	if len(m.selectors) > 0 {
		w := m.events.AwaitReaction(m.selectorFilter())
		cancels = append(cancels, w.Cancel)
		selectorC = w.C
	}

	// Without a reaction predicate, stray interactor reactions are removed
	// to keep the control surface clean.
	var sweepC <-chan stream.Reaction
	if m.opts.ReactionInput == nil {
		w := m.events.AwaitReaction(m.sweepFilter())
		cancels = append(cancels, w.Cancel)
		sweepC = w.C
	}

	// Losers are cancelled before the winner is acted on, so events arriving
	// during a redraw reach the next iteration's subscriptions instead of a
	// stale one.
	cancelAll := func() {
		timer.Stop()
		for _, cancel := range cancels {
			cancel()
		}
	}

	select {
	case reaction := <-buttonWaiter.C:
		cancelAll()
		if reaction.Emoji == constants.ButtonStop {
			if err := m.Stop(ctx); err != nil {
				return nil, nil, true, err
			}
			return nil, nil, true, nil
		}
		if err := m.pressButton(ctx, reaction.Emoji); err != nil {
			return nil, nil, false, err
		}
		return nil, nil, false, nil

	case message := <-inputC:
		cancelAll()
		return &Input{Message: &message}, m.CurrentPage(), false, nil

	case reaction := <-reactionC:
		cancelAll()
		return &Input{Reaction: &reaction}, m.CurrentPage(), false, nil

	case reaction := <-selectorC:
		cancelAll()
		return &Input{Reaction: &reaction}, m.CurrentPage(), false, nil

	case reaction := <-sweepC:
		cancelAll()
		if err := m.messenger.RemoveUserReaction(ctx, m.channelID, reaction.MessageID,
			reaction.Emoji, reaction.UserID); err != nil {
			m.logger.Debug("failed to remove stray reaction",
				zap.String("emoji", reaction.Emoji), zap.Error(err))
		}
		return nil, nil, false, nil

	case <-timer.C:
		cancelAll()
		if err := m.Stop(ctx); err != nil {
			return nil, nil, true, err
		}
		return nil, nil, true, nil

	case <-ctx.Done():
		cancelAll()
		if err := m.Stop(context.WithoutCancel(ctx)); err != nil {
			m.logger.Debug("failed to stop menu on cancellation", zap.Error(err))
		}
		return nil, nil, false, ctx.Err()
	}
}

// pressButton executes a navigation glyph's action.
func (m *Menu) pressButton(ctx context.Context, emoji string) error {
	switch emoji {
	case constants.ButtonFirstPage:
		return m.FirstPage(ctx)
	case constants.ButtonPreviousPage:
		return m.PreviousPage(ctx)
	case constants.ButtonNextPage:
		return m.NextPage(ctx)
	case constants.ButtonLastPage:
		return m.LastPage(ctx)
	}
	return nil
}

// Stop ends the current display loop and applies the cleanup policy: delete
// the message when RemoveMessageAfter is set, otherwise clear its reactions
// unless KeepReactionsAfter is set. Idempotent and safe without a live
// message.
func (m *Menu) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.running = false
	messageID := m.messageID
	if m.opts.RemoveMessageAfter {
		m.messageID = 0
	}
	m.mu.Unlock()

	if messageID == 0 {
		return nil
	}

	if m.opts.RemoveMessageAfter {
		if err := m.messenger.DeleteMessage(ctx, m.channelID, messageID); err != nil &&
			!errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete menu message: %w", err)
		}
		return nil
	}

	if !m.opts.KeepReactionsAfter {
		if err := m.messenger.ClearReactions(ctx, m.channelID, messageID); err != nil &&
			!errors.Is(err, ErrNotFound) && !errors.Is(err, ErrForbidden) {
			return fmt.Errorf("clear menu reactions: %w", err)
		}
	}
	return nil
}

func (m *Menu) timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.Timeout > 0 {
		return m.opts.Timeout
	}
	return DefaultTimeout
}

// authorized reports whether a user may operate the menu. Bot accounts never
// qualify for any input source.
func (m *Menu) authorized(userID snowflake.ID, isBot bool) bool {
	if isBot {
		return false
	}
	if len(m.interactors) == 0 {
		return true
	}
	for _, id := range m.interactors {
		if id == userID {
			return true
		}
	}
	return false
}

func (m *Menu) reactionBase(r stream.Reaction) bool {
	return r.MessageID == m.MessageID() && m.authorized(r.UserID, r.UserBot)
}

// buttonFilter matches button glyphs on the menu message, on both reaction
// add and remove so a button stays pressable without un-reacting first.
func (m *Menu) buttonFilter() stream.ReactionFilter {
	return func(r stream.Reaction) bool {
		return m.reactionBase(r) && isButton(r.Emoji)
	}
}

// selectorFilter matches configured selector glyphs on the menu message.
func (m *Menu) selectorFilter() stream.ReactionFilter {
	return func(r stream.Reaction) bool {
		if !m.reactionBase(r) {
			return false
		}
		for _, s := range m.selectors {
			if s == r.Emoji {
				return true
			}
		}
		return false
	}
}

// reactionInputFilter scopes the caller's reaction predicate to the menu
// message and authorized interactors. Button glyphs are claimed by the
// button source and never reach the predicate.
func (m *Menu) reactionInputFilter() stream.ReactionFilter {
	return func(r stream.Reaction) bool {
		return m.reactionBase(r) && !isButton(r.Emoji) && m.opts.ReactionInput(r)
	}
}

// inputFilter scopes the caller's message predicate to the menu channel and
// authorized interactors.
func (m *Menu) inputFilter() stream.MessageFilter {
	return func(msg stream.Message) bool {
		return msg.ChannelID == m.channelID &&
			m.authorized(msg.AuthorID, msg.AuthorBot) &&
			m.opts.Input(msg)
	}
}

// sweepFilter matches stray reaction additions from interactors that no
// other source recognizes.
func (m *Menu) sweepFilter() stream.ReactionFilter {
	return func(r stream.Reaction) bool {
		if r.Removed || !m.reactionBase(r) || isButton(r.Emoji) {
			return false
		}
		for _, s := range m.selectors {
			if s == r.Emoji {
				return false
			}
		}
		return true
	}
}
