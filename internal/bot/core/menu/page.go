// Package menu implements the interactive paged message widget used by the
// bot's handlers. A Page describes one screen of content and knows how to
// render itself as plain text or as an embed; a Menu owns an ordered list of
// pages, posts the current one to a channel and runs a display loop that
// multiplexes button reactions, selector reactions, custom reaction
// predicates and text replies into a single result.
package menu

import (
	"strconv"
	"strings"

	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/disgoorg/disgo/discord"
)

// DisplayMode selects how a page's text body is presented.
type DisplayMode string

const (
	// DisplayLine renders the body as a regular message. This is the default.
	DisplayLine DisplayMode = "line"

	// DisplayBlock wraps the body in a fenced code block. Emoji enumeration
	// is unavailable in this mode since shortcodes do not render inside code
	// blocks; plain numbering is used instead.
	DisplayBlock DisplayMode = "block"
)

// PageOptions describes a page's content and formatting. Exactly one of Text
// and Lines carries the body: a non-nil Lines renders as a list, otherwise
// Text renders as-is.
type PageOptions struct {
	Text  string
	Lines []string

	Title       string
	Description string
	Footer      string

	// Prefix is prepended to every list entry. Prefixes supplies a per-entry
	// prefix instead and takes precedence over Prefix.
	Prefix   string
	Prefixes []string

	// Enumerate numbers list entries from 1, overriding any prefix.
	// EnumerateWithEmoji does the same with numeral shortcodes and overrides
	// plain enumeration.
	Enumerate          bool
	EnumerateWithEmoji bool

	Display DisplayMode

	// Embedded renders the page as an embed instead of plain text.
	Embedded bool

	// UsingFields renders each list entry as a discrete embed field with its
	// prefix as the field name. Requires Lines and implies Embedded.
	UsingFields bool
	Inline      bool

	Color     int
	Image     string
	Thumbnail string
}

// Page is an immutable screen of content. Build one with NewPage, or with
// the Text and List helpers for bodies that take their formatting from the
// owning menu.
type Page struct {
	opts PageOptions
}

// NewPage validates opts and builds a page from them.
func NewPage(opts PageOptions) (*Page, error) {
	if opts.Text == "" && len(opts.Lines) == 0 && opts.Title == "" && opts.Description == "" {
		return nil, ErrEmptyPage
	}
	if opts.UsingFields {
		if opts.Lines == nil {
			return nil, ErrFieldsNeedList
		}
		opts.Embedded = true
	}

	return &Page{opts: opts}, nil
}

// Text builds a bare page around a single body string. Formatting is filled
// in from the menu's options when the page is adopted.
func Text(body string) *Page {
	return &Page{opts: PageOptions{Text: body}}
}

// List builds a bare page around a list body. Formatting is filled in from
// the menu's options when the page is adopted.
func List(lines ...string) *Page {
	return &Page{opts: PageOptions{Lines: lines}}
}

// Options returns a copy of the page's options.
func (p *Page) Options() PageOptions { return p.opts }

// Footer returns the page's own footer text, without any page counter.
func (p *Page) Footer() string { return p.opts.Footer }

// Embedded reports whether the page renders as an embed.
func (p *Page) Embedded() bool { return p.opts.Embedded }

// Len returns the number of list entries, or zero for a text body.
func (p *Page) Len() int { return len(p.opts.Lines) }

// Render produces the page as plain message text. The footer argument is
// appended in italics when non-empty; menus pass a footer with the page
// counter attached, direct callers usually pass p.Footer().
func (p *Page) Render(footer string) string {
	var b strings.Builder

	if p.opts.Title != "" {
		b.WriteString("**" + p.opts.Title + "**\n")
	}
	if p.opts.Description != "" {
		b.WriteString("*" + p.opts.Description + "*\n")
	}
	if p.opts.Title != "" || p.opts.Description != "" {
		b.WriteString("\n")
	}
	b.WriteString(p.body())

	content := b.String()
	if footer != "" {
		content += "\n\n*" + footer + "*"
	}
	if p.opts.Display == DisplayBlock {
		content = "```" + content + "```"
	}

	return content
}

// RenderEmbed produces the page as an embed. The footer argument replaces
// the page's own footer text, matching Render.
func (p *Page) RenderEmbed(footer string) discord.Embed {
	builder := discord.NewEmbedBuilder().SetTitle(p.opts.Title)

	if p.opts.Color != 0 {
		builder.SetColor(p.opts.Color)
	}

	description := ""
	if p.opts.Description != "" {
		description = "*" + p.opts.Description + "*"
	}

	if p.opts.UsingFields {
		prefixes := p.prefixes()
		for i, entry := range p.opts.Lines {
			builder.AddField(prefixes[i], entry, p.opts.Inline)
		}
	} else if body := p.body(); body != "" {
		if description == "" {
			description = " "
		}
		description += "\n\n" + body
	}

	if description != "" {
		builder.SetDescription(description)
	}
	if footer != "" {
		builder.SetFooterText(footer)
	}
	if p.opts.Image != "" {
		builder.SetImage(p.opts.Image)
	}
	if p.opts.Thumbnail != "" {
		builder.SetThumbnail(p.opts.Thumbnail)
	}

	return builder.Build()
}

// body renders the content without header, footer or block wrapping.
func (p *Page) body() string {
	if p.opts.Lines == nil {
		return p.opts.Text
	}

	prefixes := p.prefixes()

	var b strings.Builder
	for i, entry := range p.opts.Lines {
		b.WriteString(prefixes[i] + entry + "\n")
	}

	return strings.TrimRight(b.String(), "\n ")
}

// prefixes resolves the per-entry prefix sequence. Precedence: emoji
// enumeration, plain enumeration, per-entry prefixes, scalar prefix, none.
func (p *Page) prefixes() []string {
	prefixes := make([]string, len(p.opts.Lines))

	switch {
	case p.opts.EnumerateWithEmoji && p.opts.Display != DisplayBlock:
		for i := range prefixes {
			prefixes[i] = utils.EmojiNumber(i+1) + " "
		}
	case p.opts.Enumerate || p.opts.EnumerateWithEmoji:
		for i := range prefixes {
			prefixes[i] = strconv.Itoa(i+1) + " "
		}
	case len(p.opts.Prefixes) > 0:
		for i := range prefixes {
			if i < len(p.opts.Prefixes) {
				prefixes[i] = p.opts.Prefixes[i] + " "
			}
		}
	case p.opts.Prefix != "":
		for i := range prefixes {
			prefixes[i] = p.opts.Prefix + " "
		}
	}

	return prefixes
}
