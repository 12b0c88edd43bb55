package menu_test

import (
	"testing"

	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageValidation(t *testing.T) {
	t.Parallel()

	_, err := menu.NewPage(menu.PageOptions{})
	require.ErrorIs(t, err, menu.ErrEmptyPage)

	for _, opts := range []menu.PageOptions{
		{Text: "body"},
		{Title: "title"},
		{Description: "desc"},
		{Lines: []string{"a"}},
	} {
		_, err := menu.NewPage(opts)
		require.NoError(t, err)
	}
}

func TestNewPageFieldsRequireList(t *testing.T) {
	t.Parallel()

	_, err := menu.NewPage(menu.PageOptions{Text: "body", UsingFields: true})
	require.ErrorIs(t, err, menu.ErrFieldsNeedList)

	page, err := menu.NewPage(menu.PageOptions{Lines: []string{"a", "b"}, UsingFields: true})
	require.NoError(t, err)
	assert.True(t, page.Embedded(), "field rendering implies an embed")
}

func TestPagePrefixPrecedence(t *testing.T) {
	t.Parallel()

	lines := []string{"a", "b", "c"}

	page, err := menu.NewPage(menu.PageOptions{
		Lines:              lines,
		Prefix:             "-",
		Enumerate:          true,
		EnumerateWithEmoji: true,
	})
	require.NoError(t, err)
	assert.Equal(t, ":one: a\n:two: b\n:three: c", page.Render(""))

	page, err = menu.NewPage(menu.PageOptions{Lines: lines, Prefix: "-", Enumerate: true})
	require.NoError(t, err)
	assert.Equal(t, "1 a\n2 b\n3 c", page.Render(""))

	page, err = menu.NewPage(menu.PageOptions{Lines: lines, Prefix: "-"})
	require.NoError(t, err)
	assert.Equal(t, "- a\n- b\n- c", page.Render(""))

	page, err = menu.NewPage(menu.PageOptions{Lines: lines, Prefixes: []string{"x", "y", "z"}})
	require.NoError(t, err)
	assert.Equal(t, "x a\ny b\nz c", page.Render(""))
}

func TestPageEmojiEnumerationFallsBackInBlocks(t *testing.T) {
	t.Parallel()

	page, err := menu.NewPage(menu.PageOptions{
		Lines:              []string{"a", "b"},
		EnumerateWithEmoji: true,
		Display:            menu.DisplayBlock,
	})
	require.NoError(t, err)

	// Shortcodes do not render inside code blocks, so plain numbers are used.
	assert.Equal(t, "```1 a\n2 b```", page.Render(""))
}

func TestPageRenderHeaderAndFooter(t *testing.T) {
	t.Parallel()

	page, err := menu.NewPage(menu.PageOptions{
		Title:       "Shop",
		Description: "pick one",
		Text:        "apples",
	})
	require.NoError(t, err)

	assert.Equal(t, "**Shop**\n*pick one*\n\napples", page.Render(""))
	assert.Equal(t, "**Shop**\n*pick one*\n\napples\n\n*page 1/2*", page.Render("page 1/2"))
}

func TestPageRenderEmbed(t *testing.T) {
	t.Parallel()

	page, err := menu.NewPage(menu.PageOptions{
		Title:       "Poll",
		Description: "vote now",
		Lines:       []string{"red", "blue"},
		Enumerate:   true,
		Embedded:    true,
		Color:       0x9B59B6,
		Thumbnail:   "https://example.com/t.png",
	})
	require.NoError(t, err)

	embed := page.RenderEmbed("page 1/1")
	assert.Equal(t, "Poll", embed.Title)
	assert.Equal(t, "*vote now*\n\n1 red\n2 blue", embed.Description)
	assert.Equal(t, 0x9B59B6, embed.Color)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "page 1/1", embed.Footer.Text)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://example.com/t.png", embed.Thumbnail.URL)
}

func TestPageRenderEmbedFields(t *testing.T) {
	t.Parallel()

	page, err := menu.NewPage(menu.PageOptions{
		Title:       "Roles",
		Lines:       []string{"Gives the red role", "Gives the blue role"},
		Prefixes:    []string{"🔴", "🔵"},
		UsingFields: true,
	})
	require.NoError(t, err)

	embed := page.RenderEmbed("")
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "🔴 ", embed.Fields[0].Name)
	assert.Equal(t, "Gives the red role", embed.Fields[0].Value)
	assert.Equal(t, "🔵 ", embed.Fields[1].Name)
	assert.Equal(t, "Gives the blue role", embed.Fields[1].Value)
}

func TestPageRenderIsPure(t *testing.T) {
	t.Parallel()

	page, err := menu.NewPage(menu.PageOptions{Lines: []string{"a", "b"}, Enumerate: true})
	require.NoError(t, err)

	first := page.Render("f")
	second := page.Render("f")
	assert.Equal(t, first, second)
}
