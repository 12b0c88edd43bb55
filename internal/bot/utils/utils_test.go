package utils_test

import (
	"testing"

	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmojiNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ":one:", utils.EmojiNumber(1))
	assert.Equal(t, ":one::zero:", utils.EmojiNumber(10))
	assert.Equal(t, ":four::two:", utils.EmojiNumber(42))
}

func TestLevelCurve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), utils.LevelToExp(0))
	assert.Equal(t, int64(1000), utils.LevelToExp(1))
	assert.Equal(t, int64(6000), utils.LevelToExp(3))

	// The level derived from an experience total must be consistent with the
	// experience required for that level.
	for _, exp := range []int64{0, 999, 1000, 5999, 6000, 123456} {
		level := utils.ExpToLevel(exp)
		assert.LessOrEqual(t, utils.LevelToExp(level), exp+1000)
	}
}

func TestParseMentions(t *testing.T) {
	t.Parallel()

	id, ok := utils.ParseChannelMention("<#123456789>")
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(123456789), id)

	id, ok = utils.ParseRoleMention("<@&42>")
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(42), id)

	id, ok = utils.ParseUserMention("<@!99>")
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(99), id)

	_, ok = utils.ParseChannelMention("not a mention")
	assert.False(t, ok)

	_, ok = utils.ParseRoleMention("<#123>")
	assert.False(t, ok)
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	d, ok := utils.ParseDuration(2, "h")
	require.True(t, ok)
	assert.Equal(t, "2h0m0s", d.String())

	d, ok = utils.ParseDuration(1, "w")
	require.True(t, ok)
	assert.Equal(t, "168h0m0s", d.String())

	_, ok = utils.ParseDuration(5, "y")
	assert.False(t, ok)

	d, ok = utils.ParseDuration(10, "inf")
	require.True(t, ok)
	assert.Zero(t, d)
}

func TestChunk(t *testing.T) {
	t.Parallel()

	chunks := utils.Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"e"}, chunks[2])

	assert.Nil(t, utils.Chunk([]string{}, 2))
	assert.Nil(t, utils.Chunk([]string{"a"}, 0))
}
