// Package utils provides small formatting and parsing helpers shared by the
// bot's handlers.
package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/disgoorg/snowflake/v2"
)

var (
	channelMentionRegex = regexp.MustCompile(`^<#([0-9]+)>$`)
	roleMentionRegex    = regexp.MustCompile(`^<@&([0-9]+)>$`)
	userMentionRegex    = regexp.MustCompile(`^<@!?([0-9]+)>$`)
)

// EmojiNumber renders a positive integer as a sequence of Discord numeral
// shortcodes, e.g. 12 -> ":one::two:".
func EmojiNumber(n int) string {
	if n < 0 {
		return strconv.Itoa(n)
	}

	var b strings.Builder
	for _, digit := range strconv.Itoa(n) {
		b.WriteString(constants.NumberEmotesText[digit-'0'])
	}
	return b.String()
}

// ProgressBar renders a fraction in [0, 1] as a fixed-width bar suitable for
// inline code formatting, followed by the percentage and absolute count.
func ProgressBar(fraction float64, total int) string {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	filled := int(math.Ceil(fraction * constants.TotalBars))
	empty := int(math.Ceil((1 - fraction) * constants.TotalBars))
	percentage := math.Round(fraction*10000) / 100

	return fmt.Sprintf("`%s%s`| %v%% (%d)",
		strings.Repeat("█", filled), strings.Repeat(" ", empty), percentage, total)
}

// LevelToExp returns the total experience required to reach the given level.
func LevelToExp(level int) int64 {
	var total int64
	for i := 0; i <= level; i++ {
		total += int64(i)
	}
	return total * 1000
}

// ExpToLevel converts a total experience count into a level on the curve
// capped at constants.MaxLevel.
func ExpToLevel(exp int64) int {
	var total int64
	for i := 0; i < constants.MaxLevel; i++ {
		total += int64(i)
		if total*1000 > exp {
			return i - 1
		}
	}
	return constants.MaxLevel
}

// ParseChannelMention extracts the channel ID from a "<#id>" mention.
func ParseChannelMention(s string) (snowflake.ID, bool) {
	return parseMention(channelMentionRegex, s)
}

// ParseRoleMention extracts the role ID from a "<@&id>" mention.
func ParseRoleMention(s string) (snowflake.ID, bool) {
	return parseMention(roleMentionRegex, s)
}

// ParseUserMention extracts the user ID from a "<@id>" or "<@!id>" mention.
func ParseUserMention(s string) (snowflake.ID, bool) {
	return parseMention(userMentionRegex, s)
}

func parseMention(re *regexp.Regexp, s string) (snowflake.ID, bool) {
	match := re.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0, false
	}

	id, err := snowflake.Parse(match[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// ChannelMention formats a channel ID as a Discord channel mention.
func ChannelMention(id snowflake.ID) string { return fmt.Sprintf("<#%d>", id) }

// RoleMention formats a role ID as a Discord role mention.
func RoleMention(id snowflake.ID) string { return fmt.Sprintf("<@&%d>", id) }

// UserMention formats a user ID as a Discord user mention.
func UserMention(id snowflake.ID) string { return fmt.Sprintf("<@%d>", id) }

// ParseDuration converts an amount and a single-letter unit (w, d, h, m, s)
// into a duration. The unit "inf" or a zero amount yields zero, which callers
// treat as unbounded.
func ParseDuration(amount int, unit string) (time.Duration, bool) {
	if unit == "inf" {
		return 0, true
	}

	unitSeconds := map[string]int64{
		"w": 604800,
		"d": 86400,
		"h": 3600,
		"m": 60,
		"s": 1,
	}

	seconds, ok := unitSeconds[unit]
	if !ok {
		return 0, false
	}
	return time.Duration(int64(amount)*seconds) * time.Second, true
}

// Chunk splits items into consecutive groups of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
