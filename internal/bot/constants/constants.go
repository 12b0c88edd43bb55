// Package constants centralizes the emoji glyphs, document field defaults and
// time formats shared across the bot's handlers.
package constants

import "time"

const (
	// DefaultPrefix is the command prefix used before a guild configures its own.
	DefaultPrefix = "."

	// DefaultExpIncrease is the experience granted per qualifying message.
	DefaultExpIncrease = 100

	// ExpCooldown is the minimum time between experience grants per member.
	ExpCooldown = 60 * time.Second

	// MaxLevel caps the leveling curve.
	MaxLevel = 100

	// TotalBars is the width of rendered progress bars.
	TotalBars = 20

	// MaxPrefixLength bounds the configurable command prefix.
	MaxPrefixLength = 5

	// MaxPollOptions is the highest number of poll answers supported by the
	// numeral reactions.
	MaxPollOptions = 9

	// MaxManagerRoles bounds role/reaction pairs on a single role manager.
	MaxManagerRoles = 50
)

// Time formats used in user-facing messages and stored documents.
const (
	FmtDateTime   = "06-01-02 15:04:05"
	FmtDate       = "06-01-02"
	FmtDateNoYear = "01-02"
	FmtTime       = "15:04"
)

// Menu control glyphs.
const (
	ButtonFirstPage    = "⏪"             // rewind
	ButtonPreviousPage = "◀️"       // back arrow
	ButtonNextPage     = "▶️"       // forward arrow
	ButtonLastPage     = "⏩"             // fast forward
	ButtonStop         = "❌"             // cross mark
)

// Reaction glyphs used by the counting game and event attendance.
const (
	ReactionThumbsUp   = "\U0001F44D"
	ReactionThumbsDown = "\U0001F44E"

	EventAttending    = "✅" // check mark
	EventNotAttending = "❌" // cross mark
	EventUnsure       = "❓" // question mark
)

// EventChoice pairs an attendance reaction with its display label.
type EventChoice struct {
	Emoji string
	Label string
}

// EventChoices lists attendance reactions in the order they appear on an
// event message.
var EventChoices = []EventChoice{
	{EventAttending, "Attending"},
	{EventNotAttending, "Not attending"},
	{EventUnsure, "Unsure"},
}

// NumberEmotesText are Discord shortcode digits used inside rendered text.
var NumberEmotesText = []string{
	":zero:", ":one:", ":two:", ":three:", ":four:",
	":five:", ":six:", ":seven:", ":eight:", ":nine:",
}

// NumberEmotesUnicode are the keycap reactions for one through nine, used as
// menu selectors and poll voting reactions.
var NumberEmotesUnicode = []string{
	"1️⃣",
	"2️⃣",
	"3️⃣",
	"4️⃣",
	"5️⃣",
	"6️⃣",
	"7️⃣",
	"8️⃣",
	"9️⃣",
}

// DefaultChannels are the channel slots provisioned per guild.
var DefaultChannels = []string{"spawn", "eject", "log", "birthday", "counting"}

// DefaultRoles are the role slots provisioned per guild.
var DefaultRoles = []string{"muted", "birthday"}

// ManagerCategories are the server document keys holding message-backed
// managers that maintenance sweeps keep consistent.
var ManagerCategories = []string{"role_managers", "polls", "events"}

// TimezoneCategories are the region groups offered by the timezone picker.
var TimezoneCategories = []string{
	"Africa",
	"America",
	"Asia",
	"Atlantic",
	"Australia",
	"Europe",
	"Pacific",
	"US",
	"Etc/GMT",
}

// Embed accent colors.
const (
	EventColor   = 0x9B59B6
	ColorRed     = 0xED4245
	ColorDarkRed = 0x992D22
	ColorOrange  = 0xE67E22
	ColorPurple  = 0x9B59B6
	ColorGold    = 0xF1C40F
)
