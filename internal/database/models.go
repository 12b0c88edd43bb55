package database

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// DefaultServer is the document a guild starts with. Channel and role slots
// hold zero until guild setup assigns them.
func DefaultServer(id int64) Document {
	return Document{
		"_id":          id,
		"prefix":       ".",
		"banned_words": []any{},
		"roles": map[string]any{
			"muted":    int64(0),
			"birthday": int64(0),
		},
		"counting": map[string]any{
			"current":      int64(1),
			"last_counter": int64(0),
		},
		"channels": map[string]any{
			"ignore":     []any{},
			"ignore_exp": []any{},
			"spawn":      int64(0),
			"eject":      int64(0),
			"log":        int64(0),
			"birthday":   int64(0),
			"counting":   int64(0),
		},
		"polls":         map[string]any{},
		"role_managers": map[string]any{},
		"events":        map[string]any{},
	}
}

// DefaultUser is the document a user starts with. Per-guild state (exp,
// birthday, marriage) lives under the servers object keyed by guild ID.
func DefaultUser(id int64) Document {
	return Document{
		"_id":     id,
		"servers": map[string]any{},
	}
}

// Decode converts a document into a typed view by round-tripping through
// JSON.
func Decode(doc Document, v any) error {
	raw, err := sonic.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// ServerCounting is the counting game state on a server document.
type ServerCounting struct {
	Current     int64 `json:"current"`
	LastCounter int64 `json:"last_counter"`
}

// ServerChannels is the channel configuration on a server document.
type ServerChannels struct {
	Ignore    []int64 `json:"ignore"`
	IgnoreExp []int64 `json:"ignore_exp"`
	Spawn     int64   `json:"spawn"`
	Eject     int64   `json:"eject"`
	Log       int64   `json:"log"`
	Birthday  int64   `json:"birthday"`
	Counting  int64   `json:"counting"`
}

// ServerDoc is the typed view of a server document.
type ServerDoc struct {
	ID          int64            `json:"_id"`
	Prefix      string           `json:"prefix"`
	BannedWords []string         `json:"banned_words"`
	Roles       map[string]int64 `json:"roles"`
	Counting    ServerCounting   `json:"counting"`
	Channels    ServerChannels   `json:"channels"`
}

// UserServerState is a user's per-guild state.
type UserServerState struct {
	Experience         int64  `json:"experience,omitempty"`
	LastExperienceGain string `json:"last_experience_gain,omitempty"`
	MarriedTo          int64  `json:"married_to,omitempty"`
	MarriageDate       string `json:"marriage_date,omitempty"`
	Warnings           int64  `json:"warnings,omitempty"`
	MutedUntil         string `json:"muted_until,omitempty"`
	JoinDate           string `json:"join_date,omitempty"`
	LeaveDate          string `json:"leave_date,omitempty"`
}

// UserDoc is the typed view of a user document. Birthday and timezone are
// global; everything guild-scoped lives under Servers keyed by guild ID.
type UserDoc struct {
	ID              int64                      `json:"_id"`
	Birthday        string                     `json:"birthday,omitempty"`
	Timezone        string                     `json:"timezone,omitempty"`
	HasBirthdayRole bool                       `json:"has_birthday_role,omitempty"`
	// LeaveDate is set once the user shares no guild with the bot anymore;
	// the document is removed after a grace period.
	LeaveDate string                     `json:"leave_date,omitempty"`
	Servers   map[string]UserServerState `json:"servers"`
}
