package moderation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bulkLogDir holds the plain-text transcripts of purged messages.
const bulkLogDir = "bulk_delete_logs"

// OnMessage deletes messages containing banned words and warns their author.
func (h *Handler) OnMessage(ctx context.Context, msg stream.Message) {
	if msg.AuthorBot || msg.GuildID == 0 {
		return
	}
	// The ban command itself must be allowed to name the word.
	if strings.Contains(msg.Content, "ban_word ") {
		return
	}

	server, err := h.env.Server(ctx, msg.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	words, _ := server["banned_words"].([]any)
	condensed := strings.ToLower(strings.ReplaceAll(msg.Content, " ", ""))
	for _, value := range words {
		word := database.ToString(value)
		if word == "" || !strings.Contains(condensed, word) {
			continue
		}

		reason := fmt.Sprintf("Use of banned word(s): ||%s||", word)
		if err := h.warn(ctx, msg.GuildID, msg.AuthorID, reason); err != nil {
			h.logger.Error("Failed to warn member", zap.Error(err))
		}
		if err := h.env.Client.Rest().DeleteMessage(msg.ChannelID, msg.MessageID); err != nil {
			h.logger.Debug("Failed to delete filtered message", zap.Error(err))
		}
		return
	}
}

// OnMessageDelete logs single message deletions to the guild's log channel.
func (h *Handler) OnMessageDelete(event *events.MessageDelete) {
	if event.GuildID == nil {
		return
	}
	ctx := context.Background()

	// Uncached deletions only carry IDs.
	if event.Message.ID == 0 {
		h.sendLog(ctx, *event.GuildID, discord.NewEmbedBuilder().
			SetTitle("A message was deleted!").
			SetDescriptionf("Message with id %d in channel %s.",
				event.MessageID, utils.ChannelMention(event.ChannelID)).
			SetColor(constants.ColorRed).
			Build())
		return
	}

	message := event.Message
	if message.Author.Bot || strings.HasPrefix(message.Content, "Deleted ") {
		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitlef("Message by %s:%d was deleted!", message.Author.Username, message.Author.ID).
		SetDescriptionf("Message %d from channel: %s", message.ID, utils.ChannelMention(event.ChannelID)).
		SetColor(constants.ColorDarkRed)

	if message.Content != "" {
		embed.AddField("**Content: **", message.Content, false)
	}
	if len(message.Attachments) > 0 {
		embed.AddField("**Attachment: **",
			fmt.Sprintf("[View](%s)", message.Attachments[0].URL), false)
	}

	h.sendLog(ctx, *event.GuildID, embed.Build())
}

// OnMessageUpdate logs message edits with their before and after content.
func (h *Handler) OnMessageUpdate(event *events.MessageUpdate) {
	if event.GuildID == nil || event.Message.Author.Bot {
		return
	}
	ctx := context.Background()

	before := event.OldMessage
	after := event.Message
	if before.ID == 0 {
		h.sendLog(ctx, *event.GuildID, discord.NewEmbedBuilder().
			SetTitle("A message was edited!").
			SetDescriptionf("Message %d in channel %s.", after.ID, utils.ChannelMention(event.ChannelID)).
			SetColor(constants.ColorOrange).
			AddField("Content", orPlaceholder(after.Content), false).
			Build())
		return
	}
	if before.Content == after.Content {
		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitlef("Message by %s:%d was edited!", before.Author.Username, before.Author.ID).
		SetDescriptionf("Message %d in channel: %s", before.ID, utils.ChannelMention(event.ChannelID)).
		SetColor(constants.ColorOrange)

	if len(before.Attachments) > 0 {
		embed.AddField("**Involved attachment: **",
			fmt.Sprintf("[view](%s)", before.Attachments[0].URL), false)
	} else if len(after.Attachments) > 0 {
		embed.AddField("**Involved attachment: **",
			fmt.Sprintf("[view](%s)", after.Attachments[0].URL), false)
	}

	embed.AddField("**Before: **", orPlaceholder(before.Content), false)
	embed.AddField("**After: **", orPlaceholder(after.Content), false)

	h.sendLog(ctx, *event.GuildID, embed.Build())
}

// OnGuildMemberLeave checks the audit log to tell kicks and bans apart from
// voluntary leaves, and logs them.
func (h *Handler) OnGuildMemberLeave(event *events.GuildMemberLeave) {
	ctx := context.Background()

	auditLog, err := h.env.Client.Rest().GetAuditLog(event.GuildID, 0, 0, 0, 0, 1)
	if err != nil || len(auditLog.AuditLogEntries) == 0 {
		return
	}

	entry := auditLog.AuditLogEntries[0]
	// Stale entries mean the member left on their own.
	if time.Since(entry.ID.Time()) > 2500*time.Millisecond {
		return
	}

	var action string
	switch entry.ActionType {
	case discord.AuditLogEventMemberKick:
		action = "kicked"
	case discord.AuditLogEventMemberBanAdd:
		action = "banned"
	default:
		return
	}

	reason := "No reason given."
	if entry.Reason != nil && *entry.Reason != "" {
		reason = *entry.Reason
	}

	h.sendLog(ctx, event.GuildID, discord.NewEmbedBuilder().
		SetTitlef("Member %s:%d was %s!", event.User.Username, event.User.ID, action).
		SetDescriptionf("Punishment performed by: %s", utils.UserMention(entry.UserID)).
		SetColor(constants.ColorPurple).
		AddField("Reason: ", reason, false).
		Build())
}

// logBulkDelete writes a purge transcript to disk and attaches it to the log
// channel notification.
func (h *Handler) logBulkDelete(ctx *command.Context, messages []discord.Message) {
	channelID := h.logChannel(ctx, ctx.GuildID)
	if channelID == 0 {
		return
	}

	var transcript bytes.Buffer
	fmt.Fprintf(&transcript, "Bulk delete by %s:%d at %s\n\n",
		ctx.Message.AuthorName, ctx.Message.AuthorID,
		time.Now().UTC().Format(constants.FmtDateTime))

	for _, message := range messages {
		content := message.Content
		if len(message.Attachments) > 0 {
			attachment := fmt.Sprintf("Attachment[%s]", message.Attachments[0].URL)
			if content == "" {
				content = attachment
			} else {
				content += " | " + attachment
			}
		}
		fmt.Fprintf(&transcript, "[%s] | By: %s:%d | In: %d | Containing: %s\n\n",
			message.ID.Time().UTC().Format(constants.FmtDateTime),
			message.Author.Username, message.Author.ID, ctx.Message.ChannelID, content)
	}

	fileName := uuid.New().String() + ".txt"
	if err := os.MkdirAll(bulkLogDir, 0o755); err == nil {
		if err := os.WriteFile(filepath.Join(bulkLogDir, fileName), transcript.Bytes(), 0o644); err != nil {
			h.logger.Debug("Failed to persist purge transcript", zap.Error(err))
		}
	}

	embed := discord.NewEmbedBuilder().
		SetTitlef("Bulk delete by %s:%d!", ctx.Message.AuthorName, ctx.Message.AuthorID).
		SetDescriptionf("Purge action performed in channel: %s", utils.ChannelMention(ctx.Message.ChannelID)).
		SetColor(constants.ColorPurple).
		AddField("Content: ", "See attached txt file!", false).
		Build()

	if _, err := h.env.Client.Rest().CreateMessage(channelID,
		discord.NewMessageCreateBuilder().
			SetEmbeds(embed).
			AddFile(fileName, "", bytes.NewReader(transcript.Bytes())).
			Build()); err != nil {
		h.logger.Debug("Failed to send purge log", zap.Error(err))
	}
}

// orPlaceholder keeps embed field values non-empty.
func orPlaceholder(content string) string {
	if content == "" {
		return "*NO CONTENT*"
	}
	return content
}
