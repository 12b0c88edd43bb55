// Package events implements scheduled guild events: a six-step creation
// wizard and the attendance tracking on the event message's reactions.
package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/discord"
	"go.uber.org/zap"
)

// footerFormat renders the event's moment for the embed footer.
const footerFormat = "On Mon 02 January 2006 @ 15:04 GMT -0700"

// Handler owns the event command and the attendance listener.
type Handler struct {
	env    *command.Env
	logger *zap.Logger
}

// New creates the events handler.
func New(env *command.Env) *Handler {
	return &Handler{
		env:    env,
		logger: env.Logger.Named("events"),
	}
}

func (h *Handler) event(ctx *command.Context) error {
	titlePage, err := menu.NewPage(menu.PageOptions{
		Title:       "Enter the title for your event now!",
		Description: "Type your response in the chat below!",
		Footer:      "Step 1/6",
	})
	if err != nil {
		return err
	}

	wizard, err := ctx.NewMenu([]*menu.Page{titlePage}, menu.Options{
		AllEmbedded:        true,
		Input:              func(stream.Message) bool { return true },
		RemoveMessageAfter: true,
	})
	if err != nil {
		return err
	}

	input, _, err := wizard.Display(ctx, true, true)
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	title := input.Message.Content

	// Descriptions take longer to write than the other steps.
	wizard.SetTimeout(240 * time.Second)
	description, ok, err := h.textStep(ctx, wizard, menu.PageOptions{
		Title:       "Enter a description for your event.",
		Description: "Type your response in the chat below!",
		Footer:      "Step 2/6",
	}, func(stream.Message) bool { return true })
	if err != nil || !ok {
		return err
	}
	wizard.SetTimeout(60 * time.Second)

	timezone, err := h.pickTimezone(ctx, wizard)
	if err != nil || timezone == "" {
		return err
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	dateInput, ok, err := h.textStep(ctx, wizard, menu.PageOptions{
		Title:       "Enter what day you'd like the event to happen.",
		Description: "Type your response in the chat below!",
		Text:        "Date should be formatted as follows: YEAR/MONTH/DAY",
		Footer:      "Step 5/6",
	}, func(msg stream.Message) bool {
		_, ok := parseDate(msg.Content)
		return ok
	})
	if err != nil || !ok {
		return err
	}
	eventDate, _ := parseDate(dateInput)

	timeInput, ok, err := h.textStep(ctx, wizard, menu.PageOptions{
		Title:       "Enter what time you'd like the event to happen.",
		Description: "Type your response in the chat below!",
		Text:        "Time should be formatted as follows: HOUR:MINUTE",
		Footer:      "Step 6/6",
	}, func(msg stream.Message) bool {
		_, _, ok := parseClock(msg.Content)
		return ok
	})
	if err != nil || !ok {
		return err
	}
	hour, minute, _ := parseClock(timeInput)

	if err := wizard.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop event wizard")
	}

	moment := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(),
		hour, minute, 0, 0, location)

	embed := discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(description).
		SetColor(constants.EventColor).
		SetFooter(moment.Format(footerFormat), "")
	for _, choice := range constants.EventChoices {
		embed.AddField(fmt.Sprintf("%s %s", choice.Emoji, choice.Label),
			utils.ProgressBar(0, 0), true)
	}

	eventMessage, err := h.env.Client.Rest().CreateMessage(ctx.Message.ChannelID,
		discord.NewMessageCreateBuilder().SetEmbeds(embed.Build()).Build())
	if err != nil {
		return err
	}
	for _, choice := range constants.EventChoices {
		if err := h.env.Messenger.AddReaction(ctx, ctx.Message.ChannelID,
			eventMessage.ID, choice.Emoji); err != nil {
			h.logger.Debug("Failed to add attendance reaction", zap.Error(err))
		}
	}

	_, err = h.env.PatchServer(ctx, ctx.GuildID, database.Patch{
		Set: map[string]any{
			fmt.Sprintf("events.%d", eventMessage.ID): map[string]any{
				"title":       title,
				"description": description,
				"datetime":    moment.Format(time.RFC3339),
				"channel":     int64(ctx.Message.ChannelID),
			},
		},
	})
	return err
}

// textStep swaps the wizard to a single page with the given predicate and
// returns the matching input, ok=false when abandoned.
func (h *Handler) textStep(
	ctx *command.Context, wizard *menu.Menu, opts menu.PageOptions, filter stream.MessageFilter,
) (string, bool, error) {
	page, err := menu.NewPage(opts)
	if err != nil {
		return "", false, err
	}
	if err := wizard.Update(page); err != nil {
		return "", false, err
	}
	wizard.SetInput(filter)

	input, _, err := wizard.Display(ctx, false, true)
	if err != nil {
		return "", false, err
	}
	if input == nil {
		return "", false, nil
	}
	return input.Message.Content, true, nil
}

// pickTimezone runs steps 3 and 4: the category choice and the zone choice.
func (h *Handler) pickTimezone(ctx *command.Context, wizard *menu.Menu) (string, error) {
	categories := constants.TimezoneCategories

	categoryPage, err := menu.NewPage(menu.PageOptions{
		Title:              "Choose a location!",
		Description:        "Type your response in the chat below!",
		Footer:             "Step 3/6",
		Lines:              categories,
		EnumerateWithEmoji: true,
	})
	if err != nil {
		return "", err
	}
	if err := wizard.Update(categoryPage); err != nil {
		return "", err
	}
	wizard.SetInput(func(msg stream.Message) bool {
		choice, err := strconv.Atoi(msg.Content)
		return err == nil && choice >= 1 && choice <= len(categories)
	})

	input, _, err := wizard.Display(ctx, false, true)
	if err != nil {
		return "", err
	}
	if input == nil {
		return "", nil
	}
	choice, _ := strconv.Atoi(input.Message.Content)
	category := categories[choice-1]

	zones := utils.ZonesInCategory(category)
	lines := make([]string, 0, len(zones))
	for _, zone := range zones {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s  (%s)", zone, time.Now().In(loc).Format(constants.FmtTime)))
	}

	chunks := utils.Chunk(lines, 8)
	pages := make([]*menu.Page, 0, len(chunks))
	for _, chunk := range chunks {
		page, err := menu.NewPage(menu.PageOptions{
			Title:              "Choose your timezone!",
			Description:        "Type your response in the chat below!",
			Footer:             "Step 4/6",
			Lines:              chunk,
			EnumerateWithEmoji: true,
		})
		if err != nil {
			return "", err
		}
		pages = append(pages, page)
	}
	if err := wizard.Update(pages...); err != nil {
		return "", err
	}
	wizard.SetInput(func(msg stream.Message) bool {
		choice, err := strconv.Atoi(msg.Content)
		return err == nil && choice >= 1 && choice <= 8
	})

	input, page, err := wizard.Display(ctx, false, true)
	if err != nil {
		return "", err
	}
	if input == nil {
		return "", nil
	}

	choice, _ = strconv.Atoi(input.Message.Content)
	pageLines := page.Options().Lines
	if choice > len(pageLines) {
		return "", nil
	}

	zone, _, _ := strings.Cut(pageLines[choice-1], "  (")
	return zone, nil
}

// OnReaction keeps the attendance chart on an event message current. Foreign
// reactions are removed so only the three choices remain.
func (h *Handler) OnReaction(ctx context.Context, reaction stream.Reaction) {
	if reaction.GuildID == 0 || reaction.UserBot {
		return
	}

	server, err := h.env.Server(ctx, reaction.GuildID)
	if err != nil {
		h.logger.Error("Failed to load server document", zap.Error(err))
		return
	}

	info, ok := database.GetPath(server, fmt.Sprintf("events.%d", reaction.MessageID))
	if !ok {
		return
	}
	event := database.ToStringMap(info)

	if !reaction.Removed && !isEventChoice(reaction.Emoji) {
		if err := h.env.Messenger.RemoveUserReaction(ctx, reaction.ChannelID,
			reaction.MessageID, reaction.Emoji, reaction.UserID); err != nil {
			h.logger.Debug("Failed to remove foreign reaction", zap.Error(err))
		}
	}

	message, err := h.env.Client.Rest().GetMessage(reaction.ChannelID, reaction.MessageID)
	if err != nil {
		h.logger.Debug("Failed to fetch event message", zap.Error(err))
		return
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(database.ToString(event["title"])).
		SetDescription(database.ToString(event["description"])).
		SetColor(constants.EventColor)
	if moment, err := time.Parse(time.RFC3339, database.ToString(event["datetime"])); err == nil {
		embed.SetFooter(moment.Format(footerFormat), "")
	}

	total := 0
	for _, messageReaction := range message.Reactions {
		total += messageReaction.Count - 1
	}
	for i, messageReaction := range message.Reactions {
		if i >= len(constants.EventChoices) {
			break
		}

		votes := messageReaction.Count - 1
		fraction := 0.0
		if total > 0 {
			fraction = float64(votes) / float64(total)
		}

		choice := constants.EventChoices[i]
		embed.AddField(fmt.Sprintf("%s %s", choice.Emoji, choice.Label),
			utils.ProgressBar(fraction, votes), true)
	}

	if _, err := h.env.Client.Rest().UpdateMessage(reaction.ChannelID, reaction.MessageID,
		discord.NewMessageUpdateBuilder().SetEmbeds(embed.Build()).Build()); err != nil {
		h.logger.Debug("Failed to update event message", zap.Error(err))
	}
}

// Commands returns the event commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "event",
			Description: "Create a scheduled event with attendance tracking.",
			GuildOnly:   true,
			Permission:  discord.PermissionAdministrator,
			Handler:     h.event,
		},
	}
}

func isEventChoice(emoji string) bool {
	for _, choice := range constants.EventChoices {
		if choice.Emoji == emoji {
			return true
		}
	}
	return false
}

// parseDate accepts YEAR/MONTH/DAY with strict component validation.
func parseDate(content string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(content), "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// parseClock accepts HOUR:MINUTE on a 24 hour clock.
func parseClock(content string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(content), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}

	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
