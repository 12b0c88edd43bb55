package birthday

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/core/stream"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/snowflake/v2"
)

var birthdayInputPattern = regexp.MustCompile(`^([0-9]{4}/)?[0-9]{1,2}/[0-9]{1,2}$`)

// setBirthday walks the invoker through a DM wizard: timezone category,
// concrete timezone, then the date itself.
func (h *Handler) setBirthday(ctx *command.Context) error {
	dm, err := h.env.Client.Rest().CreateDMChannel(ctx.Message.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	categories := constants.TimezoneCategories
	categoryPage, err := menu.NewPage(menu.PageOptions{
		Title:              "Choose a location!",
		Description:        "Type your response in the chat below!",
		Lines:              categories,
		EnumerateWithEmoji: true,
	})
	if err != nil {
		return err
	}

	wizard, err := menu.New(menu.Config{
		Messenger:   h.env.Messenger,
		Events:      h.env.Events,
		Logger:      ctx.Logger,
		ChannelID:   dm.ID(),
		Interactors: []snowflake.ID{ctx.Message.AuthorID},
		Pages:       []*menu.Page{categoryPage},
		Options: menu.Options{
			AllEmbedded: true,
			Input: func(msg stream.Message) bool {
				choice, err := strconv.Atoi(msg.Content)
				return err == nil && choice >= 1 && choice <= len(categories)
			},
			RemoveMessageAfter: true,
		},
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
	choice, _ := strconv.Atoi(input.Message.Content)
	category := categories[choice-1]

	timezone, err := h.pickTimezone(ctx, wizard, category)
	if err != nil || timezone == "" {
		return err
	}

	birthday, err := h.pickDate(ctx, wizard, timezone)
	if err != nil || birthday.IsZero() {
		return err
	}

	if err := wizard.Stop(ctx); err != nil {
		h.logger.Debug("Failed to stop birthday wizard")
	}

	if _, err := h.env.PatchUser(ctx, ctx.Message.AuthorID, database.Patch{
		Set: map[string]any{
			"birthday":          birthday.Format(constants.FmtDate),
			"timezone":          timezone,
			"has_birthday_role": false,
		},
	}); err != nil {
		return err
	}

	_, err = h.env.Messenger.SendMessage(ctx, dm.ID(),
		fmt.Sprintf("Your birthday has been updated to %s!", birthday.Format(constants.FmtDate)), nil)
	return err
}

// pickTimezone pages through the zones of a category and returns the chosen
// name, or empty when the wizard was abandoned.
func (h *Handler) pickTimezone(ctx *command.Context, wizard *menu.Menu, category string) (string, error) {
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

	choice, _ := strconv.Atoi(input.Message.Content)
	pageLines := page.Options().Lines
	if choice > len(pageLines) {
		return "", nil
	}

	zone, _, _ := strings.Cut(pageLines[choice-1], "  (")
	return zone, nil
}

// pickDate asks for the birthday until a valid, non-future date arrives.
// Returns the zero time when the wizard was abandoned.
func (h *Handler) pickDate(ctx *command.Context, wizard *menu.Menu, timezone string) (time.Time, error) {
	title := fmt.Sprintf("You have chosen %s as your timezone.", timezone)

	wizard.SetInput(func(msg stream.Message) bool {
		return birthdayInputPattern.MatchString(strings.TrimSpace(msg.Content))
	})

	for {
		page, err := menu.NewPage(menu.PageOptions{
			Title: title,
			Description: "Please enter your birthday (YYYY/MM/DD) now! " +
				"If you don't want to you need not provide your year of birth.",
			Text: "Once it's your birthday you'll get a notification and a role in this server for the duration!",
		})
		if err != nil {
			return time.Time{}, err
		}
		if err := wizard.Update(page); err != nil {
			return time.Time{}, err
		}

		input, _, err := wizard.Display(ctx, false, true)
		if err != nil {
			return time.Time{}, err
		}
		if input == nil {
			return time.Time{}, nil
		}

		birthday, ok := parseBirthdayInput(input.Message.Content)
		if !ok {
			title = "Woah that's not a valid birthday! Try again."
			continue
		}
		if birthday.After(time.Now()) {
			title = "Living in the future hu? ;)"
			continue
		}
		return birthday, nil
	}
}
