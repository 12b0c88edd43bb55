// Package general holds the commands that belong to no feature area, like
// the paginated help listing.
package general

import (
	"fmt"
	"sort"

	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/core/menu"
	"github.com/attendantbot/attendant/internal/bot/utils"
	"go.uber.org/zap"
)

// commandsPerPage bounds the help listing page size.
const commandsPerPage = 8

// Handler owns the general commands.
type Handler struct {
	env    *command.Env
	router *command.Router
	logger *zap.Logger
}

// New creates the general commands handler. The router supplies the command
// listing for help.
func New(env *command.Env, router *command.Router) *Handler {
	return &Handler{
		env:    env,
		router: router,
		logger: env.Logger.Named("general"),
	}
}

func (h *Handler) help(ctx *command.Context) error {
	cmds := h.router.Commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	var lines []string
	for _, cmd := range cmds {
		invocation := ctx.Prefix + cmd.Name
		if cmd.Usage != "" {
			invocation += " " + cmd.Usage
		}
		lines = append(lines, fmt.Sprintf("`%s`\n%s", invocation, cmd.Description))
	}

	var pages []*menu.Page
	for _, chunk := range utils.Chunk(lines, commandsPerPage) {
		page, err := menu.NewPage(menu.PageOptions{
			Title:    "Commands",
			Lines:    chunk,
			Embedded: true,
		})
		if err != nil {
			return err
		}
		pages = append(pages, page)
	}

	listing, err := ctx.NewMenu(pages, menu.Options{})
	if err != nil {
		return err
	}
	if _, _, err := listing.Display(ctx, true, true); err != nil {
		return err
	}
	return listing.Stop(ctx)
}

func (h *Handler) ping(ctx *command.Context) error {
	return ctx.Replyf("Pong! %s", h.env.Client.Gateway().Latency())
}

// Commands returns the general commands.
func (h *Handler) Commands() []*command.Command {
	return []*command.Command{
		{
			Name:        "help",
			Description: "List every command.",
			Handler:     h.help,
		},
		{
			Name:        "ping",
			Description: "Check the gateway latency.",
			Handler:     h.ping,
		},
	}
}
