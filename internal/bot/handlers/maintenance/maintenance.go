// Package maintenance runs the scheduled consistency sweeps: dropping
// references to deleted roles, channels and manager messages, lifting
// expired mutes, granting birthday roles and expiring stale member data.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/attendantbot/attendant/internal/bot/command"
	"github.com/attendantbot/attendant/internal/bot/constants"
	"github.com/attendantbot/attendant/internal/bot/handlers/birthday"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// retention is how long per-guild member data survives after leaving.
const retention = 14 * 24 * time.Hour

// maxConcurrentGuilds bounds the sweep worker pool.
const maxConcurrentGuilds = 4

// Handler owns the scheduled sweeps.
type Handler struct {
	env       *command.Env
	birthdays *birthday.Handler
	cron      gronx.Gronx
	logger    *zap.Logger
}

// New creates the maintenance handler.
func New(env *command.Env, birthdays *birthday.Handler) *Handler {
	return &Handler{
		env:       env,
		birthdays: birthdays,
		cron:      *gronx.New(),
		logger:    env.Logger.Named("maintenance"),
	}
}

// Run blocks, firing the configured sweeps on their cron schedules, until
// the context is cancelled.
func (h *Handler) Run(ctx context.Context) {
	cfg := h.env.Config.Maintenance
	if !cfg.Enabled {
		h.logger.Info("Maintenance sweeps disabled")
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.fire(ctx, cfg.SweepSchedule, now, "sweep", h.Sweep)
			h.fire(ctx, cfg.BirthdaySchedule, now, "birthday", h.birthdays.Sweep)
		}
	}
}

func (h *Handler) fire(ctx context.Context, schedule string, now time.Time, name string, run func(context.Context) error) {
	due, err := h.cron.IsDue(schedule, now)
	if err != nil {
		h.logger.Error("Bad cron schedule",
			zap.String("task", name), zap.String("schedule", schedule), zap.Error(err))
		return
	}
	if !due {
		return
	}

	started := time.Now()
	if err := run(ctx); err != nil {
		h.logger.Error("Sweep failed", zap.String("task", name), zap.Error(err))
		return
	}
	h.logger.Info("Sweep finished",
		zap.String("task", name), zap.Duration("took", time.Since(started)))
}

// Sweep reconciles stored documents with what still exists on Discord.
func (h *Handler) Sweep(ctx context.Context) error {
	servers, err := h.env.Store.All(ctx, database.CollectionServers)
	if err != nil {
		return fmt.Errorf("failed to list servers: %w", err)
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(maxConcurrentGuilds)
	for guildID, doc := range servers {
		p.Go(func(ctx context.Context) error {
			h.sweepGuild(ctx, snowflake.ID(guildID), doc)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	return h.sweepUsers(ctx, servers)
}

// sweepGuild drops the guild document's references to roles, channels and
// manager messages that no longer exist.
func (h *Handler) sweepGuild(ctx context.Context, guildID snowflake.ID, server database.Document) {
	var unset []string

	if roles, err := h.env.Client.Rest().GetRoles(guildID); err == nil {
		existing := make(map[int64]struct{}, len(roles))
		for _, role := range roles {
			existing[int64(role.ID)] = struct{}{}
		}

		rolesValue, _ := database.GetPath(server, "roles")
		for slot, value := range database.ToStringMap(rolesValue) {
			id := database.ToInt64(value)
			if id == 0 {
				continue
			}
			if _, ok := existing[id]; !ok {
				unset = append(unset, "roles."+slot)
			}
		}
	}

	for _, slot := range constants.DefaultChannels {
		value, _ := database.GetPath(server, "channels."+slot)
		id := database.ToInt64(value)
		if id == 0 {
			continue
		}
		if _, err := h.env.Client.Rest().GetChannel(snowflake.ID(id)); isGone(err) {
			unset = append(unset, "channels."+slot)
		}
	}

	for _, list := range []string{"channels.ignore", "channels.ignore_exp"} {
		value, _ := database.GetPath(server, list)
		for _, id := range database.ToInt64Slice(value) {
			if _, err := h.env.Client.Rest().GetChannel(snowflake.ID(id)); !isGone(err) {
				continue
			}
			if _, err := h.env.PatchServer(ctx, guildID, database.Patch{
				Pull: map[string]any{list: id},
			}); err != nil {
				h.logger.Error("Failed to drop dead channel reference", zap.Error(err))
			}
		}
	}

	for _, category := range constants.ManagerCategories {
		value, _ := database.GetPath(server, category)
		for key, info := range database.ToStringMap(value) {
			messageID, err := snowflake.Parse(key)
			if err != nil {
				unset = append(unset, category+"."+key)
				continue
			}
			manager := database.ToStringMap(info)
			channelID := snowflake.ID(database.ToInt64(manager["channel"]))

			if _, err := h.env.Client.Rest().GetMessage(channelID, messageID); isGone(err) {
				unset = append(unset, category+"."+key)
			}
		}
	}

	if len(unset) == 0 {
		return
	}
	if _, err := h.env.PatchServer(ctx, guildID, database.Patch{Unset: unset}); err != nil {
		h.logger.Error("Failed to apply guild sweep",
			zap.Uint64("guild_id", uint64(guildID)), zap.Error(err))
	}
}

// sweepUsers lifts expired mutes and expires member data of users who left
// long enough ago.
func (h *Handler) sweepUsers(ctx context.Context, servers map[int64]database.Document) error {
	users, err := h.env.Store.All(ctx, database.CollectionUsers)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	now := time.Now().UTC()
	staleBefore := now.Add(-retention)

	for userID, doc := range users {
		var user database.UserDoc
		if err := database.Decode(doc, &user); err != nil {
			h.logger.Debug("Skipping malformed user document",
				zap.Int64("user_id", userID), zap.Error(err))
			continue
		}

		for key, state := range user.Servers {
			guildID, err := snowflake.Parse(key)
			if err != nil {
				continue
			}

			if until, err := time.Parse(time.RFC3339, state.MutedUntil); state.MutedUntil != "" &&
				err == nil && until.Before(now) {
				h.unmute(ctx, guildID, snowflake.ID(userID), servers[int64(guildID)])
			}

			if left, err := time.Parse(time.RFC3339, state.LeaveDate); state.LeaveDate != "" &&
				err == nil && left.Before(staleBefore) {
				if _, err := h.env.PatchUser(ctx, snowflake.ID(userID), database.Patch{
					Unset: []string{fmt.Sprintf("servers.%d", guildID)},
				}); err != nil {
					h.logger.Error("Failed to expire member data", zap.Error(err))
					continue
				}
				delete(user.Servers, key)
			}
		}

		if len(user.Servers) > 0 {
			continue
		}
		if user.LeaveDate == "" {
			if _, err := h.env.PatchUser(ctx, snowflake.ID(userID), database.Patch{
				Set: map[string]any{"leave_date": now.Format(time.RFC3339)},
			}); err != nil {
				h.logger.Error("Failed to stamp user leave date", zap.Error(err))
			}
			continue
		}
		if left, err := time.Parse(time.RFC3339, user.LeaveDate); err == nil && left.Before(staleBefore) {
			if err := h.env.Store.Delete(ctx, database.CollectionUsers, userID); err != nil {
				h.logger.Error("Failed to delete stale user document",
					zap.Int64("user_id", userID), zap.Error(err))
			}
		}
	}
	return nil
}

// unmute drops the expired mute and the muted role when one is bound.
func (h *Handler) unmute(ctx context.Context, guildID, userID snowflake.ID, server database.Document) {
	if server != nil {
		value, _ := database.GetPath(server, "roles.muted")
		if roleID := database.ToInt64(value); roleID != 0 {
			if err := h.env.Client.Rest().RemoveMemberRole(guildID, userID,
				snowflake.ID(roleID)); err != nil && !isGone(err) {
				h.logger.Debug("Failed to remove muted role", zap.Error(err))
			}
		}
	}

	if _, err := h.env.PatchUser(ctx, userID, database.Patch{
		Unset: []string{fmt.Sprintf("servers.%d.muted_until", guildID)},
	}); err != nil {
		h.logger.Error("Failed to clear expired mute", zap.Error(err))
	}
}

// Discord JSON error codes for deleted entities.
const (
	codeUnknownChannel = 10003
	codeUnknownGuild   = 10004
	codeUnknownMember  = 10007
	codeUnknownMessage = 10008
	codeUnknownRole    = 10011
	codeUnknownUser    = 10013
)

// isGone reports whether err is a definitive not-found from the REST API.
// Transient failures must not scrub stored configuration.
func isGone(err error) bool {
	var restErr rest.Error
	if !errors.As(err, &restErr) {
		return false
	}
	switch int(restErr.Code) {
	case codeUnknownChannel, codeUnknownGuild, codeUnknownMember,
		codeUnknownMessage, codeUnknownRole, codeUnknownUser:
		return true
	}
	return false
}
