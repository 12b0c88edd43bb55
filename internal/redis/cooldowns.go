package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// CooldownTracker rate limits repeatable actions, like experience grants per
// member, with expiring Redis keys.
type CooldownTracker struct {
	client rueidis.Client
}

// NewCooldownTracker creates a tracker on the cooldown database.
func NewCooldownTracker(manager *Manager) (*CooldownTracker, error) {
	client, err := manager.GetClient(CooldownDBIndex)
	if err != nil {
		return nil, err
	}
	return &CooldownTracker{client: client}, nil
}

// NewCooldownTrackerWithClient creates a tracker on an existing client,
// used by tests.
func NewCooldownTrackerWithClient(client rueidis.Client) *CooldownTracker {
	return &CooldownTracker{client: client}
}

// Try attempts to start a cooldown for key. It reports true and arms the
// cooldown when none is active, and false while one is still running.
func (t *CooldownTracker) Try(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	resp := t.client.Do(ctx, t.client.B().
		Set().
		Key(key).
		Value("1").
		Nx().
		Ex(ttl).
		Build())

	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			// SET NX returns nil while the key still exists.
			return false, nil
		}
		return false, fmt.Errorf("failed to arm cooldown %s: %w", key, err)
	}
	return true, nil
}

// Clear drops an active cooldown.
func (t *CooldownTracker) Clear(ctx context.Context, key string) error {
	resp := t.client.Do(ctx, t.client.B().Del().Key(key).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("failed to clear cooldown %s: %w", key, err)
	}
	return nil
}

// MemberKey builds the cooldown key for a member-scoped action.
func MemberKey(action string, guildID, userID int64) string {
	return fmt.Sprintf("cooldown:%s:%d:%d", action, guildID, userID)
}
