package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/logging"
)

const profileEventChannelPrefix = "users:events:" // Pub/Sub channel for profile writes: users:events:{uid}

// ProfileWriter persists one mirrored profile.
type ProfileWriter interface {
	SaveProfile(ctx context.Context, p domain.UserProfile) error
}

// ProfileEvents publishes every mirrored profile on Redis Pub/Sub.
type ProfileEvents struct {
	client *redis.Client
}

func NewProfileEvents(client *redis.Client) *ProfileEvents {
	return &ProfileEvents{client: client}
}

// SaveProfile publishes the profile; it never stores anything.
func (e *ProfileEvents) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile event: %w", err)
	}
	if err := e.client.Publish(ctx, ProfileEventChannel(p.UID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish profile event: %w", err)
	}
	return nil
}

// Subscribe listens for profile writes of uid. Close the returned PubSub when done.
func (e *ProfileEvents) Subscribe(ctx context.Context, uid string) *redis.PubSub {
	return e.client.Subscribe(ctx, ProfileEventChannel(uid))
}

func ProfileEventChannel(uid string) string {
	return fmt.Sprintf("%s%s", profileEventChannelPrefix, uid)
}

// Fanout writes a profile to every writer in order. Only the first writer
// decides the outcome; failures of the rest are logged and skipped.
type Fanout []ProfileWriter

func (f Fanout) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	for i, w := range f {
		if w == nil {
			continue
		}
		if err := w.SaveProfile(ctx, p); err != nil {
			if i == 0 {
				return err
			}
			logging.NewLogger(ctx).LogWarnf("profile.fanout", "writer %d failed for %s: %v", i, p.UID, err)
		}
	}
	return nil
}
