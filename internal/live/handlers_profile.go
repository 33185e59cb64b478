package live

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/firekit-dev/firekit/internal/auth"
	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/logging"
)

// ProfileEvents is implemented by repository.ProfileEvents.
type ProfileEvents interface {
	Subscribe(ctx context.Context, uid string) *redis.PubSub
}

// StreamProfile sends a "snapshot" event with the caller's mirrored profile
// every time it is written.
func (h *Handler) StreamProfile(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx := c.Request.Context()
	sub := h.events.Subscribe(ctx, uid)
	defer sub.Close()

	// Wait for the subscription confirmation so no write after the
	// response headers is missed.
	if _, err := sub.Receive(ctx); err != nil {
		logging.NewLogger(ctx).LogError("live.profile_subscribe", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "profile events unavailable"})
		return
	}

	h.metrics.LiveSubscriptionOpened("profile")
	defer h.metrics.LiveSubscriptionClosed("profile")

	stream(c, func(run func(domain.UserProfile)) func() {
		done := make(chan struct{})
		go func() {
			messages := sub.Channel()
			for {
				select {
				case <-done:
					return
				case msg, ok := <-messages:
					if !ok {
						return
					}
					var p domain.UserProfile
					if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
						logging.NewLogger(ctx).LogError("live.profile_decode", err)
						continue
					}
					run(p)
				}
			}
		}()
		return func() { close(done) }
	}, func(p domain.UserProfile) any { return p })
}
