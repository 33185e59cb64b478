package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/firekit-dev/firekit/internal/auth/domain"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxCurrentUser = "current_user"
	CtxSessionID   = "session_id"
)

// SetCurrentUser is called by the auth middleware once the caller is known.
func SetCurrentUser(c *gin.Context, u *domain.CurrentUser, sessionID string) {
	c.Set(CtxFirebaseUID, u.UID)
	c.Set(CtxCurrentUser, u)
	if sessionID != "" {
		c.Set(CtxSessionID, sessionID)
	}
}

// CurrentUser returns nil when the request is not signed in.
func CurrentUser(c *gin.Context) *domain.CurrentUser {
	if v, ok := c.Get(CtxCurrentUser); ok {
		if u, ok := v.(*domain.CurrentUser); ok {
			return u
		}
	}
	return nil
}

// UserFirebaseUID extracts the Firebase UID from the Gin context
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

func SessionID(c *gin.Context) string {
	return c.GetString(CtxSessionID)
}
