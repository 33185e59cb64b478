package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/firekit-dev/firekit/internal/auth"
	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/logging"
)

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type SessionReader interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SessionRefresher replaces a session's ID token once it is about to expire.
type SessionRefresher interface {
	RefreshSession(ctx context.Context, s *domain.Session) (*domain.Session, error)
}

// FirebaseAuthMiddleware resolves the caller from a Bearer ID token or, failing
// that, the session cookie. A session whose ID token cannot be refreshed is
// treated as signed out. Requests without valid credentials continue
// anonymously; use RequireUser to reject them.
func FirebaseAuthMiddleware(verifier TokenVerifier, sessions SessionReader, refresher SessionRefresher, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if token := extractToken(c); token != "" {
			decodedToken, err := verifier.VerifyIDToken(ctx, token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				c.Abort()
				return
			}
			auth.SetCurrentUser(c, &domain.CurrentUser{UID: decodedToken.UID, IDToken: token}, "")
			if email, ok := decodedToken.Claims["email"].(string); ok {
				c.Set("email", email)
			}
			c.Next()
			return
		}

		if sessions != nil && cookieName != "" {
			if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
				s, err := sessions.Get(ctx, cookie)
				if err == nil && refresher != nil {
					s, err = refresher.RefreshSession(ctx, s)
				}
				switch {
				case err == nil:
					auth.SetCurrentUser(c, &domain.CurrentUser{UID: s.UID, IDToken: s.IDToken}, s.SessionID)
				case !errors.Is(err, domain.ErrSessionNotFound):
					logging.NewLogger(ctx).LogError("auth.session", err)
				}
			}
		}

		c.Next()
	}
}

// RequireUser rejects requests that FirebaseAuthMiddleware left anonymous.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.CurrentUser(c) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
