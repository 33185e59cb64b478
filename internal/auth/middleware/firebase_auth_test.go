package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/firekit-dev/firekit/internal/auth"
	"github.com/firekit-dev/firekit/internal/auth/domain"
)

type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(_ context.Context, token string) (*fbauth.Token, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &fbauth.Token{UID: "u1", Claims: map[string]interface{}{"email": "ada@example.com"}}, nil
}

type fakeSessions map[string]*domain.Session

func (f fakeSessions) Get(_ context.Context, id string) (*domain.Session, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

// fakeRefresher swaps "stale" ID tokens and fails for "revoked" ones.
type fakeRefresher struct{}

func (fakeRefresher) RefreshSession(_ context.Context, s *domain.Session) (*domain.Session, error) {
	switch s.IDToken {
	case "stale":
		fresh := *s
		fresh.IDToken = "fresh"
		return &fresh, nil
	case "revoked":
		return nil, errors.New("TOKEN_EXPIRED")
	}
	return s, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	sessions := fakeSessions{
		"sess-1":   {SessionID: "sess-1", UID: "u2", IDToken: "tok-2"},
		"sess-old": {SessionID: "sess-old", UID: "u3", IDToken: "stale"},
		"sess-bad": {SessionID: "sess-bad", UID: "u4", IDToken: "revoked"},
	}
	r.Use(FirebaseAuthMiddleware(fakeVerifier{}, sessions, fakeRefresher{}, "__session"))
	r.GET("/whoami", func(c *gin.Context) {
		u := auth.CurrentUser(c)
		if u == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, u.UID+"|"+auth.SessionID(c))
	})
	r.GET("/token", func(c *gin.Context) {
		if u := auth.CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.IDToken)
		}
	})
	r.GET("/private", RequireUser(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantCode int
		wantBody string
	}{
		{name: "anonymous", wantCode: http.StatusOK, wantBody: "anonymous"},
		{name: "bearer", header: "Bearer good", wantCode: http.StatusOK, wantBody: "u1|"},
		{name: "bad bearer", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "session cookie", cookie: "sess-1", wantCode: http.StatusOK, wantBody: "u2|sess-1"},
		{name: "unknown session", cookie: "gone", wantCode: http.StatusOK, wantBody: "anonymous"},
		{name: "expired token refreshed", cookie: "sess-old", wantCode: http.StatusOK, wantBody: "u3|sess-old"},
		{name: "refresh failure", cookie: "sess-bad", wantCode: http.StatusOK, wantBody: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "__session", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	r := newRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFirebaseAuthMiddleware_SessionGetsFreshToken(t *testing.T) {
	r := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: "sess-old"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "fresh", rec.Body.String())
}
