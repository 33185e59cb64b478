package http

import (
	"context"
	"io"
	"time"

	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/auth/session"
	"github.com/firekit-dev/firekit/internal/presence"
)

// AuthService is implemented by service.AuthService.
type AuthService interface {
	SignInWithGoogle(ctx context.Context, googleIDToken, requestURI string) (*domain.Session, error)
	SignInWithEmail(ctx context.Context, email, password string) (*domain.Session, error)
	RegisterWithEmail(ctx context.Context, email, password, displayName string) (*domain.Session, error)
	LogOut(ctx context.Context, current *domain.CurrentUser, sessionID string) error
	SendPasswordReset(ctx context.Context, email string) error
	SendEmailVerificationToUser(ctx context.Context, current *domain.CurrentUser) error
	UpdateUserProfile(ctx context.Context, current *domain.CurrentUser, update domain.ProfileUpdate) error
	UpdateUserPassword(ctx context.Context, current *domain.CurrentUser, newPassword string) error
	GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
}

type GoogleFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	RedirectURL() string
}

type StateStore interface {
	SaveState(ctx context.Context, state, returnTo string) error
	ConsumeState(ctx context.Context, state string) (string, error)
}

type AvatarUploader interface {
	Upload(ctx context.Context, uid, contentType string, r io.Reader) (string, error)
}

// PresenceReader is implemented by presence.Tracker.
type PresenceReader interface {
	Get(ctx context.Context, uid string) (*presence.Status, error)
}

type Options struct {
	Cookie session.CookieOptions
	// SignInPath is where the browser lands after logout.
	SignInPath string
	// Presence, when set, adds the user's online status to GET /profile.
	Presence PresenceReader
}

type Handler struct {
	authService AuthService
	google      GoogleFlow
	states      StateStore
	avatars     AvatarUploader
	opts        Options
}

// New builds the handler. google and avatars may be nil when the feature is
// not configured.
func New(authService AuthService, google GoogleFlow, states StateStore, avatars AvatarUploader, opts Options) *Handler {
	if opts.SignInPath == "" {
		opts.SignInPath = "/sign-in"
	}
	return &Handler{
		authService: authService,
		google:      google,
		states:      states,
		avatars:     avatars,
		opts:        opts,
	}
}

type emailSignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"displayName"`
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type updatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

type sessionResponse struct {
	UID       string    `json:"uid"`
	IDToken   string    `json:"idToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{UID: s.UID, IDToken: s.IDToken, ExpiresAt: s.ExpiresAt}
}
