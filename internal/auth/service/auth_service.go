package service

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/auth"

	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/auth/google"
	"github.com/firekit-dev/firekit/internal/auth/repository"
	"github.com/firekit-dev/firekit/internal/logging"
	"github.com/firekit-dev/firekit/internal/metrics"
)

// IdentityProvider signs users in the way the client SDK does.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Credential, error)
	SignUp(ctx context.Context, email, password string) (*domain.Credential, error)
	SignInWithIDP(ctx context.Context, providerID, idToken, requestURI string) (*domain.Credential, error)
	SendPasswordResetEmail(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context, idToken string) error
	SignInWithCustomToken(ctx context.Context, customToken string) (*domain.Credential, error)
}

// UserAdmin is the subset of the Admin SDK auth client the service uses.
type UserAdmin interface {
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	CustomToken(ctx context.Context, uid string) (string, error)
}

type SessionStore interface {
	Create(ctx context.Context, s domain.Session) (*domain.Session, error)
	UpdateTokens(ctx context.Context, sessionID, idToken, refreshToken string, idTokenExpiresAt time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForUser(ctx context.Context, uid string) error
}

type Presence interface {
	SetOnline(ctx context.Context, uid string) error
	SetOffline(ctx context.Context, uid string) error
}

const (
	// idTokenTTL is assumed when the provider does not report expiresIn.
	idTokenTTL = time.Hour
	// refreshSkew refreshes ID tokens shortly before they expire.
	refreshSkew = 5 * time.Minute
)

type AuthService struct {
	identity IdentityProvider
	users    UserAdmin
	profiles repository.ProfileWriter
	sessions SessionStore
	presence Presence
	metrics  metrics.Recorder
	now      func() time.Time
}

func NewAuthService(
	identity IdentityProvider,
	users UserAdmin,
	profiles repository.ProfileWriter,
	sessions SessionStore,
	presence Presence,
	recorder metrics.Recorder,
) *AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AuthService{
		identity: identity,
		users:    users,
		profiles: profiles,
		sessions: sessions,
		presence: presence,
		metrics:  recorder,
		now:      time.Now,
	}
}

// SignInWithGoogle signs in with a Google id_token obtained from the OAuth code
// flow and mirrors the user's profile.
func (s *AuthService) SignInWithGoogle(ctx context.Context, googleIDToken, requestURI string) (sess *domain.Session, err error) {
	defer func() { s.metrics.RecordAuthOperation("sign_in_google", err) }()

	cred, err := s.identity.SignInWithIDP(ctx, google.ProviderID, googleIDToken, requestURI)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, cred)
}

// SignInWithEmail signs in with email and password and mirrors the user's profile.
func (s *AuthService) SignInWithEmail(ctx context.Context, email, password string) (sess *domain.Session, err error) {
	defer func() { s.metrics.RecordAuthOperation("sign_in_email", err) }()

	cred, err := s.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, cred)
}

// RegisterWithEmail creates an account, sets its display name, mirrors it and
// sends the verification email. The new user is signed in.
func (s *AuthService) RegisterWithEmail(ctx context.Context, email, password, displayName string) (sess *domain.Session, err error) {
	defer func() { s.metrics.RecordAuthOperation("register_email", err) }()

	cred, err := s.identity.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.UID == "" {
		return nil, domain.ErrUserNotFound
	}

	rec, err := s.users.UpdateUser(ctx, cred.UID, (&auth.UserToUpdate{}).DisplayName(displayName))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := s.mirror(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.identity.SendEmailVerification(ctx, cred.IDToken); err != nil {
		return nil, err
	}
	return s.startSession(ctx, cred)
}

// LogOut revokes the user's refresh tokens and drops the session. Redirecting
// to the sign-in page is left to the caller.
func (s *AuthService) LogOut(ctx context.Context, current *domain.CurrentUser, sessionID string) (err error) {
	defer func() { s.metrics.RecordAuthOperation("log_out", err) }()

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return err
		}
	}
	if current == nil {
		return nil
	}

	if err := s.users.RevokeRefreshTokens(ctx, current.UID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	// revoked tokens invalidate every other session of the user too
	if err := s.sessions.DeleteAllForUser(ctx, current.UID); err != nil {
		return err
	}
	s.setPresence(ctx, current.UID, false)
	return nil
}

func (s *AuthService) SendPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.RecordAuthOperation("send_password_reset", err) }()
	return s.identity.SendPasswordResetEmail(ctx, email)
}

// SendEmailVerificationToUser does nothing without a signed-in user.
func (s *AuthService) SendEmailVerificationToUser(ctx context.Context, current *domain.CurrentUser) (err error) {
	if current == nil {
		return nil
	}
	defer func() { s.metrics.RecordAuthOperation("send_email_verification", err) }()
	return s.identity.SendEmailVerification(ctx, current.IDToken)
}

// UpdateUserProfile changes display name and/or photo URL and mirrors the
// result. It does nothing without a signed-in user.
func (s *AuthService) UpdateUserProfile(ctx context.Context, current *domain.CurrentUser, update domain.ProfileUpdate) (err error) {
	if current == nil {
		return nil
	}
	defer func() { s.metrics.RecordAuthOperation("update_profile", err) }()

	params := &auth.UserToUpdate{}
	if update.DisplayName != nil {
		params.DisplayName(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		params.PhotoURL(*update.PhotoURL)
	}

	var rec *auth.UserRecord
	if update.Empty() {
		// nothing to change, the profile is still mirrored
		rec, err = s.users.GetUser(ctx, current.UID)
	} else {
		rec, err = s.users.UpdateUser(ctx, current.UID, params)
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return s.mirror(ctx, rec)
}

// UpdateUserPassword does nothing without a signed-in user.
func (s *AuthService) UpdateUserPassword(ctx context.Context, current *domain.CurrentUser, newPassword string) (err error) {
	if current == nil {
		return nil
	}
	defer func() { s.metrics.RecordAuthOperation("update_password", err) }()

	if _, err := s.users.UpdateUser(ctx, current.UID, (&auth.UserToUpdate{}).Password(newPassword)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// GetProfile returns the user's current record in mirrored form.
func (s *AuthService) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	rec, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	p := domain.ProfileFromRecord(rec)
	return &p, nil
}

// RefreshSession returns sess unchanged while its ID token is valid. Otherwise
// it mints a custom token for the session's user, exchanges it for a new token
// pair and stores the pair on the session.
func (s *AuthService) RefreshSession(ctx context.Context, sess *domain.Session) (out *domain.Session, err error) {
	if sess == nil || !sess.IDTokenExpired(s.now(), refreshSkew) {
		return sess, nil
	}
	defer func() { s.metrics.RecordAuthOperation("refresh_session", err) }()

	custom, err := s.users.CustomToken(ctx, sess.UID)
	if err != nil {
		return nil, fmt.Errorf("mint custom token: %w", err)
	}
	cred, err := s.identity.SignInWithCustomToken(ctx, custom)
	if err != nil {
		return nil, err
	}

	refreshed := *sess
	refreshed.IDToken = cred.IDToken
	if cred.RefreshToken != "" {
		refreshed.RefreshToken = cred.RefreshToken
	}
	refreshed.IDTokenExpiresAt = s.idTokenExpiry(cred)

	if err := s.sessions.UpdateTokens(ctx, sess.SessionID, refreshed.IDToken, refreshed.RefreshToken, refreshed.IDTokenExpiresAt); err != nil {
		return nil, err
	}
	return &refreshed, nil
}

// Resync mirrors rec without any auth action, used by the scheduled resync.
func (s *AuthService) Resync(ctx context.Context, rec *auth.UserRecord) error {
	return s.mirror(ctx, rec)
}

func (s *AuthService) completeSignIn(ctx context.Context, cred *domain.Credential) (*domain.Session, error) {
	if cred == nil || cred.UID == "" {
		return nil, domain.ErrUserNotFound
	}
	rec, err := s.users.GetUser(ctx, cred.UID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.mirror(ctx, rec); err != nil {
		return nil, err
	}
	return s.startSession(ctx, cred)
}

func (s *AuthService) startSession(ctx context.Context, cred *domain.Credential) (*domain.Session, error) {
	sess, err := s.sessions.Create(ctx, domain.Session{
		UID:              cred.UID,
		IDToken:          cred.IDToken,
		RefreshToken:     cred.RefreshToken,
		IDTokenExpiresAt: s.idTokenExpiry(cred),
	})
	if err != nil {
		return nil, err
	}
	s.setPresence(ctx, cred.UID, true)
	return sess, nil
}

func (s *AuthService) idTokenExpiry(cred *domain.Credential) time.Time {
	ttl := cred.ExpiresIn
	if ttl <= 0 {
		ttl = idTokenTTL
	}
	return s.now().Add(ttl)
}

func (s *AuthService) mirror(ctx context.Context, rec *auth.UserRecord) error {
	if rec == nil {
		return domain.ErrUserNotFound
	}
	if err := s.profiles.SaveProfile(ctx, domain.ProfileFromRecord(rec)); err != nil {
		return fmt.Errorf("mirror profile: %w", err)
	}
	return nil
}

// Presence is best effort.
func (s *AuthService) setPresence(ctx context.Context, uid string, online bool) {
	if s.presence == nil {
		return
	}
	var err error
	if online {
		err = s.presence.SetOnline(ctx, uid)
	} else {
		err = s.presence.SetOffline(ctx, uid)
	}
	if err != nil {
		logging.NewLogger(ctx).LogWarnf("auth.presence", "uid=%s error=%v", uid, err)
	}
}
