package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/auth/session"
)

type fakeIdentity struct {
	cred         *domain.Credential
	err          error
	calls        []string
	lastProvider string
	verifyTokens []string
	resetEmails  []string
	verifyErr    error
	customTokens []string
	refreshed    *domain.Credential
}

func (f *fakeIdentity) SignInWithPassword(_ context.Context, email, password string) (*domain.Credential, error) {
	f.calls = append(f.calls, "password")
	return f.cred, f.err
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password string) (*domain.Credential, error) {
	f.calls = append(f.calls, "signup")
	return f.cred, f.err
}

func (f *fakeIdentity) SignInWithIDP(_ context.Context, providerID, idToken, requestURI string) (*domain.Credential, error) {
	f.calls = append(f.calls, "idp")
	f.lastProvider = providerID
	return f.cred, f.err
}

func (f *fakeIdentity) SendPasswordResetEmail(_ context.Context, email string) error {
	f.resetEmails = append(f.resetEmails, email)
	return f.err
}

func (f *fakeIdentity) SendEmailVerification(_ context.Context, idToken string) error {
	f.verifyTokens = append(f.verifyTokens, idToken)
	return f.verifyErr
}

func (f *fakeIdentity) SignInWithCustomToken(_ context.Context, customToken string) (*domain.Credential, error) {
	f.customTokens = append(f.customTokens, customToken)
	if f.err != nil {
		return nil, f.err
	}
	return f.refreshed, nil
}

type fakeAdmin struct {
	records   map[string]*auth.UserRecord
	updates   []string
	revoked   []string
	updateErr error
}

func newFakeAdmin(recs ...*auth.UserRecord) *fakeAdmin {
	a := &fakeAdmin{records: map[string]*auth.UserRecord{}}
	for _, r := range recs {
		a.records[r.UID] = r
	}
	return a
}

func (a *fakeAdmin) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	rec, ok := a.records[uid]
	if !ok {
		return nil, errors.New("no user record")
	}
	return rec, nil
}

func (a *fakeAdmin) UpdateUser(_ context.Context, uid string, _ *auth.UserToUpdate) (*auth.UserRecord, error) {
	a.updates = append(a.updates, uid)
	if a.updateErr != nil {
		return nil, a.updateErr
	}
	return a.GetUser(context.Background(), uid)
}

func (a *fakeAdmin) RevokeRefreshTokens(_ context.Context, uid string) error {
	a.revoked = append(a.revoked, uid)
	return nil
}

func (a *fakeAdmin) CustomToken(_ context.Context, uid string) (string, error) {
	return "custom-" + uid, nil
}

type fakeProfiles struct {
	saved []domain.UserProfile
	err   error
}

func (f *fakeProfiles) SaveProfile(_ context.Context, p domain.UserProfile) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

type fakeSessions struct {
	created    []domain.Session
	deleted    []string
	deletedFor []string
	updated    []string
}

func (f *fakeSessions) Create(_ context.Context, s domain.Session) (*domain.Session, error) {
	s.SessionID = "sess-1"
	f.created = append(f.created, s)
	return &s, nil
}

func (f *fakeSessions) UpdateTokens(_ context.Context, id, idToken, _ string, _ time.Time) error {
	f.updated = append(f.updated, id+"="+idToken)
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessions) DeleteAllForUser(_ context.Context, uid string) error {
	f.deletedFor = append(f.deletedFor, uid)
	return nil
}

type fakePresence struct {
	states map[string]string
	err    error
}

func (f *fakePresence) SetOnline(_ context.Context, uid string) error {
	f.states[uid] = "online"
	return f.err
}

func (f *fakePresence) SetOffline(_ context.Context, uid string) error {
	f.states[uid] = "offline"
	return f.err
}

type fixture struct {
	identity *fakeIdentity
	admin    *fakeAdmin
	profiles *fakeProfiles
	sessions *fakeSessions
	presence *fakePresence
	svc      *AuthService
}

func newFixture() *fixture {
	rec := &auth.UserRecord{
		UserInfo: &auth.UserInfo{
			UID:         "u1",
			Email:       "ada@example.com",
			DisplayName: "Ada",
			ProviderID:  "firebase",
		},
		ProviderUserInfo: []*auth.UserInfo{{ProviderID: "password", UID: "ada@example.com", Email: "ada@example.com"}},
	}
	f := &fixture{
		identity: &fakeIdentity{
			cred:      &domain.Credential{UID: "u1", IDToken: "id-1", RefreshToken: "rt-1", ExpiresIn: time.Hour},
			refreshed: &domain.Credential{IDToken: "id-2", RefreshToken: "rt-2", ExpiresIn: time.Hour},
		},
		admin:    newFakeAdmin(rec),
		profiles: &fakeProfiles{},
		sessions: &fakeSessions{},
		presence: &fakePresence{states: map[string]string{}},
	}
	f.svc = NewAuthService(f.identity, f.admin, f.profiles, f.sessions, f.presence, nil)
	return f
}

func TestSignInWithEmail(t *testing.T) {
	f := newFixture()

	sess, err := f.svc.SignInWithEmail(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.SessionID)
	assert.Equal(t, "id-1", sess.IDToken)

	require.Len(t, f.profiles.saved, 1)
	assert.Equal(t, "u1", f.profiles.saved[0].UID)
	assert.Equal(t, "Ada", f.profiles.saved[0].DisplayName)
	assert.Equal(t, "online", f.presence.states["u1"])
}

func TestSignInWithEmail_ProviderErrorSkipsMirror(t *testing.T) {
	f := newFixture()
	f.identity.err = errors.New("INVALID_PASSWORD")

	_, err := f.svc.SignInWithEmail(context.Background(), "ada@example.com", "bad")
	require.Error(t, err)
	assert.Empty(t, f.profiles.saved)
	assert.Empty(t, f.sessions.created)
}

func TestSignInWithGoogle(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SignInWithGoogle(context.Background(), "google-id-token", "https://app.example/cb")
	require.NoError(t, err)
	assert.Equal(t, "google.com", f.identity.lastProvider)
	assert.Len(t, f.profiles.saved, 1)
}

func TestSignIn_MirrorFailureFails(t *testing.T) {
	f := newFixture()
	f.profiles.err = errors.New("firestore down")

	_, err := f.svc.SignInWithEmail(context.Background(), "ada@example.com", "pw")
	require.Error(t, err)
	assert.Empty(t, f.sessions.created)
}

func TestSignIn_PresenceFailureIsIgnored(t *testing.T) {
	f := newFixture()
	f.presence.err = errors.New("rtdb down")

	_, err := f.svc.SignInWithEmail(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
}

func TestRegisterWithEmail(t *testing.T) {
	f := newFixture()

	sess, err := f.svc.RegisterWithEmail(context.Background(), "ada@example.com", "pw", "Ada")
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, []string{"signup"}, f.identity.calls)
	assert.Equal(t, []string{"u1"}, f.admin.updates)
	assert.Len(t, f.profiles.saved, 1)
	assert.Equal(t, []string{"id-1"}, f.identity.verifyTokens)
}

func TestRegisterWithEmail_MissingUser(t *testing.T) {
	f := newFixture()
	f.identity.cred = &domain.Credential{}

	_, err := f.svc.RegisterWithEmail(context.Background(), "ada@example.com", "pw", "Ada")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.EqualError(t, err, "user not found")
	assert.Empty(t, f.admin.updates)
}

func TestRegisterWithEmail_VerificationFailure(t *testing.T) {
	f := newFixture()
	f.identity.verifyErr = errors.New("quota exceeded")

	_, err := f.svc.RegisterWithEmail(context.Background(), "ada@example.com", "pw", "Ada")
	require.Error(t, err)
	// the profile was already mirrored
	assert.Len(t, f.profiles.saved, 1)
	assert.Empty(t, f.sessions.created)
}

func TestLogOut(t *testing.T) {
	f := newFixture()

	err := f.svc.LogOut(context.Background(), &domain.CurrentUser{UID: "u1"}, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, f.sessions.deleted)
	assert.Equal(t, []string{"u1"}, f.admin.revoked)
	assert.Equal(t, []string{"u1"}, f.sessions.deletedFor)
	assert.Equal(t, "offline", f.presence.states["u1"])
}

func TestLogOut_Anonymous(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.LogOut(context.Background(), nil, ""))
	assert.Empty(t, f.admin.revoked)
	assert.Empty(t, f.sessions.deleted)
}

func TestSendPasswordReset(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.SendPasswordReset(context.Background(), "ada@example.com"))
	assert.Equal(t, []string{"ada@example.com"}, f.identity.resetEmails)
}

func TestSendEmailVerificationToUser(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.SendEmailVerificationToUser(context.Background(), nil))
	assert.Empty(t, f.identity.verifyTokens)

	require.NoError(t, f.svc.SendEmailVerificationToUser(context.Background(), &domain.CurrentUser{UID: "u1", IDToken: "id-9"}))
	assert.Equal(t, []string{"id-9"}, f.identity.verifyTokens)
}

func TestUpdateUserProfile(t *testing.T) {
	f := newFixture()
	name := "Ada L."

	require.NoError(t, f.svc.UpdateUserProfile(context.Background(), nil, domain.ProfileUpdate{DisplayName: &name}))
	assert.Empty(t, f.admin.updates)

	require.NoError(t, f.svc.UpdateUserProfile(context.Background(), &domain.CurrentUser{UID: "u1"}, domain.ProfileUpdate{DisplayName: &name}))
	assert.Equal(t, []string{"u1"}, f.admin.updates)
	assert.Len(t, f.profiles.saved, 1)
}

func TestUpdateUserProfile_EmptyUpdateStillMirrors(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.UpdateUserProfile(context.Background(), &domain.CurrentUser{UID: "u1"}, domain.ProfileUpdate{}))
	assert.Empty(t, f.admin.updates)
	assert.Len(t, f.profiles.saved, 1)
}

func TestUpdateUserPassword(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.UpdateUserPassword(context.Background(), nil, "new-pw"))
	assert.Empty(t, f.admin.updates)

	require.NoError(t, f.svc.UpdateUserPassword(context.Background(), &domain.CurrentUser{UID: "u1"}, "new-pw"))
	assert.Equal(t, []string{"u1"}, f.admin.updates)
	assert.Empty(t, f.profiles.saved)

	f.admin.updateErr = errors.New("WEAK_PASSWORD")
	require.Error(t, f.svc.UpdateUserPassword(context.Background(), &domain.CurrentUser{UID: "u1"}, "x"))
}

func TestGetProfile(t *testing.T) {
	f := newFixture()

	p, err := f.svc.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.False(t, p.IsAnonymous)
}

func TestSignIn_RecordsIDTokenExpiry(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	_, err := f.svc.SignInWithEmail(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.Len(t, f.sessions.created, 1)
	assert.Equal(t, now.Add(time.Hour), f.sessions.created[0].IDTokenExpiresAt)
}

func TestRefreshSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("keeps a valid token", func(t *testing.T) {
		f := newFixture()
		f.svc.now = func() time.Time { return now }
		sess := &domain.Session{SessionID: "s1", UID: "u1", IDToken: "id-1", IDTokenExpiresAt: now.Add(30 * time.Minute)}

		got, err := f.svc.RefreshSession(context.Background(), sess)
		require.NoError(t, err)
		assert.Same(t, sess, got)
		assert.Empty(t, f.identity.customTokens)
	})

	t.Run("replaces an expired token", func(t *testing.T) {
		f := newFixture()
		f.svc.now = func() time.Time { return now }
		sess := &domain.Session{SessionID: "s1", UID: "u1", IDToken: "id-1", IDTokenExpiresAt: now.Add(-time.Minute)}

		got, err := f.svc.RefreshSession(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, "id-2", got.IDToken)
		assert.Equal(t, "rt-2", got.RefreshToken)
		assert.Equal(t, now.Add(time.Hour), got.IDTokenExpiresAt)
		assert.Equal(t, []string{"custom-u1"}, f.identity.customTokens)
		assert.Equal(t, []string{"s1=id-2"}, f.sessions.updated)
		assert.Equal(t, "id-1", sess.IDToken)
	})

	t.Run("provider rejection is returned", func(t *testing.T) {
		f := newFixture()
		f.svc.now = func() time.Time { return now }
		f.identity.err = errors.New("USER_DISABLED")

		_, err := f.svc.RefreshSession(context.Background(), &domain.Session{SessionID: "s1", UID: "u1"})
		require.Error(t, err)
		assert.Empty(t, f.sessions.updated)
	})
}

func TestRefreshSession_RedisStorePastTokenExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	f := newFixture()
	store := session.NewRedisStore(rdb, 14*24*time.Hour)
	svc := NewAuthService(f.identity, f.admin, f.profiles, store, f.presence, nil)
	now := time.Now()
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	sess, err := svc.SignInWithEmail(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	// three hours later the session is alive but its one-hour token is not
	mr.FastForward(3 * time.Hour)
	now = now.Add(3 * time.Hour)

	stored, err := store.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "id-1", stored.IDToken)

	fresh, err := svc.RefreshSession(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "id-2", fresh.IDToken)

	stored, err = store.Get(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "id-2", stored.IDToken)
	assert.Equal(t, "rt-2", stored.RefreshToken)
	assert.False(t, stored.IDTokenExpired(now, refreshSkew))
}
