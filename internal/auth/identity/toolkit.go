package identity

import (
	"context"
	"fmt"
	"net/url"
	"time"

	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/firekit-dev/firekit/internal/auth/domain"
)

const (
	requestTypePasswordReset = "PASSWORD_RESET"
	requestTypeVerifyEmail   = "VERIFY_EMAIL"
)

// Toolkit signs users in through the Identity Toolkit REST API, the same
// endpoints the web SDK calls.
type Toolkit struct {
	rp *identitytoolkit.RelyingpartyService
}

// NewToolkit creates a client authenticated with the project's web API key.
// Extra options (endpoint, HTTP client) are appended after the key.
func NewToolkit(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Toolkit, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("FIREBASE_API_KEY is required")
	}
	svc, err := identitytoolkit.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return &Toolkit{rp: svc.Relyingparty}, nil
}

// SignInWithPassword exchanges an email and password for a token pair.
func (t *Toolkit) SignInWithPassword(ctx context.Context, email, password string) (*domain.Credential, error) {
	resp, err := t.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	return credential(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// SignUp creates an email/password account and signs it in.
func (t *Toolkit) SignUp(ctx context.Context, email, password string) (*domain.Credential, error) {
	resp, err := t.rp.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("signup new user: %w", err)
	}
	return credential(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// SignInWithIDP signs in with a credential issued by a federated provider,
// e.g. a Google id_token for providerID "google.com".
func (t *Toolkit) SignInWithIDP(ctx context.Context, providerID, idToken, requestURI string) (*domain.Credential, error) {
	body := url.Values{}
	body.Set("id_token", idToken)
	body.Set("providerId", providerID)

	resp, err := t.rp.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("verify assertion: %w", err)
	}
	return credential(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// SignInWithCustomToken exchanges an Admin SDK custom token for a fresh token pair.
func (t *Toolkit) SignInWithCustomToken(ctx context.Context, customToken string) (*domain.Credential, error) {
	resp, err := t.rp.VerifyCustomToken(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyCustomTokenRequest{
		Token:             customToken,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("verify custom token: %w", err)
	}
	return credential("", "", resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// SendPasswordResetEmail asks the provider to mail a reset link to email.
func (t *Toolkit) SendPasswordResetEmail(ctx context.Context, email string) error {
	_, err := t.rp.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: requestTypePasswordReset,
		Email:       email,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

// SendEmailVerification asks the provider to mail a verification link to the
// owner of idToken.
func (t *Toolkit) SendEmailVerification(ctx context.Context, idToken string) error {
	_, err := t.rp.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: requestTypeVerifyEmail,
		IdToken:     idToken,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("send email verification: %w", err)
	}
	return nil
}

func credential(uid, email, idToken, refreshToken string, expiresIn int64) *domain.Credential {
	return &domain.Credential{
		UID:          uid,
		Email:        email,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresIn:    time.Duration(expiresIn) * time.Second,
	}
}
