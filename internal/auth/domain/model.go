package domain

import (
	"time"

	"firebase.google.com/go/v4/auth"
)

// UsersCollection is the Firestore collection holding mirrored profiles.
const UsersCollection = "users"

// ProviderInfo is one linked identity provider of a user.
type ProviderInfo struct {
	ProviderID  string `json:"providerId" firestore:"providerId"`
	UID         string `json:"uid" firestore:"uid"`
	DisplayName string `json:"displayName,omitempty" firestore:"displayName"`
	Email       string `json:"email,omitempty" firestore:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty" firestore:"phoneNumber"`
	PhotoURL    string `json:"photoURL,omitempty" firestore:"photoURL"`
}

// UserProfile is the denormalized copy of the auth user kept in users/{uid}.
// It is refreshed on sign-in, registration and profile update only.
type UserProfile struct {
	UID           string         `json:"uid" firestore:"uid"`
	Email         string         `json:"email,omitempty" firestore:"email"`
	EmailVerified bool           `json:"emailVerified" firestore:"emailVerified"`
	DisplayName   string         `json:"displayName,omitempty" firestore:"displayName"`
	PhotoURL      string         `json:"photoURL,omitempty" firestore:"photoURL"`
	IsAnonymous   bool           `json:"isAnonymous" firestore:"isAnonymous"`
	ProviderID    string         `json:"providerId" firestore:"providerId"`
	PhoneNumber   string         `json:"phoneNumber,omitempty" firestore:"phoneNumber"`
	ProviderData  []ProviderInfo `json:"providerData" firestore:"providerData"`
}

// ProfileFromRecord copies the mirrored subset of an auth user record.
func ProfileFromRecord(rec *auth.UserRecord) UserProfile {
	p := UserProfile{
		EmailVerified: rec.EmailVerified,
		ProviderData:  make([]ProviderInfo, 0, len(rec.ProviderUserInfo)),
	}
	if rec.UserInfo != nil {
		p.UID = rec.UID
		p.Email = rec.Email
		p.DisplayName = rec.DisplayName
		p.PhotoURL = rec.PhotoURL
		p.ProviderID = rec.ProviderID
		p.PhoneNumber = rec.PhoneNumber
	}
	for _, info := range rec.ProviderUserInfo {
		if info == nil {
			continue
		}
		p.ProviderData = append(p.ProviderData, ProviderInfo{
			ProviderID:  info.ProviderID,
			UID:         info.UID,
			DisplayName: info.DisplayName,
			Email:       info.Email,
			PhoneNumber: info.PhoneNumber,
			PhotoURL:    info.PhotoURL,
		})
	}
	// Anonymous accounts have no linked provider and no primary identifier.
	p.IsAnonymous = len(p.ProviderData) == 0 && p.Email == "" && p.PhoneNumber == ""
	return p
}

// Fields returns the record as a merge payload. Empty optional strings are
// written as null.
func (p UserProfile) Fields() map[string]interface{} {
	providers := make([]interface{}, 0, len(p.ProviderData))
	for _, info := range p.ProviderData {
		providers = append(providers, map[string]interface{}{
			"providerId":  info.ProviderID,
			"uid":         info.UID,
			"displayName": nullable(info.DisplayName),
			"email":       nullable(info.Email),
			"phoneNumber": nullable(info.PhoneNumber),
			"photoURL":    nullable(info.PhotoURL),
		})
	}

	return map[string]interface{}{
		"uid":           p.UID,
		"email":         nullable(p.Email),
		"emailVerified": p.EmailVerified,
		"displayName":   nullable(p.DisplayName),
		"photoURL":      nullable(p.PhotoURL),
		"isAnonymous":   p.IsAnonymous,
		"providerId":    p.ProviderID,
		"phoneNumber":   nullable(p.PhoneNumber),
		"providerData":  providers,
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ProfileUpdate carries the optional profile fields a user may change.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.PhotoURL == nil
}

// CurrentUser identifies the signed-in caller of an operation.
type CurrentUser struct {
	UID     string
	IDToken string
}

// Session is a signed-in user's token pair as issued by the auth provider.
// ExpiresAt ends the session; IDTokenExpiresAt only ends the current ID token,
// which is replaced while the session lives.
type Session struct {
	SessionID        string    `json:"session_id"`
	UID              string    `json:"uid"`
	IDToken          string    `json:"id_token"`
	RefreshToken     string    `json:"refresh_token"`
	IDTokenExpiresAt time.Time `json:"id_token_expires_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// IDTokenExpired reports whether the ID token is past, or within skew of, its expiry.
func (s *Session) IDTokenExpired(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(s.IDTokenExpiresAt)
}

// Credential is the result of a successful sign-in with the identity provider.
type Credential struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}
