package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrGoogleSignInDisabled = errors.New("google sign-in is not configured")
	ErrInvalidOAuthState    = errors.New("invalid oauth state")
	ErrEmptyProfileUpdate   = errors.New("profile update has no fields")
)
