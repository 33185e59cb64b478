package google

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// ProviderID is the Firebase provider id of Google accounts.
const ProviderID = "google.com"

// Provider runs the server side of the Google OAuth code flow. The id_token it
// returns is handed to the identity toolkit, which verifies it.
type Provider struct {
	oauthConfig *oauth2.Config
}

func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	return newWithEndpoint(clientID, clientSecret, redirectURL, googleoauth.Endpoint)
}

func newWithEndpoint(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "profile", "email"},
		},
	}, nil
}

// RedirectURL is also the requestUri sent with the assertion.
func (p *Provider) RedirectURL() string {
	return p.oauthConfig.RedirectURL
}

// AuthCodeURL builds the consent screen URL for state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades an authorization code for Google's id_token.
func (p *Provider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", errors.New("google did not return id_token")
	}
	return rawIDToken, nil
}
