// Package oauth talks to Google's OAuth 2.0 token and userinfo endpoints.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"
)

// ErrUpstream marks any failure caused by Google: transport errors, non-2xx
// responses or undecodable bodies.
var ErrUpstream = errors.New("oauth provider error")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// overridable for tests
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	HTTPClient  *http.Client
}

// Tokens is the part of the token response the login flow needs.
type Tokens struct {
	AccessToken string
	IDToken     string
}

type Profile struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type GoogleClient struct {
	cfg         oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewGoogleClient(cfg Config) *GoogleClient {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleClient{
		cfg: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// credentials travel in the form body, not basic auth
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  cfg.HTTPClient,
	}
}

// AuthCodeURL builds the consent screen URL. state is echoed back to the
// callback and later used as the post-login redirect path.
func (c *GoogleClient) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens.
func (c *GoogleClient) ExchangeCode(ctx context.Context, code string) (Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: token exchange: %v", ErrUpstream, err)
	}

	idToken, _ := tok.Extra("id_token").(string)

	return Tokens{AccessToken: tok.AccessToken, IDToken: idToken}, nil
}

// FetchProfile reads the user's profile with the access token as a query
// parameter and the id token as bearer credentials.
func (c *GoogleClient) FetchProfile(ctx context.Context, tokens Tokens) (Profile, error) {
	u, err := url.Parse(c.userInfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: userinfo url: %v", ErrUpstream, err)
	}
	q := u.Query()
	q.Set("alt", "json")
	q.Set("access_token", tokens.AccessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: userinfo request: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+tokens.IDToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: userinfo request: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: read userinfo: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Profile{}, fmt.Errorf("%w: userinfo status %d", ErrUpstream, resp.StatusCode)
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: decode userinfo: %v", ErrUpstream, err)
	}

	if strings.TrimSpace(p.Email) == "" {
		return Profile{}, fmt.Errorf("%w: userinfo without email", ErrUpstream)
	}

	return p, nil
}
