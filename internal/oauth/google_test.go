package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "http://localhost:8000/api/sessions/oauth/google", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"id_token":     "idt-1",
			"token_type":   "Bearer",
			"expires_in":   3599,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(tokenURL, userInfoURL string) *GoogleClient {
	return NewGoogleClient(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8000/api/sessions/oauth/google",
		TokenURL:     tokenURL,
		UserInfoURL:  userInfoURL,
	})
}

func TestExchangeCode_Success(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK)
	c := newClient(srv.URL, "")

	tokens, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, Tokens{AccessToken: "at-1", IDToken: "idt-1"}, tokens)
}

func TestExchangeCode_ProviderRejects(t *testing.T) {
	srv := newTokenServer(t, http.StatusBadRequest)
	c := newClient(srv.URL, "")

	_, err := c.ExchangeCode(context.Background(), "the-code")
	assert.True(t, errors.Is(err, ErrUpstream), "got %v", err)
}

func TestExchangeCode_Unreachable(t *testing.T) {
	c := newClient("http://127.0.0.1:1/token", "")

	_, err := c.ExchangeCode(context.Background(), "the-code")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestFetchProfile_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "json", r.URL.Query().Get("alt"))
		assert.Equal(t, "at-1", r.URL.Query().Get("access_token"))
		assert.Equal(t, "Bearer idt-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"G@Gmail.com","verified_email":true,"name":"Goo Gle","picture":"https://x/p.png"}`))
	}))
	defer srv.Close()

	c := newClient("", srv.URL)

	p, err := c.FetchProfile(context.Background(), Tokens{AccessToken: "at-1", IDToken: "idt-1"})
	require.NoError(t, err)
	assert.Equal(t, Profile{Email: "G@Gmail.com", VerifiedEmail: true, Name: "Goo Gle", Picture: "https://x/p.png"}, p)
}

func TestFetchProfile_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "non 2xx", status: http.StatusUnauthorized, body: `{"error":"bad"}`},
		{name: "bad json", status: http.StatusOK, body: `{not json`},
		{name: "missing email", status: http.StatusOK, body: `{"name":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient("", srv.URL).FetchProfile(context.Background(), Tokens{AccessToken: "a", IDToken: "b"})
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestAuthCodeURL(t *testing.T) {
	c := newClient("", "")

	raw := c.AuthCodeURL("/profile")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "/profile", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}
