package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/familytree/internal/apperr"
	"github.com/geocoder89/familytree/internal/config"
	"github.com/geocoder89/familytree/internal/domain/user"
	"github.com/geocoder89/familytree/internal/oauth"
	"github.com/geocoder89/familytree/internal/observability"
	"github.com/geocoder89/familytree/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OAuthProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (oauth.Tokens, error)
	FetchProfile(ctx context.Context, tokens oauth.Tokens) (oauth.Profile, error)
}

type OAuthUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	UpdateOAuthProfile(ctx context.Context, id, email, photo string) (user.User, error)
	InsertOAuthUser(ctx context.Context, u user.User) (user.User, error)
}

type OAuthHandler struct {
	provider     OAuthProvider
	users        OAuthUserStore
	jwt          TokenIssuer
	cookies      cookieWriter
	clientOrigin string
	metrics      *observability.Prom
	now          func() time.Time
}

func NewOAuthHandler(provider OAuthProvider, users OAuthUserStore, jwtManager TokenIssuer, cfg config.Config, metrics *observability.Prom) *OAuthHandler {
	return &OAuthHandler{
		provider:     provider,
		users:        users,
		jwt:          jwtManager,
		cookies:      cookieWriter{secure: cfg.Env == "prod"},
		clientOrigin: strings.TrimRight(cfg.ClientOrigin, "/"),
		metrics:      metrics,
		now:          time.Now,
	}
}

// Start sends the browser to Google's consent screen.
func (h *OAuthHandler) Start(ctx *gin.Context) {
	state := safeRedirectPath(ctx.Query("state"))
	ctx.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback finishes a Google login: code for tokens, tokens for a profile,
// profile upserted by email, then a session cookie and a redirect back to
// the client.
func (h *OAuthHandler) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	if code == "" {
		h.metrics.ObserveLogin("google", "invalid")
		RespondErr(ctx, apperr.Unauthenticated("missing_code", "Authorization code not provided!"))
		return
	}

	// two upstream calls plus two store calls
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 15*time.Second)
	defer cancel()

	tokens, err := h.provider.ExchangeCode(cctx, code)
	if err != nil {
		h.metrics.ObserveLogin("google", "upstream_error")
		RespondErr(ctx, apperr.Upstream("An error occurred while trying to retrieve access token.", err))
		return
	}

	profile, err := h.provider.FetchProfile(cctx, tokens)
	if err != nil {
		h.metrics.ObserveLogin("google", "upstream_error")
		RespondErr(ctx, apperr.Upstream("An error occurred while trying to retrieve user information.", err))
		return
	}

	u, err := h.upsert(cctx, profile)
	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondErr(ctx, apperr.Conflict("email_taken", "User with that email already exists"))
			return
		}
		RespondErr(ctx, apperr.Internal("Could not save user", err))
		return
	}

	token, err := h.jwt.Issue(u.ID, h.now())
	if err != nil {
		RespondErr(ctx, apperr.Internal("Could not generate access token", err))
		return
	}

	h.cookies.setToken(ctx, token, h.jwt.TTL())
	h.metrics.ObserveLogin("google", "success")

	ctx.Redirect(http.StatusFound, h.clientOrigin+safeRedirectPath(ctx.Query("state")))
}

// upsert is lookup then write with no transaction around it; a concurrent
// first login for the same email loses on the unique index.
func (h *OAuthHandler) upsert(ctx context.Context, p oauth.Profile) (user.User, error) {
	email := user.NormalizeEmail(p.Email)

	existing, err := h.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return h.users.UpdateOAuthProfile(ctx, existing.ID, email, p.Picture)
	case errors.Is(err, postgres.ErrUserNotFound):
		return h.users.InsertOAuthUser(ctx, user.User{
			ID:       uuid.NewString(),
			Name:     p.Name,
			Email:    email,
			Photo:    p.Picture,
			Verified: p.VerifiedEmail,
			Provider: user.ProviderGoogle,
			Role:     user.RoleUser,
		})
	default:
		return user.User{}, err
	}
}

// safeRedirectPath keeps redirects on the client origin: only a path with a
// single leading slash is accepted.
func safeRedirectPath(state string) string {
	if !strings.HasPrefix(state, "/") || strings.HasPrefix(state, "//") || strings.HasPrefix(state, "/\\") {
		return "/"
	}
	if strings.ContainsAny(state, "\r\n") {
		return "/"
	}
	return state
}
