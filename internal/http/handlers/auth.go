package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/familytree/internal/apperr"
	"github.com/geocoder89/familytree/internal/config"
	"github.com/geocoder89/familytree/internal/domain/user"
	"github.com/geocoder89/familytree/internal/http/middlewares"
	"github.com/geocoder89/familytree/internal/observability"
	"github.com/geocoder89/familytree/internal/repo/postgres"
	"github.com/geocoder89/familytree/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UserWriter interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type TokenIssuer interface {
	Issue(subject string, now time.Time) (string, error)
	TTL() time.Duration
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        TokenIssuer
	cookies    cookieWriter
	metrics    *observability.Prom
	now        func() time.Time
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwtManager TokenIssuer, cfg config.Config, metrics *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwtManager,
		cookies:    cookieWriter{secure: cfg.Env == "prod"},
		metrics:    metrics,
		now:        time.Now,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	exists, err := h.userWriter.ExistsByEmail(cctx, req.Email)
	if err != nil {
		RespondErr(ctx, apperr.Internal("Could not create user", err))
		return
	}
	if exists {
		RespondErr(ctx, apperr.Conflict("email_taken", "User with that email already exists"))
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		// max=72 counts runes, multi-byte input can still exceed bcrypt's byte limit
		if errors.Is(err, security.ErrPasswordTooLong) {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "password",
				Rule:    "max_bytes",
				Param:   strconv.Itoa(security.MaxPasswordBytes),
				Message: "must be at most " + strconv.Itoa(security.MaxPasswordBytes) + " bytes",
			}}})
			return
		}
		RespondErr(ctx, apperr.Internal("Could not create user", err))
		return
	}

	u, err := h.userWriter.Create(cctx, user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		Photo:        user.DefaultPhoto,
		Provider:     user.ProviderLocal,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondErr(ctx, apperr.Conflict("email_taken", "User with that email already exists"))
			return
		}
		RespondErr(ctx, apperr.Internal("Could not create user", err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"user": user.ToView(u)},
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	invalid := apperr.Unauthenticated("invalid_credentials", "Invalid email or password")

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			h.metrics.ObserveLogin("local", "invalid")
			RespondErr(ctx, invalid)
			return
		}
		RespondErr(ctx, apperr.Internal("Could not log in", err))
		return
	}

	// federated status is only revealed to a caller who knows the password
	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		h.metrics.ObserveLogin("local", "invalid")
		RespondErr(ctx, invalid)
		return
	}

	if foundUser.IsFederated() {
		h.metrics.ObserveLogin("local", "federated")
		RespondErr(ctx, apperr.Unauthenticated("use_oauth", "Use Google OAuth2 instead"))
		return
	}

	token, err := h.jwt.Issue(foundUser.ID, h.now())
	if err != nil {
		RespondErr(ctx, apperr.Internal("Could not generate access token", err))
		return
	}

	h.cookies.setToken(ctx, token, h.jwt.TTL())
	h.metrics.ObserveLogin("local", "success")

	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"user":   user.ToView(foundUser),
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.cookies.clearToken(ctx)

	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Me returns the caller's row. A valid token for a row that no longer exists
// is a server error, not a 404.
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondErr(ctx, apperr.Unauthenticated("unauthorized", "You are not logged in, please provide token"))
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		RespondErr(ctx, apperr.Internal("Could not load user", err))
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"user":   user.ToView(u),
	})
}

type cookieWriter struct {
	secure bool
}

func (w cookieWriter) setToken(ctx *gin.Context, token string, ttl time.Duration) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.TokenCookie,
		token,
		int(ttl.Seconds()),
		"/",
		"",
		w.secure,
		true, // HttpOnly.
	)
}

func (w cookieWriter) clearToken(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.TokenCookie, "", -1, "/", "", w.secure, true)
}
