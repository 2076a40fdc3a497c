package handlers

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/familytree/internal/apperr"
	"github.com/geocoder89/familytree/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	return ctx.GetHeader("X-Request-Id")
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondErr is the only place an error becomes an HTTP response. Client
// errors are reported as "fail", server and upstream errors as "error".
func RespondErr(ctx *gin.Context, err error) {
	e := apperr.From(err)
	status := statusFor(e.Kind)

	body := "fail"
	details := e.Details
	if status >= http.StatusInternalServerError {
		body = "error"
		if details == nil && e.Err != nil {
			details = gin.H{"reason": e.Err.Error()}
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "request_failed",
			"kind", e.Kind.String(),
			"code", e.Code,
			"err", e.Error(),
			"request_id", requestIDFrom(ctx),
		)
	}

	ctx.AbortWithStatusJSON(status, gin.H{
		"status": body,
		"error": APIError{
			Code:      e.Code,
			Message:   e.Message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondErr(ctx, apperr.Validation("invalid_request", message, details))
}
