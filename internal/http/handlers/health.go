package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/geocoder89/familytree/internal/config"
	"github.com/gin-gonic/gin"
)

const healthMessage = "Family tree API with Google OAuth2 is up"

// Pinger is any backing store readiness can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pingers map[string]Pinger
}

func NewHealthHandler(pingers map[string]Pinger) *HealthHandler {
	return &HealthHandler{pingers: pingers}
}

// HealthChecker is the public liveness endpoint under /api.
func (h *HealthHandler) HealthChecker(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": healthMessage,
	})
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every dependency and reports each one.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.pingers))
	for name := range h.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(gin.H, len(names))
	ready := true

	for _, name := range names {
		if err := h.pingers[name].Ping(cctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
