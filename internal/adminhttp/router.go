// Package adminhttp is the agent's one inbound HTTP surface: /healthz,
// /readyz, /metrics. Adapted from the teacher's internal/http/router.go,
// trimmed from the full CRUD job/schedule API (this agent has no
// human-facing API surface — see DESIGN.md) down to the admin routes,
// keeping the same middleware stack shape (recovery, request id, security
// headers, slog-gin request logging, metrics).
package adminhttp

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sloggin "github.com/samber/slog-gin"

	"github.com/kpopdotlink/fleetcron/internal/adminhttp/handler"
	"github.com/kpopdotlink/fleetcron/internal/adminhttp/middleware"
	"github.com/kpopdotlink/fleetcron/internal/health"
)

// NewRouter builds the admin gin engine.
func NewRouter(logger *slog.Logger, checker *health.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	h := handler.NewHealthHandler(checker)
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
