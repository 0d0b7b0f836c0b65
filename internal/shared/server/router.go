package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"papermind-backend/internal/papers"
	"papermind-backend/internal/queries"
	"papermind-backend/internal/services/health"
	"papermind-backend/internal/shared/auth"
	"papermind-backend/internal/shared/config"
	"papermind-backend/internal/shared/metrics"
	"papermind-backend/internal/shared/server/middleware"
	"papermind-backend/internal/shared/server/respond"
	"papermind-backend/internal/users"
)

// RouterDeps carries the handlers and collaborators NewRouter wires.
type RouterDeps struct {
	Config        config.Config
	Verifier      auth.Verifier
	HealthHandler *health.Handler
	UserHandler   *users.Handler
	PaperHandler  *papers.Handler
	QueryHandler  *queries.Handler
	// Throttle overrides the quota enforcer built from Config.RateLimit.
	Throttle *middleware.Throttle
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	if deps.HealthHandler != nil {
		deps.HealthHandler.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublicRoutes(api.Group("/user"))
	}

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Verifier))
	if deps.Config.RateLimit.Enabled {
		throttle := deps.Throttle
		if throttle == nil {
			throttle = NewThrottle(deps.Config.RateLimit, time.Now)
		}
		authed.Use(throttle.Handler())
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(authed.Group("/user"))
	}
	if deps.PaperHandler != nil {
		deps.PaperHandler.RegisterRoutes(authed.Group("/paper"))
	}
	if deps.QueryHandler != nil {
		deps.QueryHandler.RegisterRoutes(authed.Group("/query"))
	}

	return r
}

// NewThrottle applies the configured quotas. Upload and ask hit the
// processing service and get their own allowance.
func NewThrottle(cfg config.RateLimitConfig, now func() time.Time) *middleware.Throttle {
	return middleware.NewThrottle(now).
		Quota(middleware.QuotaGeneral, middleware.Quota{PerSecond: cfg.DefaultRate, Burst: cfg.DefaultBurst}).
		Quota(middleware.QuotaUpload, middleware.Quota{PerSecond: cfg.UploadRate, Burst: cfg.UploadBurst}).
		Quota(middleware.QuotaAsk, middleware.Quota{PerSecond: cfg.AskRate, Burst: cfg.AskBurst}).
		Route(http.MethodPost, "/api/paper/upload", middleware.QuotaUpload).
		Route(http.MethodPost, "/api/query/ask", middleware.QuotaAsk)
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
