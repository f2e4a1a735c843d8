package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/app"
	iauth "github.com/charlesng35/comunitree/internal/auth"
	"github.com/charlesng35/comunitree/internal/handlers"
	"github.com/charlesng35/comunitree/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers the community API routes.
// A nil rateStore disables rate limiting.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	svc, err := newServiceSet(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RequestActor())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.Server.HSTS))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	registerHealthRoutes(r, newHealthManager(db))
	registerMetricsRoutes(r, cfg)

	api := r.Group("/api")
	if limit := cfg.Server.RateLimit; limit.Enabled && rateStore != nil && limit.Requests > 0 {
		api.Use(middleware.RateLimit(rateStore, limit.Requests, limit.Window))
	}

	requireAuth := middleware.Auth(jwt)
	optionalAuth := middleware.OptionalAuth(jwt)

	authHandler, err := handlers.NewAuthHandler(svc.accounts, jwt)
	if err != nil {
		return nil, err
	}
	registerAuthRoutes(api, authHandler, requireAuth)

	communityHandler, err := handlers.NewCommunityHandler(svc.communities, svc.membership)
	if err != nil {
		return nil, err
	}
	eventHandler, err := handlers.NewEventHandler(svc.events)
	if err != nil {
		return nil, err
	}
	registerCommunityRoutes(api, communityHandler, eventHandler, requireAuth, optionalAuth)
	registerEventRoutes(api, eventHandler, requireAuth, optionalAuth)

	inviteHandler, err := handlers.NewInviteHandler(svc.membership)
	if err != nil {
		return nil, err
	}
	registerInviteRoutes(api, inviteHandler, requireAuth)

	meHandler, err := handlers.NewMeHandler(svc.communities, svc.events)
	if err != nil {
		return nil, err
	}
	friendHandler, err := handlers.NewFriendHandler(svc.friendships)
	if err != nil {
		return nil, err
	}
	auditHandler, err := handlers.NewAuditHandler(svc.audit)
	if err != nil {
		return nil, err
	}
	registerMeRoutes(api, meHandler, friendHandler, auditHandler, requireAuth)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
