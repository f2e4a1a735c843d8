package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/handlers"
	"github.com/charlesng35/comunitree/internal/monitoring"
	"github.com/charlesng35/comunitree/internal/monitoring/checks"
)

func newHealthManager(db *gorm.DB) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(checks.Database(db, 0))
	manager.RegisterReadiness(checks.Locations(db))
	return manager
}

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	for _, router := range []gin.IRouter{r, r.Group("/api")} {
		router.GET("/health", handlers.Health(manager))
		router.GET("/health/live", handlers.Liveness(manager))
		router.GET("/health/ready", handlers.Readiness(manager))
	}
}
