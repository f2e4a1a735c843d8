package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/handlers"
)

func registerEventRoutes(api *gin.RouterGroup, handler *handlers.EventHandler, requireAuth, optionalAuth gin.HandlerFunc) {
	events := api.Group("/events")
	{
		events.POST("", requireAuth, handler.Create)
		events.GET("/:id", optionalAuth, handler.Get)
		events.PATCH("/:id", requireAuth, handler.Update)
		events.DELETE("/:id", requireAuth, handler.Delete)
		events.POST("/:id/rsvp", requireAuth, handler.RSVP)
		events.DELETE("/:id/rsvp", requireAuth, handler.RemoveRSVP)
		events.GET("/:id/rsvps", optionalAuth, handler.RSVPs)
		events.GET("/:id/my-rsvp", requireAuth, handler.MyRSVP)
		events.POST("/:id/rate", requireAuth, handler.Rate)
		events.GET("/:id/ratings", optionalAuth, handler.Ratings)
		events.GET("/:id/my-rating", requireAuth, handler.MyRating)
	}
}
