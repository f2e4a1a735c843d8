package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/handlers"
)

func registerCommunityRoutes(api *gin.RouterGroup, handler *handlers.CommunityHandler, events *handlers.EventHandler, requireAuth, optionalAuth gin.HandlerFunc) {
	communities := api.Group("/communities")
	{
		communities.GET("", optionalAuth, handler.List)
		communities.GET("/:id", optionalAuth, handler.Get)
		communities.GET("/:id/members", optionalAuth, handler.Members)
		communities.GET("/:id/events", optionalAuth, events.ListForCommunity)
		communities.GET("/:id/local-status", requireAuth, handler.LocalStatus)
		communities.POST("", requireAuth, handler.Create)
		communities.PATCH("/:id", requireAuth, handler.Update)
		communities.POST("/:id/join", requireAuth, handler.Join)
		communities.POST("/:id/leave", requireAuth, handler.Leave)
		communities.POST("/:id/invites", requireAuth, handler.Invite)
		communities.DELETE("/:id/members/:userID", requireAuth, handler.RemoveMember)
	}
}
