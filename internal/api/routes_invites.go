package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/handlers"
)

func registerInviteRoutes(api *gin.RouterGroup, handler *handlers.InviteHandler, requireAuth gin.HandlerFunc) {
	invites := api.Group("/invites", requireAuth)
	{
		invites.GET("", handler.List)
		invites.POST("/:id/accept", handler.Accept)
		invites.POST("/:id/decline", handler.Decline)
	}
}
