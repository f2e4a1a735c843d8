package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/handlers"
)

func registerMeRoutes(api *gin.RouterGroup, me *handlers.MeHandler, friends *handlers.FriendHandler, audit *handlers.AuditHandler, requireAuth gin.HandlerFunc) {
	group := api.Group("/me", requireAuth)
	{
		group.GET("/communities", me.Communities)
		group.GET("/friend-group", me.FriendGroup)
		group.GET("/locations", me.Locations)
		group.GET("/events", me.Events)
		group.GET("/ratings", me.Ratings)
		group.GET("/activity", audit.Activity)

		group.GET("/friends", friends.List)
		group.DELETE("/friends/:userID", friends.Remove)
		group.GET("/friends/requests", friends.Requests)
		group.POST("/friends/requests", friends.Send)
		group.POST("/friends/requests/:id/accept", friends.Accept)
		group.POST("/friends/requests/:id/decline", friends.Decline)
	}
}
