package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/response"
)

// MeHandler serves the caller-scoped views of communities and events.
type MeHandler struct {
	communities *services.CommunityService
	events      *services.EventService
}

func NewMeHandler(communities *services.CommunityService, events *services.EventService) (*MeHandler, error) {
	if communities == nil || events == nil {
		return nil, fmt.Errorf("me handler: community and event services are required")
	}
	return &MeHandler{communities: communities, events: events}, nil
}

// GET /api/me/communities
func (h *MeHandler) Communities(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	communities, err := h.communities.ListMyCommunities(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, communities)
}

// GET /api/me/friend-group
func (h *MeHandler) FriendGroup(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	group, err := h.communities.FriendGroupForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, group)
}

// GET /api/me/locations
func (h *MeHandler) Locations(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ids, err := h.communities.LocalLocationIDs(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.Success(c, http.StatusOK, gin.H{"location_ids": ids})
}

// GET /api/me/events
func (h *MeHandler) Events(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page := pageQuery(c)
	events, err := h.events.ListAttendedEvents(requestContext(c), userID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, events, pageMeta(page, len(events)))
}

// GET /api/me/ratings
func (h *MeHandler) Ratings(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page := pageQuery(c)
	ratings, err := h.events.ListMyRatings(requestContext(c), userID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, ratings, pageMeta(page, len(ratings)))
}
