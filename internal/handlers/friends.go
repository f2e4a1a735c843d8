package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/response"
)

type FriendHandler struct {
	friendships *services.FriendshipService
}

type friendRequestBody struct {
	UserID string `json:"user_id" validate:"required"`
}

func NewFriendHandler(friendships *services.FriendshipService) (*FriendHandler, error) {
	if friendships == nil {
		return nil, fmt.Errorf("friend handler: friendship service is required")
	}
	return &FriendHandler{friendships: friendships}, nil
}

// GET /api/me/friends
func (h *FriendHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page := pageQuery(c)
	friends, err := h.friendships.ListFriends(requestContext(c), userID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, friends, pageMeta(page, len(friends)))
}

// GET /api/me/friends/requests
func (h *FriendHandler) Requests(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	requests, err := h.friendships.ListPendingRequests(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, requests)
}

// POST /api/me/friends/requests
func (h *FriendHandler) Send(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body friendRequestBody
	if !bindAndValidate(c, &body) {
		return
	}

	friendship, err := h.friendships.SendRequest(requestContext(c), userID, body.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, friendship)
}

// POST /api/me/friends/requests/:id/accept
func (h *FriendHandler) Accept(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	friendship, err := h.friendships.AcceptRequest(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, friendship)
}

// POST /api/me/friends/requests/:id/decline
func (h *FriendHandler) Decline(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.friendships.DeclineRequest(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// DELETE /api/me/friends/:userID
func (h *FriendHandler) Remove(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.friendships.RemoveFriend(requestContext(c), userID, c.Param("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
