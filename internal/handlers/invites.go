package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/response"
)

type InviteHandler struct {
	membership *services.MembershipService
}

func NewInviteHandler(membership *services.MembershipService) (*InviteHandler, error) {
	if membership == nil {
		return nil, fmt.Errorf("invite handler: membership service is required")
	}
	return &InviteHandler{membership: membership}, nil
}

// GET /api/invites
func (h *InviteHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	invites, err := h.membership.PendingInvites(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invites)
}

// POST /api/invites/:id/accept
func (h *InviteHandler) Accept(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	community, err := h.membership.AcceptInvite(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, community)
}

// POST /api/invites/:id/decline
func (h *InviteHandler) Decline(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.membership.DeclineInvite(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
