package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/response"
)

type CommunityHandler struct {
	communities *services.CommunityService
	membership  *services.MembershipService
}

type createCommunityRequest struct {
	Type        string          `json:"type" validate:"required,oneof=SUB PRIVATE"`
	Name        string          `json:"name" validate:"required,max=120"`
	Slug        string          `json:"slug" validate:"required,max=120,slug"`
	ParentID    string          `json:"parent_id" validate:"omitempty,uuid"`
	ParentIDs   []string        `json:"parent_ids" validate:"omitempty,dive,uuid"`
	Description string          `json:"description" validate:"omitempty,max=2000"`
	ProfileData json.RawMessage `json:"profile_data"`
}

type updateCommunityRequest struct {
	Name        *string         `json:"name" validate:"omitempty,max=120"`
	Slug        *string         `json:"slug" validate:"omitempty,max=120"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	ProfileData json.RawMessage `json:"profile_data"`
	ParentIDs   *[]string       `json:"parent_ids"`
}

type inviteRequest struct {
	UserID string `json:"user_id" validate:"omitempty,uuid"`
	Email  string `json:"email" validate:"omitempty,email"`
}

func NewCommunityHandler(communities *services.CommunityService, membership *services.MembershipService) (*CommunityHandler, error) {
	if communities == nil || membership == nil {
		return nil, fmt.Errorf("community handler: community and membership services are required")
	}
	return &CommunityHandler{communities: communities, membership: membership}, nil
}

// GET /api/communities
func (h *CommunityHandler) List(c *gin.Context) {
	communityType := models.CommunityType(strings.ToUpper(strings.TrimSpace(c.Query("type"))))
	if communityType != "" && !communityType.Valid() {
		response.Error(c, errors.NewBadRequest("type must be one of LOCATION, SUB, PRIVATE"))
		return
	}

	page := pageQuery(c)
	communities, err := h.communities.ListCommunities(requestContext(c), services.ListCommunitiesFilter{
		Type:     communityType,
		ParentID: strings.TrimSpace(c.Query("parent_id")),
		ViewerID: viewerID(c),
		Page:     page,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, communities, pageMeta(page, len(communities)))
}

// GET /api/communities/:id
func (h *CommunityHandler) Get(c *gin.Context) {
	community, err := h.lookup(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, community)
}

// GET /api/communities/:id/members
func (h *CommunityHandler) Members(c *gin.Context) {
	page := pageQuery(c)
	members, err := h.communities.ListMembers(requestContext(c), c.Param("id"), viewerID(c), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, members, pageMeta(page, len(members)))
}

// POST /api/communities
func (h *CommunityHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body createCommunityRequest
	if !bindAndValidate(c, &body) {
		return
	}

	var (
		community *services.CommunityView
		err       error
	)
	switch models.CommunityType(body.Type) {
	case models.CommunityTypeSub:
		if strings.TrimSpace(body.ParentID) == "" {
			response.Error(c, errors.NewBadRequest("parent_id is required for SUB communities"))
			return
		}
		community, err = h.communities.CreateSubCommunity(requestContext(c), userID, services.CreateSubCommunityInput{
			Name:        body.Name,
			Slug:        body.Slug,
			ParentID:    body.ParentID,
			Description: body.Description,
			ProfileData: body.ProfileData,
		})
	default:
		community, err = h.communities.CreatePrivateCommunity(requestContext(c), userID, services.CreatePrivateCommunityInput{
			Name:        body.Name,
			Slug:        body.Slug,
			Description: body.Description,
			ProfileData: body.ProfileData,
			ParentIDs:   body.ParentIDs,
		})
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, community)
}

// PATCH /api/communities/:id
func (h *CommunityHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body updateCommunityRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if body.Name == nil && body.Slug == nil && body.Description == nil && body.ProfileData == nil && body.ParentIDs == nil {
		response.Error(c, errors.NewBadRequest("no fields provided for update"))
		return
	}

	community, err := h.communities.UpdateCommunity(requestContext(c), c.Param("id"), userID, services.UpdateCommunityInput{
		Name:        body.Name,
		Slug:        body.Slug,
		Description: body.Description,
		ProfileData: body.ProfileData,
		ParentIDs:   body.ParentIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, community)
}

// POST /api/communities/:id/join
func (h *CommunityHandler) Join(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.membership.Join(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/communities/:id/leave
func (h *CommunityHandler) Leave(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.membership.Leave(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/communities/:id/invites
func (h *CommunityHandler) Invite(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body inviteRequest
	if !bindAndValidate(c, &body) {
		return
	}

	invite, err := h.membership.Invite(requestContext(c), c.Param("id"), userID, services.InviteTarget{
		UserID: body.UserID,
		Email:  body.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invite)
}

// DELETE /api/communities/:id/members/:userID
func (h *CommunityHandler) RemoveMember(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.membership.RemoveMember(requestContext(c), c.Param("id"), userID, c.Param("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GET /api/communities/:id/local-status
func (h *CommunityHandler) LocalStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status, err := h.communities.LocalStatus(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// lookup resolves the :id parameter as a community id, falling back to a slug.
func (h *CommunityHandler) lookup(c *gin.Context) (*services.CommunityView, error) {
	key := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(key); err == nil {
		return h.communities.GetByID(requestContext(c), key, viewerID(c), services.GetOptions{})
	}
	return h.communities.GetBySlug(requestContext(c), strings.ToLower(key), viewerID(c), services.GetOptions{})
}
