package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/response"
)

type EventHandler struct {
	events *services.EventService
}

type createEventRequest struct {
	CommunityID        string                     `json:"community_id"`
	Title              string                     `json:"title" validate:"required,max=500"`
	Description        *string                    `json:"description"`
	EventDate          string                     `json:"event_date"`
	EventTime          *string                    `json:"event_time" validate:"omitempty,max=16"`
	BroadLocation      *string                    `json:"broad_location" validate:"omitempty,max=200"`
	SpecificLocation   *string                    `json:"specific_location" validate:"omitempty,max=300"`
	IsPublic           *bool                      `json:"is_public"`
	VisibilitySettings *models.VisibilitySettings `json:"visibility_settings"`
}

type updateEventRequest struct {
	Title              *string                    `json:"title" validate:"omitempty,max=500"`
	Description        *string                    `json:"description"`
	EventDate          *string                    `json:"event_date"`
	EventTime          *string                    `json:"event_time" validate:"omitempty,max=16"`
	BroadLocation      *string                    `json:"broad_location" validate:"omitempty,max=200"`
	SpecificLocation   *string                    `json:"specific_location" validate:"omitempty,max=300"`
	IsPublic           *bool                      `json:"is_public"`
	VisibilitySettings *models.VisibilitySettings `json:"visibility_settings"`
	IsActive           *bool                      `json:"is_active"`
}

type rateEventRequest struct {
	Rating int `json:"rating"`
}

func NewEventHandler(events *services.EventService) (*EventHandler, error) {
	if events == nil {
		return nil, fmt.Errorf("event handler: event service is required")
	}
	return &EventHandler{events: events}, nil
}

// POST /api/events
func (h *EventHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body createEventRequest
	if !bindAndValidate(c, &body) {
		return
	}

	event, err := h.events.CreateEvent(requestContext(c), userID, services.CreateEventInput{
		CommunityID:        strings.TrimSpace(body.CommunityID),
		Title:              body.Title,
		Description:        body.Description,
		EventDate:          body.EventDate,
		EventTime:          body.EventTime,
		BroadLocation:      body.BroadLocation,
		SpecificLocation:   body.SpecificLocation,
		IsPublic:           body.IsPublic,
		VisibilitySettings: body.VisibilitySettings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, event)
}

// GET /api/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.GetEvent(requestContext(c), c.Param("id"), viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// GET /api/communities/:id/events
func (h *EventHandler) ListForCommunity(c *gin.Context) {
	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}

	page := pageQuery(c)
	events, err := h.events.ListEventsForCommunity(requestContext(c), c.Param("id"), viewerID(c), services.EventListOptions{
		Page: page,
		From: from,
		To:   to,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, events, pageMeta(page, len(events)))
}

// PATCH /api/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body updateEventRequest
	if !bindAndValidate(c, &body) {
		return
	}

	event, err := h.events.UpdateEvent(requestContext(c), c.Param("id"), userID, services.UpdateEventInput{
		Title:              body.Title,
		Description:        body.Description,
		EventDate:          body.EventDate,
		EventTime:          body.EventTime,
		BroadLocation:      body.BroadLocation,
		SpecificLocation:   body.SpecificLocation,
		IsPublic:           body.IsPublic,
		VisibilitySettings: body.VisibilitySettings,
		IsActive:           body.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// DELETE /api/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.events.DeleteEvent(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/events/:id/rsvp
func (h *EventHandler) RSVP(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status, err := h.events.RSVP(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// DELETE /api/events/:id/rsvp
func (h *EventHandler) RemoveRSVP(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status, err := h.events.RemoveRSVP(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// GET /api/events/:id/rsvps
func (h *EventHandler) RSVPs(c *gin.Context) {
	listing, err := h.events.ListRSVPs(requestContext(c), c.Param("id"), viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}

// GET /api/events/:id/my-rsvp
func (h *EventHandler) MyRSVP(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status, err := h.events.MyRSVP(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// POST /api/events/:id/rate
func (h *EventHandler) Rate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var body rateEventRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.events.RateEvent(requestContext(c), c.Param("id"), userID, body.Rating)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GET /api/events/:id/ratings
func (h *EventHandler) Ratings(c *gin.Context) {
	summary, err := h.events.RatingAggregate(requestContext(c), c.Param("id"), viewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// GET /api/events/:id/my-rating
func (h *EventHandler) MyRating(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.events.MyRating(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter, writing a 400 when it is malformed.
func parseDateQuery(c *gin.Context, key string) (*time.Time, bool) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		response.Error(c, errors.NewBadRequest(fmt.Sprintf("%s must be a date in YYYY-MM-DD format", key)))
		return nil, false
	}
	return &parsed, true
}
