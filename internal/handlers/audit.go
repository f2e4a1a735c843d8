package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) (*AuditHandler, error) {
	if svc == nil {
		return nil, fmt.Errorf("audit handler: audit service is required")
	}
	return &AuditHandler{svc: svc}, nil
}

// GET /api/me/activity
func (h *AuditHandler) Activity(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filters := services.AuditFilters{
		UserID:   userID,
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
	}
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.Error(c, errors.NewBadRequest("since must be an RFC3339 timestamp"))
			return
		}
		filters.Since = &t
	}

	page := pageQuery(c)
	logs, total, err := h.svc.List(requestContext(c), filters, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := pageMeta(page, len(logs))
	meta.Total = total
	response.SuccessWithMeta(c, http.StatusOK, logs, meta)
}
