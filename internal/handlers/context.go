package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/comunitree/internal/middleware"
	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// viewerID returns the authenticated caller, or an empty string for anonymous requests.
func viewerID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// requireUserID returns the authenticated caller, writing a 401 when the request is anonymous.
func requireUserID(c *gin.Context) (string, bool) {
	userID := viewerID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// pageQuery reads limit/offset query parameters. Bounds are enforced by the services.
func pageQuery(c *gin.Context) services.Page {
	return services.Page{
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	}
}

func pageMeta(page services.Page, count int) *response.Meta {
	return &response.Meta{Limit: page.Limit, Offset: page.Offset, Count: count}
}
