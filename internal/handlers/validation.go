package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/response"
	appValidator "github.com/charlesng35/comunitree/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and applies its validate tags. On failure it
// writes a BAD_REQUEST envelope, with per-field failures under error.details, and returns false.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationFailure(err))
		return false
	}
	return true
}

func validationFailure(err error) *appErrors.AppError {
	var failures appValidator.ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		return appErrors.NewBadRequest(failures.Error()).WithDetails(failures)
	}
	return appErrors.NewBadRequest("invalid request payload")
}

// parseIntQuery falls back when the parameter is missing or not an integer.
func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(raw); err == nil {
		return parsed
	}
	return fallback
}
