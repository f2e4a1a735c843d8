package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	apperrors "github.com/charlesng35/comunitree/pkg/errors"
	"github.com/charlesng35/comunitree/pkg/metrics"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// Page carries offset pagination for list operations.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalise() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func normaliseIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// profileJSON converts an opaque client document into a column value. Empty input and a JSON null
// both clear the column.
func profileJSON(raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, apperrors.NewBadRequest("profile_data must be valid JSON")
	}
	return datatypes.JSON(trimmed), nil
}

func stringPtr(value string) *string {
	return &value
}

// track records the outcome of a workflow mutation. Use with a named error result:
// defer track("community.join", &err).
func track(operation string, errp *error) {
	metrics.RecordOperation(operation, *errp)
}

// serviceError passes domain failures through unchanged and wraps infrastructure errors with op.
func serviceError(op string, err error) error {
	if err == nil || apperrors.CodeOf(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
