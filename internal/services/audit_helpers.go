package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/comunitree/pkg/logger"
)

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if entry.Result == "" {
		entry.Result = "success"
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("audit write failed",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}

func actor(userID string) *string {
	if userID == "" {
		return nil
	}
	return &userID
}
