package checks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/monitoring"
)

// Locations reports degraded when no active LOCATION community exists. Users can still sign up
// and use their friend group, but there is nothing to join and every local-status check fails.
func Locations(db *gorm.DB) monitoring.Check {
	return monitoring.NewCheck("locations", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		var count int64
		err := db.WithContext(ctx).Model(&models.Community{}).
			Where("type = ? AND is_active = ?", models.CommunityTypeLocation, true).
			Count(&count).Error
		if err != nil {
			return monitoring.ResultFromError("locations", err, time.Since(start))
		}
		if count == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "no active location communities; run with seed.locations enabled",
				Duration: time.Since(start),
			}
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  fmt.Sprintf("%d active locations", count),
			Duration: time.Since(start),
		}
	})
}
