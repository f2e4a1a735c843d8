package checks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/monitoring"
)

const pingTimeout = 2 * time.Second

// Database pings the connection pool. When every pooled connection is already checked out the
// probe reports degraded instead of queueing behind them.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = pingTimeout
	}
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		pool, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		name := db.Dialector.Name()
		if stats := pool.Stats(); stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  fmt.Sprintf("%s: pool exhausted (%d/%d in use)", name, stats.InUse, stats.MaxOpenConnections),
				Duration: time.Since(start),
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := pool.PingContext(pingCtx); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		stats := pool.Stats()
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  fmt.Sprintf("%s: %d open, %d in use", name, stats.OpenConnections, stats.InUse),
			Duration: time.Since(start),
		}
	})
}
