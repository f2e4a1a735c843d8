package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/comunitree/internal/database"
	"github.com/charlesng35/comunitree/internal/database/testutil"
	"github.com/charlesng35/comunitree/internal/monitoring"
	"github.com/charlesng35/comunitree/internal/monitoring/checks"
)

func staticCheck(name string, status monitoring.ProbeStatus) monitoring.Check {
	return monitoring.NewCheck(name, func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: status}
	})
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(staticCheck("database", monitoring.StatusUp))
	manager.RegisterReadiness(staticCheck("locations", monitoring.StatusDegraded))

	report := manager.EvaluateReadiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "locations", report.Checks[1].Component)

	manager.RegisterReadiness(staticCheck("broken", monitoring.StatusDown))
	report = manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Empty(t, live.Checks)
}

func TestHealthManagerRecoversPanickingProbe(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("panics", func(context.Context) monitoring.ProbeResult {
		panic("boom")
	}))
	manager.RegisterReadiness(monitoring.NewCheck("", nil))
	manager.RegisterReadiness(monitoring.NewCheck("unimplemented", nil))

	report := manager.EvaluateReadiness(context.Background())
	require.Len(t, report.Checks, 2)
	require.Equal(t, monitoring.StatusDown, report.Checks[0].Status)
	require.Equal(t, "boom", report.Checks[0].Details)
	require.Equal(t, "unimplemented", report.Checks[1].Component)
}

func TestResultFromError(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError("db", errors.New("refused"), 0).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError("db", context.DeadlineExceeded, 0).Status)
	require.Zero(t, monitoring.ResultFromError("db", nil, -time.Second).Duration)
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	result := checks.Database(db, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "sqlite: 1 open")

	result = checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

func TestDatabaseCheckReportsExhaustedPool(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	pool, err := db.DB()
	require.NoError(t, err)

	conn, err := pool.Conn(context.Background())
	require.NoError(t, err)

	result := checks.Database(db, 50*time.Millisecond).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Equal(t, "sqlite: pool exhausted (1/1 in use)", result.Details)

	require.NoError(t, conn.Close())
	result = checks.Database(db, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
}

func TestLocationsCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	result := checks.Locations(db).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)

	require.NoError(t, database.SeedLocations(db, database.DefaultLocations))
	result = checks.Locations(db).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "3 active locations", result.Details)
}
