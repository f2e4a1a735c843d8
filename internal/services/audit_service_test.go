package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/comunitree/internal/auditctx"
	"github.com/charlesng35/comunitree/internal/database/testutil"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "user-1"

	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID:   &userID,
		Action:   "community.join",
		Resource: "community-1",
		Result:   "success",
		Metadata: map[string]any{"joined": true},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Action:   "community.create",
		Resource: "community-2",
		Result:   "success",
	}))

	logs, total, err := svc.List(ctx, AuditFilters{UserID: userID}, Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	require.Equal(t, "community.join", logs[0].Action)
	require.NotNil(t, logs[0].UserID)
	require.Equal(t, userID, *logs[0].UserID)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &metadata))
	require.Equal(t, true, metadata["joined"])

	all, total, err := svc.List(ctx, AuditFilters{}, Page{Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, all, 1)

	since := time.Now().Add(time.Hour)
	none, total, err := svc.List(ctx, AuditFilters{Since: &since}, Page{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, none)
}

func TestAuditServiceValidatesEntry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "community.join"}))
}

func TestNewAuditServiceRequiresDB(t *testing.T) {
	_, err := NewAuditService(nil)
	require.Error(t, err)
}

func TestRecordAuditToleratesNilService(t *testing.T) {
	require.NotPanics(t, func() {
		recordAudit(nil, context.Background(), AuditEntry{Action: "noop"})
	})
}

func TestAuditServiceRecordsRequestProvenance(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		IPAddress: "198.51.100.4",
		UserAgent: "comunitree-tests",
	})
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "account.register", Result: "success"}))

	logs, _, err := svc.List(context.Background(), AuditFilters{Action: "account.register"}, Page{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "198.51.100.4", logs[0].IPAddress)
	require.Equal(t, "comunitree-tests", logs[0].UserAgent)
}
