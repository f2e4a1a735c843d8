package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestRunAuditPrintsReport(t *testing.T) {
	dir := writeConfig(t, "auth:\n  jwt:\n    secret: "+strings.Repeat("k", 64)+"\n")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", dir, "-audit"}, &out))

	var report struct {
		Checks []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"checks"`
		Summary map[string]int `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Zero(t, report.Summary["fail"])

	statuses := map[string]string{}
	for _, check := range report.Checks {
		statuses[check.ID] = check.Status
	}
	require.Equal(t, "pass", statuses["jwt_secret_strength"])
	require.Equal(t, "pass", statuses["rate_limit"])
}

func TestRunAuditFailsOnWeakSecret(t *testing.T) {
	dir := writeConfig(t, "auth:\n  jwt:\n    secret: short\n")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-config", dir, "-audit"}, &out)
	require.ErrorIs(t, err, errAuditFailed)
	require.Contains(t, out.String(), "too short")
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-h"}, &out)
	require.ErrorIs(t, err, flag.ErrHelp)
	require.Contains(t, out.String(), "-audit")
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	done := make(chan error, 1)
	go func() { done <- serve(ctx, listener, handler, zaptest.NewLogger(t)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}
