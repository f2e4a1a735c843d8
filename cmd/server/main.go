package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/comunitree/internal/app"
	"github.com/charlesng35/comunitree/internal/security"
	"github.com/charlesng35/comunitree/pkg/logger"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
)

// errAuditFailed makes -audit exit non-zero when a check fails.
var errAuditFailed = errors.New("configuration audit reported failures")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errAuditFailed):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("comunitree-server", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "", "configuration file or directory")
	auditOnly := fs.Bool("audit", false, "print the configuration audit as JSON and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(*configPath)
	if err != nil {
		return err
	}
	filled, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return err
	}
	report := security.Audit(cfg, filled, time.Now())

	if *auditOnly {
		return writeAudit(stdout, report)
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")
	for key := range filled {
		log.Info("applied runtime default", zap.String("key", key))
	}
	logSecurityFindings(report, logger.WithModule("security"))

	stack, err := bootstrapRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stack.Shutdown(log)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return serve(ctx, listener, stack.Router, log)
}

// serve runs handler on listener until ctx is cancelled or the server fails, then drains open
// requests for up to shutdownTimeout.
func serve(ctx context.Context, listener net.Listener, handler http.Handler, log *zap.Logger) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	failed := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", listener.Addr().String()))
		failed <- server.Serve(listener)
	}()

	select {
	case err := <-failed:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-failed; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadApplicationConfig accepts a directory to search or a config file, whose directory is then
// searched.
func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	case err != nil:
		return nil, fmt.Errorf("stat config path: %w", err)
	case info.IsDir():
		return app.LoadConfig(path)
	default:
		return app.LoadConfig(filepath.Dir(path))
	}
}

func writeAudit(w io.Writer, report security.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	if report.Summary[string(security.StatusFail)] > 0 {
		return errAuditFailed
	}
	return nil
}

func logSecurityFindings(result security.Result, log *zap.Logger) {
	for _, finding := range result.Findings() {
		log.Warn(finding.Message,
			zap.String("check", finding.ID),
			zap.String("status", string(finding.Status)),
			zap.String("remediation", finding.Remediation),
		)
	}
}
