package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/api"
	"github.com/charlesng35/comunitree/internal/app"
	iauth "github.com/charlesng35/comunitree/internal/auth"
	"github.com/charlesng35/comunitree/internal/database"
	"github.com/charlesng35/comunitree/internal/middleware"
	"github.com/charlesng35/comunitree/pkg/logger"
)

// runtimeStack bundles long-lived resources used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime opens the database, applies migrations and builds the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := ensureSecretsPresent(cfg); err != nil {
		return nil, err
	}

	stack.DB, err = initialiseDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	if cfg.Server.RateLimit.Enabled {
		stack.RateStore = middleware.NewMemoryRateStore()
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.RateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases resources held by the stack.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}
	if err := s.close(); err != nil {
		log.Warn("runtime shutdown", zap.Error(err))
	}
}

func (s *runtimeStack) close() error {
	var err error
	if closer, ok := s.RateStore.(interface{ Close() error }); ok {
		err = multierr.Append(err, closer.Close())
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
		s.DB = nil
	}
	return err
}

func ensureSecretsPresent(cfg *app.Config) error {
	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return fmt.Errorf("auth.jwt.secret must be configured")
	}
	return nil
}

func initialiseDatabase(ctx context.Context, cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db.WithContext(ctx)); err != nil {
		return nil, multierr.Append(fmt.Errorf("auto-migrate database: %w", err), database.Close(db))
	}

	log := logger.WithModule("database")
	if cfg.Seed.Locations {
		if err := database.SeedLocations(db.WithContext(ctx), database.DefaultLocations); err != nil {
			return nil, multierr.Append(fmt.Errorf("seed locations: %w", err), database.Close(db))
		}
		log.Info("location communities seeded", zap.Int("count", len(database.DefaultLocations)))
	}

	log.Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:     strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:       strings.TrimSpace(cfg.Database.Path),
		DSN:        strings.TrimSpace(cfg.Database.DSN),
		LogQueries: cfg.Database.LogQueries,
	}

	var auth app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = cfg.Database.Postgres
	case "mysql":
		auth = cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = strings.TrimSpace(auth.Password)
	if len(auth.Options) > 0 {
		dbCfg.Options = make(map[string]string, len(auth.Options))
		for k, v := range auth.Options {
			dbCfg.Options[k] = v
		}
	}
	return dbCfg
}
