package bootstrap

import (
	"context"
	"fmt"

	"github.com/tagforge/tagsync/common/config"
	"github.com/tagforge/tagsync/common/db"
	"github.com/tagforge/tagsync/common/logger"
	"github.com/tagforge/tagsync/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize database (if not skipped)
	if !options.skipDB {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})

		// Run DB init hook if provided
		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				components.Shutdown(ctx) // Cleanup what we've initialized
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && components.Config.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(
			components.Config.Telemetry.PprofPort,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}
	}

	components.Logger.Info("service components initialized")

	return components, nil
}
