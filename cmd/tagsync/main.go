package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/tagforge/tagsync/cmd/tagsync/container"
	"github.com/tagforge/tagsync/cmd/tagsync/handlers"
	"github.com/tagforge/tagsync/cmd/tagsync/repository"
	"github.com/tagforge/tagsync/cmd/tagsync/routes"
	"github.com/tagforge/tagsync/common/bootstrap"
	"github.com/tagforge/tagsync/common/db"
	"github.com/tagforge/tagsync/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (DB, logger, telemetry), creating the
	// schema before the server starts serving
	components, err := bootstrap.Setup(ctx, "tagsync",
		bootstrap.WithDBInitHook(func(d *db.DB) error {
			return repository.EnsureSchema(ctx, d)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap tagsync: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e)

	// Register all routes
	registerRoutes(e, serviceContainer, components)

	// Relay broadcasts published by sibling instances
	bridgeCtx, cancelBridge := context.WithCancel(ctx)
	go serviceContainer.Bridge.Run(bridgeCtx)

	// Start server (blocks until shutdown signal)
	startServer(e, serviceContainer, components)

	cancelBridge()
	serviceContainer.Hub.Close()
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, sc *container.Container, components *bootstrap.Components) {
	tagHandler := handlers.NewTagHandler(sc.TagService, sc.ImportService)
	routes.RegisterTagRoutes(e, tagHandler, sc.Tokens)
	routes.RegisterWSRoutes(e, sc.Engine, components)
}

// startServer starts the HTTP server and blocks until shutdown.
// WebSocket connections are long-lived, so the server carries no
// per-request read/write timeouts.
func startServer(e *echo.Echo, sc *container.Container, components *bootstrap.Components) {
	srv := server.New("tagsync", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		sc.Hub.Close()
		os.Exit(1)
	}
}
