package container

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tagforge/tagsync/cmd/tagsync/middleware"
	"github.com/tagforge/tagsync/cmd/tagsync/repository"
	"github.com/tagforge/tagsync/cmd/tagsync/service"
	"github.com/tagforge/tagsync/cmd/tagsync/stparse"
	"github.com/tagforge/tagsync/cmd/tagsync/ws"
	"github.com/tagforge/tagsync/common/bootstrap"
	rediscommon "github.com/tagforge/tagsync/common/redis"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	Redis      *rediscommon.Client

	// Repositories
	TagRepo     *repository.TagRepository
	ProjectRepo *repository.ProjectRepository

	// Services
	TagService    *service.TagService
	ImportService *service.ImportService
	SyncService   *service.SyncService

	// Real-time protocol
	Hub    *ws.Hub
	Engine *ws.Engine
	Bridge *ws.Bridge

	// Auth
	Tokens *middleware.TokenManager
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	// Create Redis client for cross-instance broadcast fan-out
	redisRaw := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisClient := rediscommon.NewClient(redisRaw, components.Logger)

	// Initialize repositories
	tagRepo := repository.NewTagRepository(components.DB)
	projectRepo := repository.NewProjectRepository(components.DB)

	// Initialize services (bottom-up: dependencies first)
	tagService := service.NewTagService(tagRepo, projectRepo, components.Logger)
	importService := service.NewImportService(tagRepo, projectRepo, components.Logger)
	syncService := service.NewSyncService(tagRepo, projectRepo, components.Logger)

	// Auth
	tokens := middleware.NewTokenManager(cfg.Auth)

	// Real-time protocol
	hub := ws.NewHub(components.Logger)
	engine := ws.NewEngine(ws.EngineConfig{
		Hub:              hub,
		Sync:             syncService,
		Tags:             tagRepo,
		Access:           projectRepo,
		Verifier:         tokens,
		Parse:            stparse.Parse,
		Publisher:        redisClient,
		BroadcastChannel: cfg.Sync.BroadcastChan,
		DefaultDebounce:  cfg.Sync.DefaultDebounce,
		MaxDebounce:      cfg.Sync.MaxDebounce,
		Logger:           components.Logger,
	})
	bridge := ws.NewBridge(hub, redisClient, cfg.Sync.BroadcastChan, engine.Origin(), components.Logger)

	container := &Container{
		Components:    components,
		Redis:         redisClient,
		TagRepo:       tagRepo,
		ProjectRepo:   projectRepo,
		TagService:    tagService,
		ImportService: importService,
		SyncService:   syncService,
		Hub:           hub,
		Engine:        engine,
		Bridge:        bridge,
		Tokens:        tokens,
	}

	if err := container.validate(); err != nil {
		return nil, err
	}

	return container, nil
}

func (c *Container) validate() error {
	if c.Components == nil || c.Components.DB == nil {
		return fmt.Errorf("container requires initialized database components")
	}
	return nil
}
