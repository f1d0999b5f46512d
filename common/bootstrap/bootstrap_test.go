package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagforge/tagsync/common/config"
	"github.com/tagforge/tagsync/common/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{
			Name:        "tagsync-test",
			Port:        8080,
			Environment: "test",
			LogLevel:    "error",
			LogFormat:   "json",
		},
		Sync: config.SyncConfig{
			DefaultDebounce: 500 * time.Millisecond,
			MaxDebounce:     10 * time.Second,
			BroadcastChan:   "tagsync:updates",
		},
	}
}

func TestSetup_WithoutExternalDependencies(t *testing.T) {
	components, err := Setup(context.Background(), "tagsync-test",
		WithCustomConfig(testConfig()),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	assert.Equal(t, "tagsync-test", components.Config.Service.Name)
	assert.NotNil(t, components.Logger)
	assert.Nil(t, components.DB)
	assert.Nil(t, components.Telemetry)
}

func TestSetup_CustomLoggerUsed(t *testing.T) {
	log := logger.New("error", "json")

	components, err := Setup(context.Background(), "tagsync-test",
		WithCustomConfig(testConfig()),
		WithCustomLogger(log),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	assert.Same(t, log, components.Logger)
}

func TestComponents_HealthAndShutdownWithoutDB(t *testing.T) {
	components, err := Setup(context.Background(), "tagsync-test",
		WithCustomConfig(testConfig()),
		WithoutDB(),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	assert.NoError(t, components.Health(context.Background()))
	assert.NoError(t, components.Shutdown(context.Background()))
}

func TestComponents_CleanupRunsInReverseOrder(t *testing.T) {
	components := &Components{Logger: logger.New("error", "json")}

	var order []string
	components.addCleanup(func() error {
		order = append(order, "first")
		return nil
	})
	components.addCleanup(func() error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, components.Shutdown(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)
}
