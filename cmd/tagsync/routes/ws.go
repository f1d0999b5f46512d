package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tagforge/tagsync/cmd/tagsync/ws"
	"github.com/tagforge/tagsync/common/bootstrap"
)

// RegisterWSRoutes registers the live-sync WebSocket endpoint and the
// health check. The WebSocket authenticates itself via the handshake
// token; it does not go through the Bearer middleware.
func RegisterWSRoutes(e *echo.Echo, engine *ws.Engine, components *bootstrap.Components) {
	e.GET("/ws", engine.HandleWebSocket) // GET /ws?token=...

	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
		})
	})
}
