package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/tagforge/tagsync/cmd/tagsync/handlers"
	"github.com/tagforge/tagsync/cmd/tagsync/middleware"
)

// RegisterTagRoutes registers all tag-related routes
func RegisterTagRoutes(e *echo.Echo, h *handlers.TagHandler, auth *middleware.TokenManager) {
	projects := e.Group("/api/v1/projects", auth.RequireAuth())
	{
		projects.GET("/:projectId/tags", h.ListTags)            // GET    /api/v1/projects/p1/tags
		projects.POST("/:projectId/tags/import", h.ImportTags)  // POST   /api/v1/projects/p1/tags/import?vendor=rockwell
		projects.GET("/:projectId/tags/export", h.ExportTags)   // GET    /api/v1/projects/p1/tags/export?format=csv
		projects.PATCH("/:projectId/tags/:name", h.PatchTag)    // PATCH  /api/v1/projects/p1/tags/Motor1
		projects.DELETE("/:projectId/tags/:name", h.DeleteTag)  // DELETE /api/v1/projects/p1/tags/Motor1
	}
}
