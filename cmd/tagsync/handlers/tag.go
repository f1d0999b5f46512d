package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tagforge/tagsync/cmd/tagsync/middleware"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/cmd/tagsync/service"
)

// TagHandler handles tag CRUD, import and export requests
type TagHandler struct {
	tags    *service.TagService
	imports *service.ImportService
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tags *service.TagService, imports *service.ImportService) *TagHandler {
	return &TagHandler{
		tags:    tags,
		imports: imports,
	}
}

// ListTags lists all tags of a project
// GET /api/v1/projects/:projectId/tags
func (h *TagHandler) ListTags(c echo.Context) error {
	userID := middleware.GetUserID(c)
	projectID := c.Param("projectId")

	tags, err := h.tags.List(c.Request().Context(), userID, projectID)
	if err != nil {
		return errorResponse(c, err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tags": tags,
	})
}

// ImportTags imports a vendor tag file into a project
// POST /api/v1/projects/:projectId/tags/import?vendor=rockwell
func (h *TagHandler) ImportTags(c echo.Context) error {
	userID := middleware.GetUserID(c)
	projectID := c.Param("projectId")

	vendor, err := models.ParseVendor(c.QueryParam("vendor"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "failed to read request body",
		})
	}
	if len(data) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "empty file",
		})
	}

	mimeHint := c.Request().Header.Get(echo.HeaderContentType)

	result, err := h.imports.Import(c.Request().Context(), vendor, projectID, userID, data, mimeHint)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ExportTags downloads the project's tags as a vendor file
// GET /api/v1/projects/:projectId/tags/export?format=csv
func (h *TagHandler) ExportTags(c echo.Context) error {
	userID := middleware.GetUserID(c)
	projectID := c.Param("projectId")
	format := c.QueryParam("format")

	data, contentType, err := h.tags.Export(c.Request().Context(), userID, projectID, format)
	if err != nil {
		return errorResponse(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "tags."+exportExtension(format)))
	return c.Blob(http.StatusOK, contentType, data)
}

// PatchTag applies a JSON merge patch to one tag
// PATCH /api/v1/projects/:projectId/tags/:name
func (h *TagHandler) PatchTag(c echo.Context) error {
	userID := middleware.GetUserID(c)
	projectID := c.Param("projectId")
	name := c.Param("name")

	patch, err := io.ReadAll(c.Request().Body)
	if err != nil || len(patch) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "missing patch body",
		})
	}

	tag, err := h.tags.Patch(c.Request().Context(), userID, projectID, name, patch)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, tag)
}

// DeleteTag removes one tag
// DELETE /api/v1/projects/:projectId/tags/:name
func (h *TagHandler) DeleteTag(c echo.Context) error {
	userID := middleware.GetUserID(c)
	projectID := c.Param("projectId")
	name := c.Param("name")

	if err := h.tags.Delete(c.Request().Context(), userID, projectID, name); err != nil {
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// errorResponse maps domain errors onto HTTP responses
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrAccessDenied):
		return c.JSON(http.StatusForbidden, map[string]interface{}{
			"error": "access denied",
		})
	case errors.Is(err, models.ErrTagNotFound), errors.Is(err, models.ErrProjectNotFound):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, models.ErrDuplicateTagName):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, models.ErrParse):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": err.Error(),
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "internal error",
		})
	}
}

func exportExtension(format string) string {
	switch format {
	case "xml":
		return "xml"
	case "xlsx":
		return "xlsx"
	default:
		return "csv"
	}
}
