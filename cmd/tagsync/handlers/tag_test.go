package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

func TestErrorResponse_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("project p1: %w", models.ErrAccessDenied), http.StatusForbidden},
		{fmt.Errorf("tag x: %w", models.ErrTagNotFound), http.StatusNotFound},
		{fmt.Errorf("project p1: %w", models.ErrProjectNotFound), http.StatusNotFound},
		{fmt.Errorf("tag x: %w", models.ErrDuplicateTagName), http.StatusConflict},
		{fmt.Errorf("malformed CSV: %w", models.ErrParse), http.StatusUnprocessableEntity},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, errorResponse(c, tc.err))
		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestExportExtension(t *testing.T) {
	assert.Equal(t, "xml", exportExtension("xml"))
	assert.Equal(t, "xlsx", exportExtension("xlsx"))
	assert.Equal(t, "csv", exportExtension("csv"))
	assert.Equal(t, "csv", exportExtension(""))
}
