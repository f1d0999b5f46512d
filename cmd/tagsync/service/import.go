package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tagforge/tagsync/cmd/tagsync/codec"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/common/logger"
)

// ImportService drives a vendor codec over an uploaded file:
// parse, validate every row, persist only if the whole batch is clean.
type ImportService struct {
	tags     TagStore
	projects ProjectStore
	log      *logger.Logger
}

// NewImportService creates a new import service
func NewImportService(tags TagStore, projects ProjectStore, log *logger.Logger) *ImportService {
	return &ImportService{
		tags:     tags,
		projects: projects,
		log:      log,
	}
}

// Import runs one batch import. Validation is all-or-nothing: a single
// invalid row discards every candidate in the batch. The save phase is
// best-effort: a per-row persistence failure (e.g. a race on the
// unique-name constraint) is reported without aborting sibling rows.
func (s *ImportService) Import(ctx context.Context, vendor models.Vendor, projectID, userID string, data []byte, mimeHint string) (*models.ImportResult, error) {
	owned, err := s.projects.OwnedBy(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("ownership check failed: %w", err)
	}
	if !owned {
		return nil, fmt.Errorf("project %s: %w", projectID, models.ErrAccessDenied)
	}

	log := s.log.WithProjectID(projectID)
	c := codec.ForVendor(vendor)

	rows, err := c.Parse(data, mimeHint)
	if err != nil {
		// Malformed file structure aborts the whole import with a
		// single top-level error; no per-row detail is possible
		return nil, err
	}

	var rowErrors []models.RowError
	candidates := make([]*models.Tag, 0, len(rows))
	for _, row := range rows {
		tag, errs := c.ValidateAndMap(row, projectID, userID)
		if len(errs) > 0 {
			rowErrors = append(rowErrors, models.RowError{
				Row:    row.Index,
				Raw:    row.Raw,
				Errors: errs,
			})
			continue
		}
		candidates = append(candidates, tag)
	}

	if len(rowErrors) > 0 {
		log.Warn("import rejected",
			"vendor", vendor,
			"rows", len(rows),
			"invalid_rows", len(rowErrors),
		)
		return &models.ImportResult{Success: false, Inserted: 0, Errors: rowErrors}, nil
	}

	inserted := 0
	var saveErrors []models.RowError
	for i, tag := range candidates {
		if err := s.tags.Insert(ctx, tag); err != nil {
			reason := "failed to save tag"
			if errors.Is(err, models.ErrDuplicateTagName) {
				reason = "duplicate tag name"
			}
			saveErrors = append(saveErrors, models.RowError{
				Row:    rows[i].Index,
				Raw:    rows[i].Raw,
				Errors: []string{reason},
			})
			log.Warn("import row not saved",
				"tag", tag.Name,
				"error", err,
			)
			continue
		}
		inserted++
	}

	log.Info("import complete",
		"vendor", vendor,
		"inserted", inserted,
		"save_errors", len(saveErrors),
	)

	return &models.ImportResult{
		Success:  inserted > 0,
		Inserted: inserted,
		Errors:   saveErrors,
	}, nil
}
