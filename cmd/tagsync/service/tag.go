package service

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/tagforge/tagsync/cmd/tagsync/codec"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/common/logger"
)

// TagService handles the user-facing tag operations around the core:
// listing, explicit edits, deletion and file export.
type TagService struct {
	tags     TagStore
	projects ProjectStore
	log      *logger.Logger
}

// NewTagService creates a new tag service
func NewTagService(tags TagStore, projects ProjectStore, log *logger.Logger) *TagService {
	return &TagService{
		tags:     tags,
		projects: projects,
		log:      log,
	}
}

// List returns all tags of a project the user owns
func (s *TagService) List(ctx context.Context, userID, projectID string) ([]models.Tag, error) {
	if err := s.requireOwnership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.tags.ListByProject(ctx, projectID)
}

// Patch applies a JSON merge patch to a tag's editable fields.
// Identity fields (id, projectId, vendor, createdAt) cannot be patched;
// a patched address must satisfy the vendor grammar.
func (s *TagService) Patch(ctx context.Context, userID, projectID, name string, patch []byte) (*models.Tag, error) {
	if err := s.requireOwnership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	existing, err := s.tags.GetByName(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("tag %q: %w", name, models.ErrTagNotFound)
	}

	original, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tag: %w", err)
	}

	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("invalid merge patch: %w", err)
	}

	var updated models.Tag
	if err := json.Unmarshal(merged, &updated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patched tag: %w", err)
	}

	// Restore immutable fields whatever the patch said
	updated.ID = existing.ID
	updated.ProjectID = existing.ProjectID
	updated.Vendor = existing.Vendor
	updated.CreatedAt = existing.CreatedAt
	updated.UserID = userID

	if updated.Name == "" {
		return nil, fmt.Errorf("tag name cannot be empty")
	}
	if updated.Address != "" && !codec.ValidAddress(updated.Vendor, updated.Address) {
		return nil, fmt.Errorf("invalid %s address: %q", updated.Vendor, updated.Address)
	}
	if updated.RawDataType != "" {
		updated.DataType = codec.CanonicalDataType(updated.Vendor, updated.RawDataType)
	} else if !updated.DataType.Valid() {
		return nil, fmt.Errorf("invalid data type: %q", updated.DataType)
	}
	if !updated.Scope.Valid() {
		return nil, fmt.Errorf("invalid scope: %q", updated.Scope)
	}
	if !updated.TagType.Valid() {
		return nil, fmt.Errorf("invalid tag type: %q", updated.TagType)
	}

	if err := s.tags.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.log.Info("tag patched", "project_id", projectID, "tag", updated.Name)
	return &updated, nil
}

// Delete removes one tag by name
func (s *TagService) Delete(ctx context.Context, userID, projectID, name string) error {
	if err := s.requireOwnership(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.tags.Delete(ctx, projectID, name); err != nil {
		return err
	}
	s.log.Info("tag deleted", "project_id", projectID, "tag", name)
	return nil
}

// Export serializes the project's tags in the requested format using
// the project's vendor codec. Returns the bytes and a content type.
func (s *TagService) Export(ctx context.Context, userID, projectID, format string) ([]byte, string, error) {
	if err := s.requireOwnership(ctx, projectID, userID); err != nil {
		return nil, "", err
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	tags, err := s.tags.ListByProject(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	data, err := codec.ForVendor(project.Vendor).Export(tags, format)
	if err != nil {
		return nil, "", err
	}

	return data, contentTypeFor(format), nil
}

func (s *TagService) requireOwnership(ctx context.Context, projectID, userID string) error {
	owned, err := s.projects.OwnedBy(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("ownership check failed: %w", err)
	}
	if !owned {
		return fmt.Errorf("project %s: %w", projectID, models.ErrAccessDenied)
	}
	return nil
}

func contentTypeFor(format string) string {
	switch format {
	case codec.FormatXML:
		return "application/xml"
	case codec.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}
