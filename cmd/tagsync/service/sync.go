package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tagforge/tagsync/cmd/tagsync/codec"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/cmd/tagsync/stparse"
	"github.com/tagforge/tagsync/common/logger"
)

// SyncService merges a freshly parsed tag set into the persisted set
// by name match within the project (upsert-by-name reconciliation).
type SyncService struct {
	tags     TagStore
	projects ProjectStore
	log      *logger.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(tags TagStore, projects ProjectStore, log *logger.Logger) *SyncService {
	return &SyncService{
		tags:     tags,
		projects: projects,
		log:      log,
	}
}

// Reconcile upserts the parsed tags and returns the project's full
// persisted tag list. The caller's ownership is verified first with a
// fresh query; failure aborts with no partial writes. Per-tag failures
// are logged and skipped: live typing produces transient garbage, and
// one bad declaration must not block the rest.
//
// Matching is purely by name, so a rename in source is seen as a new
// tag; the old one is never deleted and stays behind. Known quirk.
func (s *SyncService) Reconcile(ctx context.Context, userID, projectID string, parsed []stparse.RawTag) ([]models.Tag, error) {
	owned, err := s.projects.OwnedBy(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("ownership check failed: %w", err)
	}
	if !owned {
		return nil, fmt.Errorf("project %s: %w", projectID, models.ErrAccessDenied)
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	log := s.log.WithProjectID(projectID)

	for _, raw := range parsed {
		tag := formatForVendor(project.Vendor, raw, projectID, userID)
		if tag.Name == "" {
			log.Debug("skipping unnamed parsed tag")
			continue
		}

		existing, err := s.tags.GetByName(ctx, projectID, tag.Name)
		if err != nil {
			log.Warn("sync lookup failed, skipping tag", "tag", tag.Name, "error", err)
			continue
		}

		if existing != nil {
			// Update in place; id, createdAt and isAiGenerated survive
			existing.DataType = tag.DataType
			existing.RawDataType = tag.RawDataType
			existing.Address = tag.Address
			existing.DefaultValue = tag.DefaultValue
			existing.Vendor = project.Vendor
			existing.Scope = tag.Scope
			existing.Description = tag.Description
			existing.TagType = tag.TagType
			existing.UserID = userID

			if err := s.tags.Update(ctx, existing); err != nil {
				log.Warn("sync update failed, skipping tag", "tag", tag.Name, "error", err)
			}
			continue
		}

		tag.IsAiGenerated = false
		if err := s.tags.Insert(ctx, tag); err != nil {
			log.Warn("sync insert failed, skipping tag", "tag", tag.Name, "error", err)
		}
	}

	return s.tags.ListByProject(ctx, projectID)
}

// formatForVendor turns a raw parsed tuple into a canonical tag for
// the project's configured vendor. The vendor stored on the project is
// authoritative, whatever dialect the editor claimed to be in.
func formatForVendor(vendor models.Vendor, raw stparse.RawTag, projectID, userID string) *models.Tag {
	address := strings.TrimSpace(raw.Address)
	rawType := strings.ToUpper(strings.TrimSpace(raw.DataType))

	return &models.Tag{
		ProjectID:    projectID,
		UserID:       userID,
		Name:         strings.TrimSpace(raw.Name),
		DataType:     codec.CanonicalDataType(vendor, rawType),
		RawDataType:  rawType,
		Address:      address,
		Description:  strings.TrimSpace(raw.Description),
		DefaultValue: strings.TrimSpace(raw.DefaultValue),
		Vendor:       vendor,
		Scope:        codec.NormalizeScope(raw.Scope),
		TagType:      codec.DeriveTagType(vendor, address),
	}
}
