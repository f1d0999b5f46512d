package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/common/db"
)

const tagColumns = `id, project_id, user_id, name, data_type, raw_data_type,
	address, description, default_value, vendor, scope, tag_type,
	is_ai_generated, created_at, updated_at`

// TagRepository handles database operations for tags
type TagRepository struct {
	db *db.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *db.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Insert creates a new tag. The generated id and timestamps are written
// back into tag. A (project_id, name) uniqueness violation is reported
// as models.ErrDuplicateTagName.
func (r *TagRepository) Insert(ctx context.Context, tag *models.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tag.CreatedAt = now
	tag.UpdatedAt = now

	query := `
		INSERT INTO tags (` + tagColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		tag.ID,
		tag.ProjectID,
		tag.UserID,
		tag.Name,
		tag.DataType,
		tag.RawDataType,
		tag.Address,
		tag.Description,
		tag.DefaultValue,
		tag.Vendor,
		tag.Scope,
		tag.TagType,
		tag.IsAiGenerated,
		tag.CreatedAt,
		tag.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tag %q: %w", tag.Name, models.ErrDuplicateTagName)
		}
		return fmt.Errorf("failed to insert tag: %w", err)
	}

	return nil
}

// Update overwrites the mutable fields of an existing tag by id and
// advances updated_at. Vendor is immutable by contract; it is still
// written here because sync formats tags for the project's vendor.
func (r *TagRepository) Update(ctx context.Context, tag *models.Tag) error {
	tag.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tags
		SET data_type = $2, raw_data_type = $3, address = $4,
		    description = $5, default_value = $6, vendor = $7,
		    scope = $8, tag_type = $9, user_id = $10, name = $11,
		    updated_at = $12
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		tag.ID,
		tag.DataType,
		tag.RawDataType,
		tag.Address,
		tag.Description,
		tag.DefaultValue,
		tag.Vendor,
		tag.Scope,
		tag.TagType,
		tag.UserID,
		tag.Name,
		tag.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tag %q: %w", tag.Name, models.ErrDuplicateTagName)
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %s: %w", tag.ID, models.ErrTagNotFound)
	}

	return nil
}

// GetByName retrieves a tag by (project, name). Returns (nil, nil) when
// no such tag exists.
func (r *TagRepository) GetByName(ctx context.Context, projectID, name string) (*models.Tag, error) {
	query := `
		SELECT ` + tagColumns + `
		FROM tags
		WHERE project_id = $1 AND name = $2
	`

	tag := &models.Tag{}
	err := r.db.QueryRow(ctx, query, projectID, name).Scan(scanTargets(tag)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return tag, nil
}

// ListByProject retrieves all tags of a project ordered by name
func (r *TagRepository) ListByProject(ctx context.Context, projectID string) ([]models.Tag, error) {
	query := `
		SELECT ` + tagColumns + `
		FROM tags
		WHERE project_id = $1
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		tag := models.Tag{}
		if err := rows.Scan(scanTargets(&tag)...); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// Delete removes a tag by (project, name)
func (r *TagRepository) Delete(ctx context.Context, projectID, name string) error {
	query := `DELETE FROM tags WHERE project_id = $1 AND name = $2`

	result, err := r.db.Exec(ctx, query, projectID, name)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %q: %w", name, models.ErrTagNotFound)
	}

	return nil
}

func scanTargets(tag *models.Tag) []any {
	return []any{
		&tag.ID,
		&tag.ProjectID,
		&tag.UserID,
		&tag.Name,
		&tag.DataType,
		&tag.RawDataType,
		&tag.Address,
		&tag.Description,
		&tag.DefaultValue,
		&tag.Vendor,
		&tag.Scope,
		&tag.TagType,
		&tag.IsAiGenerated,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	}
}

// isUniqueViolation reports whether err is a Postgres 23505 error
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
