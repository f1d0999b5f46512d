package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/common/db"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *db.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *db.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Get retrieves a project by id
func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, user_id, name, vendor, created_at
		FROM projects
		WHERE id = $1
	`

	project := &models.Project{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.Vendor,
		&project.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// OwnedBy reports whether the project belongs to the user. Always a
// fresh query: ownership decisions are never cached across messages.
func (r *ProjectRepository) OwnedBy(ctx context.Context, projectID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND user_id = $2)`

	var owned bool
	err := r.db.QueryRow(ctx, query, projectID, userID).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("failed to check project ownership: %w", err)
	}

	return owned, nil
}
