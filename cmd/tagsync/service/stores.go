package service

import (
	"context"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

// TagStore is the persistence surface services depend on. Satisfied by
// repository.TagRepository; tests substitute in-memory fakes.
type TagStore interface {
	ListByProject(ctx context.Context, projectID string) ([]models.Tag, error)
	GetByName(ctx context.Context, projectID, name string) (*models.Tag, error)
	Insert(ctx context.Context, tag *models.Tag) error
	Update(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, projectID, name string) error
}

// ProjectStore resolves projects and ownership. Satisfied by
// repository.ProjectRepository.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*models.Project, error)
	OwnedBy(ctx context.Context, projectID, userID string) (bool, error)
}
