package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/common/logger"
)

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

// fakeTagStore is an in-memory TagStore keyed by (projectID, name)
type fakeTagStore struct {
	mu   sync.Mutex
	tags map[string]*models.Tag

	insertCalls int
	updateCalls int

	failInsertFor map[string]error
	failGetFor    map[string]error
}

func newFakeTagStore() *fakeTagStore {
	return &fakeTagStore{
		tags:          make(map[string]*models.Tag),
		failInsertFor: make(map[string]error),
		failGetFor:    make(map[string]error),
	}
}

func key(projectID, name string) string { return projectID + "/" + name }

func (f *fakeTagStore) ListByProject(ctx context.Context, projectID string) ([]models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Tag
	for _, tag := range f.tags {
		if tag.ProjectID == projectID {
			out = append(out, *tag)
		}
	}
	return out, nil
}

func (f *fakeTagStore) GetByName(ctx context.Context, projectID, name string) (*models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failGetFor[name]; ok {
		return nil, err
	}
	tag, ok := f.tags[key(projectID, name)]
	if !ok {
		return nil, nil
	}
	copied := *tag
	return &copied, nil
}

func (f *fakeTagStore) Insert(ctx context.Context, tag *models.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls++
	if err, ok := f.failInsertFor[tag.Name]; ok {
		return err
	}
	k := key(tag.ProjectID, tag.Name)
	if _, exists := f.tags[k]; exists {
		return fmt.Errorf("tag %q: %w", tag.Name, models.ErrDuplicateTagName)
	}

	tag.ID = uuid.NewString()
	tag.CreatedAt = time.Now().UTC()
	tag.UpdatedAt = tag.CreatedAt
	copied := *tag
	f.tags[k] = &copied
	return nil
}

func (f *fakeTagStore) Update(ctx context.Context, tag *models.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updateCalls++
	k := key(tag.ProjectID, tag.Name)
	if _, exists := f.tags[k]; !exists {
		return models.ErrTagNotFound
	}
	tag.UpdatedAt = time.Now().UTC()
	copied := *tag
	f.tags[k] = &copied
	return nil
}

func (f *fakeTagStore) Delete(ctx context.Context, projectID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := key(projectID, name)
	if _, exists := f.tags[k]; !exists {
		return models.ErrTagNotFound
	}
	delete(f.tags, k)
	return nil
}

func (f *fakeTagStore) get(projectID, name string) *models.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[key(projectID, name)]
}

func (f *fakeTagStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tags)
}

// fakeProjectStore answers ownership and vendor lookups from a static map
type fakeProjectStore struct {
	projects map[string]*models.Project
	ownCalls int
}

func newFakeProjectStore(projects ...*models.Project) *fakeProjectStore {
	m := make(map[string]*models.Project)
	for _, p := range projects {
		m[p.ID] = p
	}
	return &fakeProjectStore{projects: m}
}

func (f *fakeProjectStore) Get(ctx context.Context, id string) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrProjectNotFound)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProjectStore) OwnedBy(ctx context.Context, projectID, userID string) (bool, error) {
	f.ownCalls++
	p, ok := f.projects[projectID]
	return ok && p.UserID == userID, nil
}
