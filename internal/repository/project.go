// Package repository provides data access for project records.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ideaforge/internal/cache"
	"ideaforge/internal/logging"
	"ideaforge/internal/models"
	"ideaforge/internal/storage"
)

// ErrNotFound is returned when no project matches the lookup.
var ErrNotFound = errors.New("project not found")

// ProjectRepository persists project records and keeps their presigned
// archive URLs fresh on read.
type ProjectRepository struct {
	db    *gorm.DB
	store storage.Store
	cache *cache.PresignCache
}

// NewProjectRepository wires the repository. store and cache may be nil
// in tests; presign refresh is skipped without a store.
func NewProjectRepository(db *gorm.DB, store storage.Store, c *cache.PresignCache) *ProjectRepository {
	return &ProjectRepository{db: db, store: store, cache: c}
}

// Create inserts a new project record.
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get loads a project and refreshes its presigned archive URL, using
// the cache when the URL is still warm.
func (r *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if r.store != nil && p.S3Folder != "" {
		p.PresignedURL = r.freshPresign(ctx, &p)
	}
	return &p, nil
}

// freshPresign returns a usable archive URL for the project. Presign
// failures fall back to whatever URL is stored on the record.
func (r *ProjectRepository) freshPresign(ctx context.Context, p *models.Project) string {
	if url := r.cache.Get(ctx, p.ID.String()); url != "" {
		return url
	}

	key := storage.ArchiveKey(p.S3Folder)
	exists, err := r.store.Exists(ctx, key)
	if err != nil || !exists {
		return p.PresignedURL
	}

	url, err := r.store.PresignGet(ctx, key)
	if err != nil {
		logging.L().Warn("failed to refresh presigned url",
			zap.String("project_id", p.ID.String()), zap.Error(err))
		return p.PresignedURL
	}

	r.cache.Put(ctx, p.ID.String(), url)
	return url
}

// List returns the caller's projects plus public ones, newest first.
func (r *ProjectRepository) List(ctx context.Context, userID string, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("user_id = ? OR is_public = ?", userID, true).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// SoftDelete marks the project deleted and drops its cached URL.
func (r *ProjectRepository) SoftDelete(ctx context.Context, id uuid.UUID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Project{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.cache.Invalidate(ctx, id.String())
	return nil
}

// UpdateDeployment records the outcome of a finished deploy.
func (r *ProjectRepository) UpdateDeployment(ctx context.Context, id uuid.UUID, upd *models.DeploymentUpdate) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deployment_url":   upd.DeploymentURL,
			"database_uri":     upd.DatabaseURI,
			"database_name":    upd.DatabaseName,
			"infra_project_id": upd.InfraProjectID,
			"region":           upd.Region,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update deployment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRequirements stores the latest requirements document.
func (r *ProjectRepository) SetRequirements(ctx context.Context, id uuid.UUID, doc string) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", id).
		Update("requirements", doc)
	if res.Error != nil {
		return fmt.Errorf("failed to store requirements: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetArchive stores the archive location after a materialization and
// invalidates the stale cached URL.
func (r *ProjectRepository) SetArchive(ctx context.Context, id uuid.UUID, presignedURL string) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", id).
		Update("presigned_url", presignedURL)
	if res.Error != nil {
		return fmt.Errorf("failed to record archive: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.cache.Invalidate(ctx, id.String())
	return nil
}
