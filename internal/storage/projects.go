package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gitporter/gitporter/internal/models"
)

func (d *Database) CreateProject(ctx context.Context, project *models.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	if err := d.db.WithContext(ctx).Create(project).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("import of %s/%s: %w", project.ImportType, project.ImportSource, ErrDuplicate)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (d *Database) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	err := d.db.WithContext(ctx).Preload("Namespace").First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// FindProjectByImportSource looks up the record the idempotency check keys
// on: one project per (creator, import_type, import_source).
func (d *Database) FindProjectByImportSource(ctx context.Context, creatorID int64, importType, importSource string) (*models.Project, error) {
	var project models.Project
	err := d.db.WithContext(ctx).
		Where("creator_id = ? AND import_type = ? AND import_source = ?", creatorID, importType, importSource).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by import source: %w", err)
	}
	return &project, nil
}

// ListImportSources returns the import_source strings already recorded for
// the user and provider. Queried fresh on every status view; import state can
// change between page loads.
func (d *Database) ListImportSources(ctx context.Context, creatorID int64, importType string) ([]string, error) {
	var sources []string
	err := d.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("creator_id = ? AND import_type = ?", creatorID, importType).
		Pluck("import_source", &sources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list import sources: %w", err)
	}
	return sources, nil
}

// ListProjectsByImportType returns the user's imports for one provider,
// newest first, for the jobs polling endpoint.
func (d *Database) ListProjectsByImportType(ctx context.Context, creatorID int64, importType string) ([]*models.Project, error) {
	var projects []*models.Project
	err := d.db.WithContext(ctx).
		Where("creator_id = ? AND import_type = ?", creatorID, importType).
		Order("id DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ListProjectsByImportStatus returns up to limit projects in the given
// status, oldest first, for the copy worker.
func (d *Database) ListProjectsByImportStatus(ctx context.Context, status models.ImportStatus, limit int) ([]*models.Project, error) {
	var projects []*models.Project
	q := d.db.WithContext(ctx).
		Where("import_status = ?", status).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects by status: %w", err)
	}
	return projects, nil
}

// UpdateImportStatus moves a project through the import state machine,
// refusing illegal transitions.
func (d *Database) UpdateImportStatus(ctx context.Context, id int64, status models.ImportStatus, importError string) error {
	project, err := d.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project %d not found", id)
	}
	if !project.ImportStatus.CanTransition(status) {
		return fmt.Errorf("illegal import status transition %s -> %s", project.ImportStatus, status)
	}
	updates := map[string]interface{}{
		"import_status": status,
		"import_error":  importError,
	}
	if err := d.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update import status: %w", err)
	}
	return nil
}
