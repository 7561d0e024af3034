package db

import (
	"context"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateApplication inserts the application. A second application for the same
// candidate and job fails with ErrConflict.
func (r *Repository) CreateApplication(ctx context.Context, app *models.Application) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(app).Error)
}

func (r *Repository) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	result := r.db.WithContext(ctx).Preload("Job.Company").First(&app, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &app, nil
}

// GetApplicationForUpdate loads the application with a row lock and then its job.
func (r *Repository) GetApplicationForUpdate(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&app, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	job, err := r.GetJob(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	app.Job = job
	return &app, nil
}

func (r *Repository) ListApplicationsByCandidate(ctx context.Context, candidateID string) ([]models.Application, error) {
	return r.listApplications(ctx, r.db.Where("candidate_id = ?", candidateID))
}

func (r *Repository) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error) {
	return r.listApplications(ctx, r.db.Where("job_id = ?", jobID))
}

func (r *Repository) listApplications(ctx context.Context, scope *gorm.DB) ([]models.Application, error) {
	var apps []models.Application
	err := scope.WithContext(ctx).
		Preload("Job.Company").
		Order("created_at DESC").Order("id ASC").
		Find(&apps).Error
	if err != nil {
		return nil, translate(err)
	}
	return apps, nil
}

// UpdateApplicationStatus moves the application from one status to another when its
// stored status and version are unchanged. A lost race returns ErrConflict.
func (r *Repository) UpdateApplicationStatus(ctx context.Context, app *models.Application,
	next models.ApplicationStatus, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ? AND version = ?", app.ID, app.Status, app.Version).
		Updates(map[string]interface{}{
			"status":     next,
			"version":    app.Version + 1,
			"updated_at": at,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrConflict
	}
	app.Status = next
	app.Version++
	app.UpdatedAt = at
	return nil
}

// DeleteApplication removes the application only while its status is one of statuses.
func (r *Repository) DeleteApplication(ctx context.Context, id uuid.UUID, statuses []models.ApplicationStatus) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, statuses).
		Delete(&models.Application{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrConflict
	}
	return nil
}

// AppliedJobIDs returns every job the candidate has an application for, in any status.
func (r *Repository) AppliedJobIDs(ctx context.Context, candidateID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("candidate_id = ?", candidateID).
		Pluck("job_id", &ids).Error
	if err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (r *Repository) CountApplications(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).Count(&count).Error
	return count, translate(err)
}
