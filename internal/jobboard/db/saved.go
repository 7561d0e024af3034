package db

import (
	"context"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// SaveJob bookmarks a job. Saving twice is a no-op.
func (r *Repository) SaveJob(ctx context.Context, saved *models.SavedJob) error {
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(saved).Error
	return translate(err)
}

// UnsaveJob removes a bookmark. Removing a missing bookmark is a no-op.
func (r *Repository) UnsaveJob(ctx context.Context, candidateID string, jobID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Delete(&models.SavedJob{}, "candidate_id = ? AND job_id = ?", candidateID, jobID).Error
	return translate(err)
}

// ListSavedJobs returns bookmarks with their jobs, most recent first.
func (r *Repository) ListSavedJobs(ctx context.Context, candidateID string) ([]models.SavedJob, error) {
	var saved []models.SavedJob
	err := r.db.WithContext(ctx).
		Preload("Job.Company").
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&saved).Error
	if err != nil {
		return nil, translate(err)
	}
	return saved, nil
}
