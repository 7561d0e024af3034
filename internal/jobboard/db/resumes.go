package db

import (
	"context"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateResume(ctx context.Context, resume *models.Resume) error {
	return translate(r.db.WithContext(ctx).Create(resume).Error)
}

func (r *Repository) GetResume(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	result := r.db.WithContext(ctx).First(&resume, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &resume, nil
}

// ListResumes returns the candidate's resumes, most recently uploaded first.
func (r *Repository) ListResumes(ctx context.Context, candidateID string) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").Order("id DESC").
		Find(&resumes).Error
	if err != nil {
		return nil, translate(err)
	}
	return resumes, nil
}

func (r *Repository) CountResumes(ctx context.Context, candidateID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Resume{}).
		Where("candidate_id = ?", candidateID).
		Count(&count).Error
	return count, translate(err)
}

// PrimaryResume returns the candidate's primary resume or ErrNotFound.
func (r *Repository) PrimaryResume(ctx context.Context, candidateID string) (*models.Resume, error) {
	var resume models.Resume
	result := r.db.WithContext(ctx).
		Where("candidate_id = ? AND is_primary = ?", candidateID, true).
		First(&resume)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &resume, nil
}

// LatestResume returns the most recently uploaded resume or ErrNotFound.
func (r *Repository) LatestResume(ctx context.Context, candidateID string) (*models.Resume, error) {
	var resume models.Resume
	result := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").Order("id DESC").
		First(&resume)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &resume, nil
}

func (r *Repository) DeleteResume(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Resume{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ClearPrimary demotes every resume of the candidate.
func (r *Repository) ClearPrimary(ctx context.Context, candidateID string) error {
	err := r.db.WithContext(ctx).Model(&models.Resume{}).
		Where("candidate_id = ? AND is_primary = ?", candidateID, true).
		Update("is_primary", false).Error
	return translate(err)
}

// MarkPrimary promotes one resume of the candidate.
func (r *Repository) MarkPrimary(ctx context.Context, candidateID string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Resume{}).
		Where("id = ? AND candidate_id = ?", id, candidateID).
		Update("is_primary", true)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// CountPrimary counts the candidate's primary resumes.
func (r *Repository) CountPrimary(ctx context.Context, candidateID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Resume{}).
		Where("candidate_id = ? AND is_primary = ?", candidateID, true).
		Count(&count).Error
	return count, translate(err)
}
