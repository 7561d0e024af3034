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

// JobQuery holds the predicates pushed down to SQL. Text and tag filters are applied
// in Go by models.JobFilter.
type JobQuery struct {
	VisibleOnly    bool
	CompanyID      *uuid.UUID
	EmploymentType models.EmploymentType
}

func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(job).Error)
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	result := r.db.WithContext(ctx).Preload("Company").First(&job, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &job, nil
}

// GetJobForUpdate loads the job and takes a row lock for the rest of the transaction.
func (r *Repository) GetJobForUpdate(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&job, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", job.CompanyID).Error; err != nil {
		return nil, translate(err)
	}
	job.Company = &company
	return &job, nil
}

// UpdateJob writes the editable fields when the stored version still equals
// expectedVersion, and bumps the version.
func (r *Repository) UpdateJob(ctx context.Context, job *models.Job, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND version = ?", job.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":           job.Title,
			"description":     job.Description,
			"requirements":    job.Requirements,
			"location":        job.Location,
			"country":         job.Country,
			"employment_type": job.EmploymentType,
			"salary_min":      job.SalaryMin,
			"salary_max":      job.SalaryMax,
			"tags":            job.Tags,
			"skills":          job.Skills,
			"status":          job.Status,
			"version":         expectedVersion + 1,
			"updated_at":      job.UpdatedAt,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrConflict
	}
	job.Version = expectedVersion + 1
	return nil
}

func (r *Repository) SetJobHidden(ctx context.Context, id uuid.UUID, hidden bool, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_hidden":  hidden,
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteJob removes the job with its applications and saved-job rows. Run it inside
// WithTransaction.
func (r *Repository) DeleteJob(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&models.Application{}, "job_id = ?", id).Error; err != nil {
		return translate(err)
	}
	if err := db.Delete(&models.SavedJob{}, "job_id = ?", id).Error; err != nil {
		return translate(err)
	}
	result := db.Delete(&models.Job{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ListJobs returns jobs newest first, with their company.
func (r *Repository) ListJobs(ctx context.Context, q JobQuery) ([]models.Job, error) {
	db := r.db.WithContext(ctx).Preload("Company")
	if q.VisibleOnly {
		db = db.Where("status = ? AND is_hidden = ?", models.JobOpen, false)
	}
	if q.CompanyID != nil {
		db = db.Where("company_id = ?", *q.CompanyID)
	}
	if q.EmploymentType != "" {
		db = db.Where("employment_type = ?", q.EmploymentType)
	}

	var jobs []models.Job
	if err := db.Order("created_at DESC").Order("id ASC").Find(&jobs).Error; err != nil {
		return nil, translate(err)
	}
	return jobs, nil
}

// CountApplicants counts the existing applications of a job.
func (r *Repository) CountApplicants(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("job_id = ?", jobID).
		Count(&count).Error
	return count, translate(err)
}

type jobCount struct {
	JobID uuid.UUID
	Count int64
}

// CountApplicantsByJob returns applicant counts keyed by job. Jobs without
// applications are absent from the map.
func (r *Repository) CountApplicantsByJob(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(jobIDs))
	if len(jobIDs) == 0 {
		return counts, nil
	}
	var rows []jobCount
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Select("job_id, COUNT(*) AS count").
		Where("job_id IN ?", jobIDs).
		Group("job_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, row := range rows {
		counts[row.JobID] = row.Count
	}
	return counts, nil
}

// CountJobs counts jobs, optionally restricted to one company and to open jobs.
func (r *Repository) CountJobs(ctx context.Context, companyID *uuid.UUID, openOnly bool) (int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Job{})
	if companyID != nil {
		db = db.Where("company_id = ?", *companyID)
	}
	if openOnly {
		db = db.Where("status = ?", models.JobOpen)
	}
	var count int64
	err := db.Count(&count).Error
	return count, translate(err)
}
