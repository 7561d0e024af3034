package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/jobboard/internal/jobboard/authz"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobPage is one page of a filtered job listing.
type JobPage struct {
	Jobs  []models.JobWithCount `json:"jobs"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// CreateJob validates the input and creates a job under the employer's company,
// provisioning the company on first use.
func (s *MarketplaceService) CreateJob(ctx context.Context, p *models.Principal, in models.JobInput) (*models.JobWithCount, error) {
	if err := s.authorize(p, authz.OpCreateJob, authz.Resource{}); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	company, err := s.ensureCompany(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	job := &models.Job{ID: uuid.New(), CompanyID: company.ID, CreatedAt: now, UpdatedAt: now}
	in.Apply(job)
	if err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.CreateJob(ctx, job)
	}); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	job.Company = company

	s.emit(events.JobCreated, job.ID.String(), job)
	return &models.JobWithCount{Job: *job}, nil
}

// UpdateJob replaces the editable fields of a job owned by the employer.
func (s *MarketplaceService) UpdateJob(ctx context.Context, p *models.Principal, id uuid.UUID, in models.JobInput) (*models.JobWithCount, error) {
	if err := s.precheck(p, authz.OpUpdateJob); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(jobKey(id.String()))
	defer unlock()

	var job *models.Job
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		job, err = tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(p, authz.OpUpdateJob, jobResource(job)); err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}
		in.Apply(job)
		job.UpdatedAt = s.now()
		return tx.UpdateJob(ctx, job, job.Version)
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrForbidden) || errors.Is(err, e.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	count, err := s.repo.CountApplicants(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count applicants: %w", err)
	}
	s.emit(events.JobUpdated, job.ID.String(), job)
	return &models.JobWithCount{Job: *job, ApplicantCount: count}, nil
}

// HideJob is the admin moderation toggle. Hiding a hidden job is a no-op.
func (s *MarketplaceService) HideJob(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Job, error) {
	return s.setHidden(ctx, p, id, true)
}

// UnhideJob reverses HideJob.
func (s *MarketplaceService) UnhideJob(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Job, error) {
	return s.setHidden(ctx, p, id, false)
}

func (s *MarketplaceService) setHidden(ctx context.Context, p *models.Principal, id uuid.UUID, hidden bool) (*models.Job, error) {
	if err := s.precheck(p, authz.OpHideJob); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(jobKey(id.String()))
	defer unlock()

	var (
		job     *models.Job
		changed bool
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		job, err = tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(p, authz.OpHideJob, jobResource(job)); err != nil {
			return err
		}
		if job.IsHidden == hidden {
			return nil
		}
		now := s.now()
		if err := tx.SetJobHidden(ctx, id, hidden, now); err != nil {
			return err
		}
		job.IsHidden = hidden
		job.Version++
		job.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		eventType := events.JobHidden
		if !hidden {
			eventType = events.JobUnhidden
		}
		s.emit(eventType, job.ID.String(), job)
		s.logger.Info("job visibility changed",
			zap.String("job_id", job.ID.String()),
			zap.Bool("hidden", hidden),
			zap.String("admin_id", p.ID),
		)
	}
	return job, nil
}

// DeleteJob removes an employer's job together with its applications and bookmarks.
func (s *MarketplaceService) DeleteJob(ctx context.Context, p *models.Principal, id uuid.UUID) error {
	if err := s.precheck(p, authz.OpDeleteJob); err != nil {
		return err
	}

	unlock := s.locks.lock(jobKey(id.String()))
	defer unlock()

	var job *models.Job
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		job, err = tx.GetJobForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(p, authz.OpDeleteJob, jobResource(job)); err != nil {
			return err
		}
		return tx.DeleteJob(ctx, id)
	})
	if err != nil {
		return err
	}

	s.emit(events.JobDeleted, job.ID.String(), job)
	return nil
}

// GetJob returns a job with its applicant count. Jobs that are closed or hidden are
// visible only to their owning employer and to admins.
func (s *MarketplaceService) GetJob(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.JobWithCount, error) {
	if err := s.precheck(p, authz.OpViewJob); err != nil {
		return nil, err
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, lookupErr("job", err)
	}
	if err := s.authorize(p, authz.OpViewJob, jobResource(job)); err != nil {
		return nil, err
	}

	count, err := s.repo.CountApplicants(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count applicants: %w", err)
	}
	return &models.JobWithCount{Job: *job, ApplicantCount: count}, nil
}

// ListOpenVisibleJobs lists open, unhidden jobs matching every predicate of filter.
func (s *MarketplaceService) ListOpenVisibleJobs(ctx context.Context, p *models.Principal, filter models.JobFilter) (*JobPage, error) {
	if err := s.authorize(p, authz.OpListJobs, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.listJobs(ctx, db.JobQuery{VisibleOnly: true, EmploymentType: filter.EmploymentType}, filter)
}

// ListAllJobs is the admin listing, including closed and hidden jobs.
func (s *MarketplaceService) ListAllJobs(ctx context.Context, p *models.Principal, filter models.JobFilter) (*JobPage, error) {
	if err := s.authorize(p, authz.OpListAllJobs, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.listJobs(ctx, db.JobQuery{EmploymentType: filter.EmploymentType}, filter)
}

// ListMyJobs lists every job of the employer's company.
func (s *MarketplaceService) ListMyJobs(ctx context.Context, p *models.Principal) ([]models.JobWithCount, error) {
	if err := s.authorize(p, authz.OpListMyJobs, authz.Resource{}); err != nil {
		return nil, err
	}
	company, err := s.ensureCompany(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.repo.ListJobs(ctx, db.JobQuery{CompanyID: &company.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return s.withCounts(ctx, jobs)
}

func (s *MarketplaceService) listJobs(ctx context.Context, q db.JobQuery, filter models.JobFilter) (*JobPage, error) {
	jobs, err := s.repo.ListJobs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	matched := make([]models.Job, 0, len(jobs))
	for i := range jobs {
		if filter.Match(&jobs[i]) {
			matched = append(matched, jobs[i])
		}
	}

	start, end := filter.Window(len(matched))
	page, err := s.withCounts(ctx, matched[start:end])
	if err != nil {
		return nil, err
	}

	return &JobPage{Jobs: page, Total: len(matched), Page: filter.PageNumber(), Limit: filter.PageSize()}, nil
}

func (s *MarketplaceService) withCounts(ctx context.Context, jobs []models.Job) ([]models.JobWithCount, error) {
	ids := make([]uuid.UUID, len(jobs))
	for i := range jobs {
		ids[i] = jobs[i].ID
	}
	counts, err := s.repo.CountApplicantsByJob(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count applicants: %w", err)
	}

	out := make([]models.JobWithCount, len(jobs))
	for i := range jobs {
		out[i] = models.JobWithCount{Job: jobs[i], ApplicantCount: counts[jobs[i].ID]}
	}
	return out, nil
}

// GetMyCompany returns the employer's company, creating it on first access.
func (s *MarketplaceService) GetMyCompany(ctx context.Context, p *models.Principal) (*models.Company, error) {
	if err := s.authorize(p, authz.OpViewCompany, authz.Resource{OwnerID: principalID(p)}); err != nil {
		return nil, err
	}
	return s.ensureCompany(ctx, p.ID)
}

// UpdateCompany replaces the editable company fields.
func (s *MarketplaceService) UpdateCompany(ctx context.Context, p *models.Principal, in models.CompanyInput) (*models.Company, error) {
	if err := s.precheck(p, authz.OpUpdateCompany); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	company, err := s.ensureCompany(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(p, authz.OpUpdateCompany, authz.Resource{OwnerID: company.OwnerID}); err != nil {
		return nil, err
	}

	company.Name = in.Name
	company.Website = in.Website
	company.Description = in.Description
	company.Locations = in.Locations
	company.UpdatedAt = s.now()
	if err := s.repo.UpdateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	s.emit(events.CompanyUpdated, company.ID.String(), company)
	return company, nil
}

// ensureCompany returns the owner's company, creating a placeholder one if missing.
func (s *MarketplaceService) ensureCompany(ctx context.Context, ownerID string) (*models.Company, error) {
	company, err := s.repo.GetCompanyByOwner(ctx, ownerID)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	name := ownerID
	if len(name) > 8 {
		name = name[:8]
	}
	now := s.now()
	company, err = s.repo.EnsureCompany(ctx, &models.Company{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      "Company " + name,
		Locations: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	s.logger.Info("company provisioned",
		zap.String("company_id", company.ID.String()),
		zap.String("owner_id", ownerID),
	)
	return company, nil
}

// GetProfile returns the candidate's profile; an unsaved profile is empty.
func (s *MarketplaceService) GetProfile(ctx context.Context, p *models.Principal) (*models.CandidateProfile, error) {
	if err := s.authorize(p, authz.OpViewProfile, authz.Resource{OwnerID: principalID(p)}); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetProfile(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile replaces the candidate's profile.
func (s *MarketplaceService) UpdateProfile(ctx context.Context, p *models.Principal, in models.ProfileInput) (*models.CandidateProfile, error) {
	if err := s.authorize(p, authz.OpUpdateProfile, authz.Resource{OwnerID: principalID(p)}); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	profile := &models.CandidateProfile{
		CandidateID:        p.ID,
		Name:               in.Name,
		Location:           in.Location,
		Headline:           in.Headline,
		Experience:         in.Experience,
		Skills:             in.Skills,
		YearsOfExperience:  in.YearsOfExperience,
		PreferredLocations: in.PreferredLocations,
		PreferredRoles:     in.PreferredRoles,
		UpdatedAt:          s.now(),
	}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

func jobResource(job *models.Job) authz.Resource {
	return authz.Resource{OwnerID: job.OwnerID(), Visible: job.Visible()}
}
