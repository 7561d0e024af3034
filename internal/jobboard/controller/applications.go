package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/jobboard/internal/jobboard/authz"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusChange is the payload of application_status_changed events.
type StatusChange struct {
	ApplicationID uuid.UUID                `json:"applicationId"`
	JobID         uuid.UUID                `json:"jobId"`
	CandidateID   string                   `json:"candidateId"`
	From          models.ApplicationStatus `json:"from"`
	To            models.ApplicationStatus `json:"to"`
}

// CreateApplication applies the candidate to a visible job, snapshotting the chosen
// resume or, when none is given, the candidate's primary resume.
func (s *MarketplaceService) CreateApplication(ctx context.Context, p *models.Principal,
	in models.ApplicationInput) (*models.ApplicationResult, error) {
	if err := s.precheck(p, authz.OpCreateApplication); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	job, err := s.repo.GetJob(ctx, in.JobID)
	if err != nil {
		return nil, lookupErr("job", err)
	}
	if err := s.authorize(p, authz.OpCreateApplication, jobResource(job)); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(resumesKey(p.ID))
	defer unlock()

	now := s.now()
	app := &models.Application{
		ID:          uuid.New(),
		CandidateID: p.ID,
		JobID:       job.ID,
		CoverLetter: in.CoverLetter,
		Status:      models.StatusApplied,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var count int64
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		current, err := tx.GetJob(ctx, job.ID)
		if err != nil {
			return err
		}
		if !current.Visible() {
			return e.ErrNotFound
		}
		if err := tx.LockCandidate(ctx, p.ID); err != nil {
			return err
		}
		resume, err := resolveResume(ctx, tx, p.ID, in.ResumeID)
		if err != nil {
			return err
		}
		if resume != nil {
			app.ResumeID = &resume.ID
			app.ResumeRef = resume.StorageRef
			app.ResumeName = resume.OriginalName
			app.ResumeType = resume.ContentType
		}
		if err := tx.CreateApplication(ctx, app); err != nil {
			if errors.Is(err, e.ErrConflict) {
				return e.Conflict("already applied to this job", nil)
			}
			return err
		}
		count, err = tx.CountApplicants(ctx, job.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrConflict) || errors.Is(err, e.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	app.Job = job

	s.emit(events.ApplicationCreated, app.ID.String(), app)
	s.logger.Info("application created",
		zap.String("application_id", app.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.String("candidate_id", p.ID),
		zap.Bool("with_resume", app.HasResume()),
	)
	return &models.ApplicationResult{Application: app, JobID: job.ID, ApplicantCount: count}, nil
}

// resolveResume returns the resume to attach to a new application, or nil when the
// candidate has none. An explicit id must reference one of the candidate's resumes.
func resolveResume(ctx context.Context, tx *db.Repository, candidateID string, id *uuid.UUID) (*models.Resume, error) {
	if id == nil {
		resume, err := tx.PrimaryResume(ctx, candidateID)
		if errors.Is(err, e.ErrNotFound) {
			return nil, nil
		}
		return resume, err
	}
	resume, err := tx.GetResume(ctx, *id)
	if errors.Is(err, e.ErrNotFound) || (err == nil && resume.CandidateID != candidateID) {
		return nil, e.Validation("resumeId", "does not reference one of your resumes")
	}
	return resume, err
}

// GetApplication returns an application to its candidate, the owning employer or an admin.
func (s *MarketplaceService) GetApplication(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.Application, error) {
	if err := s.precheck(p, authz.OpViewApplication); err != nil {
		return nil, err
	}
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return nil, lookupErr("application", err)
	}
	if err := s.authorize(p, authz.OpViewApplication, applicationResource(app)); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *MarketplaceService) ListMyApplications(ctx context.Context, p *models.Principal) ([]models.Application, error) {
	if err := s.authorize(p, authz.OpListMyApps, authz.Resource{}); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListApplicationsByCandidate(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// ListJobApplications lists the applications to one of the employer's jobs.
func (s *MarketplaceService) ListJobApplications(ctx context.Context, p *models.Principal, jobID uuid.UUID) ([]models.Application, error) {
	if err := s.precheck(p, authz.OpListJobApps); err != nil {
		return nil, err
	}
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, lookupErr("job", err)
	}
	if err := s.authorize(p, authz.OpListJobApps, authz.Resource{OwnerID: job.OwnerID()}); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// UpdateApplicationStatus moves an application along the workflow. The write is a
// compare-and-set on status and version; a losing writer gets a ConflictError carrying
// the committed state.
func (s *MarketplaceService) UpdateApplicationStatus(ctx context.Context, p *models.Principal, id uuid.UUID,
	next models.ApplicationStatus) (*models.ApplicationResult, error) {
	if err := s.precheck(p, authz.OpUpdateAppStatus); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, e.Validation("status", "must be one of: applied under_review interviewed rejected hired")
	}

	unlock := s.locks.lock(applicationKey(id.String()))
	defer unlock()

	var (
		app   *models.Application
		from  models.ApplicationStatus
		count int64
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		app, err = tx.GetApplicationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(p, authz.OpUpdateAppStatus, applicationResource(app)); err != nil {
			return err
		}
		if !app.Status.CanTransitionTo(next) {
			return e.Conflict(fmt.Sprintf("cannot move from %s to %s", app.Status, next), app)
		}
		from = app.Status
		if err := tx.UpdateApplicationStatus(ctx, app, next, s.now()); err != nil {
			if !errors.Is(err, e.ErrConflict) {
				return err
			}
			current, getErr := tx.GetApplication(ctx, id)
			if getErr != nil {
				return getErr
			}
			return e.Conflict("application changed concurrently", current)
		}
		count, err = tx.CountApplicants(ctx, app.JobID)
		return err
	})
	if err != nil {
		var conflict *e.ConflictError
		if errors.As(err, &conflict) || errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update application status: %w", err)
	}

	metrics.ObserveTransition(string(from), string(next))
	s.emit(events.ApplicationStatusChanged, app.ID.String(), StatusChange{
		ApplicationID: app.ID,
		JobID:         app.JobID,
		CandidateID:   app.CandidateID,
		From:          from,
		To:            next,
	})
	s.logger.Info("application status changed",
		zap.String("application_id", app.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
	)
	return &models.ApplicationResult{Application: app, JobID: app.JobID, ApplicantCount: count}, nil
}

// WithdrawApplication deletes a non-terminal application of the candidate and returns
// the job's new applicant count.
func (s *MarketplaceService) WithdrawApplication(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.ApplicationResult, error) {
	if err := s.precheck(p, authz.OpWithdrawApp); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(applicationKey(id.String()))
	defer unlock()

	var (
		app   *models.Application
		count int64
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		app, err = tx.GetApplicationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(p, authz.OpWithdrawApp, applicationResource(app)); err != nil {
			return err
		}
		if app.Status.Terminal() {
			return e.Conflict("application is already "+string(app.Status), app)
		}
		if err := tx.DeleteApplication(ctx, id, models.NonTerminalStatuses()); err != nil {
			if errors.Is(err, e.ErrConflict) {
				return e.Conflict("application is no longer withdrawable", nil)
			}
			return err
		}
		count, err = tx.CountApplicants(ctx, app.JobID)
		return err
	})
	if err != nil {
		if errors.Is(err, e.ErrConflict) || errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to withdraw application: %w", err)
	}

	s.emit(events.ApplicationWithdrawn, app.ID.String(), app)
	s.logger.Info("application withdrawn",
		zap.String("application_id", app.ID.String()),
		zap.String("job_id", app.JobID.String()),
	)
	return &models.ApplicationResult{JobID: app.JobID, ApplicantCount: count}, nil
}

// DownloadApplicationResume returns the resume snapshotted on the application.
func (s *MarketplaceService) DownloadApplicationResume(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.ResumeFile, error) {
	app, err := s.GetApplication(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !app.HasResume() {
		return nil, e.ErrNotFound
	}
	data, err := s.retrieveBlob(ctx, app.ResumeRef)
	if err != nil {
		return nil, err
	}
	return &models.ResumeFile{Name: app.ResumeName, ContentType: app.ResumeType, Data: data}, nil
}

func applicationResource(app *models.Application) authz.Resource {
	res := authz.Resource{OwnerID: app.CandidateID}
	if app.Job != nil {
		res.EmployerID = app.Job.OwnerID()
		res.Visible = app.Job.Visible()
	}
	return res
}
