package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/jobboard/internal/jobboard/authz"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

// SaveJob bookmarks a visible job. Saving a job twice is a no-op.
func (s *MarketplaceService) SaveJob(ctx context.Context, p *models.Principal, jobID uuid.UUID) (*models.SavedJob, error) {
	if err := s.precheck(p, authz.OpSaveJob); err != nil {
		return nil, err
	}
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, lookupErr("job", err)
	}
	if err := s.authorize(p, authz.OpSaveJob, jobResource(job)); err != nil {
		return nil, err
	}

	saved := &models.SavedJob{CandidateID: p.ID, JobID: job.ID, CreatedAt: s.now()}
	if err := s.repo.SaveJob(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	saved.Job = job
	return saved, nil
}

// UnsaveJob removes a bookmark. Removing a missing bookmark succeeds.
func (s *MarketplaceService) UnsaveJob(ctx context.Context, p *models.Principal, jobID uuid.UUID) error {
	if err := s.authorize(p, authz.OpUnsaveJob, authz.Resource{}); err != nil {
		return err
	}
	if err := s.repo.UnsaveJob(ctx, p.ID, jobID); err != nil {
		return fmt.Errorf("failed to unsave job: %w", err)
	}
	return nil
}

// ListSavedJobs returns the candidate's bookmarks whose jobs are still visible.
func (s *MarketplaceService) ListSavedJobs(ctx context.Context, p *models.Principal) ([]models.SavedJob, error) {
	if err := s.authorize(p, authz.OpListSavedJobs, authz.Resource{}); err != nil {
		return nil, err
	}
	saved, err := s.repo.ListSavedJobs(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved jobs: %w", err)
	}

	visible := make([]models.SavedJob, 0, len(saved))
	for _, sj := range saved {
		if sj.Job != nil && sj.Job.Visible() {
			visible = append(visible, sj)
		}
	}
	return visible, nil
}
