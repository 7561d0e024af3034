package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/jobboard/internal/jobboard/authz"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	"github.com/gartstein/jobboard/internal/jobboard/matching"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

// RecommendJobs ranks the open visible jobs the candidate has not applied to yet.
// An empty profile yields an empty list.
func (s *MarketplaceService) RecommendJobs(ctx context.Context, p *models.Principal, limit int) ([]matching.Recommendation, error) {
	if err := s.authorize(p, authz.OpRecommend, authz.Resource{}); err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	jobs, err := s.repo.ListJobs(ctx, db.JobQuery{VisibleOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	applied, err := s.repo.AppliedJobIDs(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied jobs: %w", err)
	}

	exclude := make(map[uuid.UUID]struct{}, len(applied))
	for _, id := range applied {
		exclude[id] = struct{}{}
	}
	recs := truncate(matching.Recommend(profile, without(jobs, exclude)), limit)
	metrics.ObserveRecommendations(len(recs))
	return recs, nil
}

// SimilarJobs ranks visible jobs against a profile derived from the given job.
func (s *MarketplaceService) SimilarJobs(ctx context.Context, p *models.Principal, jobID uuid.UUID, limit int) ([]matching.Recommendation, error) {
	job, err := s.GetJob(ctx, p, jobID)
	if err != nil {
		return nil, err
	}
	jobs, err := s.repo.ListJobs(ctx, db.JobQuery{VisibleOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	exclude := map[uuid.UUID]struct{}{job.ID: {}}
	recs := truncate(matching.Recommend(matching.ProfileForJob(&job.Job), without(jobs, exclude)), limit)
	metrics.ObserveRecommendations(len(recs))
	return recs, nil
}

func without(jobs []models.Job, exclude map[uuid.UUID]struct{}) []models.Job {
	out := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if _, skip := exclude[job.ID]; !skip {
			out = append(out, job)
		}
	}
	return out
}

func truncate(recs []matching.Recommendation, limit int) []matching.Recommendation {
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	if limit > models.MaxPageSize {
		limit = models.MaxPageSize
	}
	if len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
