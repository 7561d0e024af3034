package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/authz"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
)

// EmployerSummary aggregates the employer's company activity.
type EmployerSummary struct {
	Jobs         int64 `json:"jobs"`
	OpenJobs     int64 `json:"openJobs"`
	Applications int64 `json:"applications"`
}

// AdminSummary aggregates marketplace-wide totals.
type AdminSummary struct {
	Candidates   int64 `json:"candidates"`
	Companies    int64 `json:"companies"`
	Jobs         int64 `json:"jobs"`
	Applications int64 `json:"applications"`
}

// Me returns the calling principal. Banned principals may still read their identity.
func (s *MarketplaceService) Me(p *models.Principal) (*models.Principal, error) {
	if err := s.authorize(p, authz.OpReadIdentity, authz.Resource{}); err != nil {
		return nil, err
	}
	me := *p
	return &me, nil
}

func (s *MarketplaceService) EmployerSummary(ctx context.Context, p *models.Principal) (*EmployerSummary, error) {
	if err := s.authorize(p, authz.OpEmployerSummary, authz.Resource{}); err != nil {
		return nil, err
	}
	company, err := s.ensureCompany(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	var summary EmployerSummary
	if summary.Jobs, err = s.repo.CountJobs(ctx, &company.ID, false); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	if summary.OpenJobs, err = s.repo.CountJobs(ctx, &company.ID, true); err != nil {
		return nil, fmt.Errorf("failed to count open jobs: %w", err)
	}
	if summary.Applications, err = s.repo.CountCompanyApplications(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	return &summary, nil
}

func (s *MarketplaceService) AdminSummary(ctx context.Context, p *models.Principal) (*AdminSummary, error) {
	if err := s.authorize(p, authz.OpAdminSummary, authz.Resource{}); err != nil {
		return nil, err
	}

	var (
		summary AdminSummary
		err     error
	)
	if summary.Candidates, err = s.repo.CountCandidates(ctx); err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}
	if summary.Companies, err = s.repo.CountCompanies(ctx); err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	if summary.Jobs, err = s.repo.CountJobs(ctx, nil, false); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	if summary.Applications, err = s.repo.CountApplications(ctx); err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	return &summary, nil
}

// BanUser marks the user as banned. Subsequent sessions of that user resolve to an
// inactive principal.
func (s *MarketplaceService) BanUser(ctx context.Context, p *models.Principal, userID string) (*models.Account, error) {
	if err := s.authorize(p, authz.OpBanUser, authz.Resource{}); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, e.Validation("id", "is required")
	}
	if userID == p.ID {
		return nil, e.Validation("id", "admins cannot ban themselves")
	}

	account, err := s.repo.BanAccount(ctx, userID, p.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to ban user: %w", err)
	}

	s.emit(events.UserBanned, userID, account)
	s.logger.Info("user banned", zap.String("user_id", userID), zap.String("admin_id", p.ID))
	return account, nil
}
