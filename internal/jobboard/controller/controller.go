// Package controller implements the marketplace service layer: the job and company
// registry, the application workflow, the resume registry, saved jobs and
// recommendations. Every operation takes the calling Principal explicitly, asks the
// authz guard before acting and emits domain events after commit.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/authz"
	"github.com/gartstein/jobboard/internal/jobboard/blob"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(eventType events.EventType, key string, payload interface{})
}

// Repository defines the storage interface used outside transactions. Multi-row
// mutations run through WithTransaction on the concrete repository.
type Repository interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, q db.JobQuery) ([]models.Job, error)
	CountApplicants(ctx context.Context, jobID uuid.UUID) (int64, error)
	CountApplicantsByJob(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	CountJobs(ctx context.Context, companyID *uuid.UUID, openOnly bool) (int64, error)

	GetCompanyByOwner(ctx context.Context, ownerID string) (*models.Company, error)
	EnsureCompany(ctx context.Context, company *models.Company) (*models.Company, error)
	UpdateCompany(ctx context.Context, company *models.Company) error
	CountCompanies(ctx context.Context) (int64, error)
	CountCompanyApplications(ctx context.Context, company *models.Company) (int64, error)

	GetProfile(ctx context.Context, candidateID string) (*models.CandidateProfile, error)
	SaveProfile(ctx context.Context, profile *models.CandidateProfile) error
	CountCandidates(ctx context.Context) (int64, error)

	GetResume(ctx context.Context, id uuid.UUID) (*models.Resume, error)
	ListResumes(ctx context.Context, candidateID string) ([]models.Resume, error)

	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplicationsByCandidate(ctx context.Context, candidateID string) ([]models.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]models.Application, error)
	AppliedJobIDs(ctx context.Context, candidateID string) ([]uuid.UUID, error)
	CountApplications(ctx context.Context) (int64, error)

	SaveJob(ctx context.Context, saved *models.SavedJob) error
	UnsaveJob(ctx context.Context, candidateID string, jobID uuid.UUID) error
	ListSavedJobs(ctx context.Context, candidateID string) ([]models.SavedJob, error)

	BanAccount(ctx context.Context, id, bannedBy string, at time.Time) (*models.Account, error)

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

type Config struct {
	// CollaboratorTimeout bounds every blob store call.
	CollaboratorTimeout time.Duration
	MaxResumeBytes      int64
}

const (
	DefaultCollaboratorTimeout       = 5 * time.Second
	DefaultMaxResumeBytes      int64 = 5 << 20
)

func (c Config) withDefaults() Config {
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = DefaultCollaboratorTimeout
	}
	if c.MaxResumeBytes <= 0 {
		c.MaxResumeBytes = DefaultMaxResumeBytes
	}
	return c
}

// MarketplaceService provides the core marketplace operations.
type MarketplaceService struct {
	repo     Repository
	blobs    blob.Store
	producer EventProducer
	logger   *zap.Logger
	cfg      Config
	locks    *keyLocks
	now      func() time.Time
}

// NewMarketplaceService constructs a MarketplaceService with a repository, a blob
// store, an event producer, and a logger.
func NewMarketplaceService(repo Repository, blobs blob.Store, producer EventProducer, cfg Config,
	logger *zap.Logger) *MarketplaceService {
	return &MarketplaceService{
		repo:     repo,
		blobs:    blobs,
		producer: producer,
		logger:   logger.Named("marketplace_service"),
		cfg:      cfg.withDefaults(),
		locks:    newKeyLocks(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// authorize runs the guard and logs the internal reason of a denial.
func (s *MarketplaceService) authorize(p *models.Principal, op authz.Operation, res authz.Resource) error {
	return s.decide(p, op, authz.Authorize(p, op, res))
}

// precheck rejects callers that fail the role-level rule before anything is loaded.
func (s *MarketplaceService) precheck(p *models.Principal, op authz.Operation) error {
	return s.decide(p, op, authz.Precheck(p, op))
}

func (s *MarketplaceService) decide(p *models.Principal, op authz.Operation, d authz.Decision) error {
	if d.Allowed {
		return nil
	}
	metrics.ObserveDenial(string(op))
	s.logger.Debug("authorization denied",
		zap.String("operation", string(op)),
		zap.String("principal_id", principalID(p)),
		zap.String("reason", d.Reason),
	)
	return d.Err()
}

func principalID(p *models.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}

// collaboratorCtx bounds a call to an external collaborator.
func (s *MarketplaceService) collaboratorCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
}

// collaboratorErr turns a deadline into ErrTransient.
func collaboratorErr(ctx context.Context, name string, err error) error {
	if errors.Is(err, e.ErrTransient) {
		metrics.ObserveTimeout(name)
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.ObserveTimeout(name)
		return fmt.Errorf("%w: %s: %v", e.ErrTransient, name, err)
	}
	return err
}

// lookupErr passes NotFound through untouched and wraps anything else.
func lookupErr(entity string, err error) error {
	if errors.Is(err, e.ErrNotFound) {
		return err
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

func (s *MarketplaceService) emit(eventType events.EventType, key string, payload interface{}) {
	s.producer.Produce(eventType, key, payload)
}
