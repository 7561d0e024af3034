package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
)

// IdentityProvider verifies session tokens.
type IdentityProvider interface {
	VerifySession(ctx context.Context, token string) (*models.Principal, error)
}

// AccountStore exposes local moderation state.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

// Resolver turns a token into a Principal, merging the local ban state into Active.
type Resolver struct {
	idp      IdentityProvider
	accounts AccountStore
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResolver builds a Resolver. accounts may be nil when bans are not tracked locally.
func NewResolver(idp IdentityProvider, accounts AccountStore, timeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		idp:      idp,
		accounts: accounts,
		timeout:  timeout,
		logger:   logger.Named("identity"),
	}
}

// Resolve verifies token within the configured timeout. Deadline expiry yields ErrTransient.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	principal, err := r.idp.VerifySession(ctx, token)
	if err != nil {
		return nil, r.classify(ctx, err)
	}

	if r.accounts != nil {
		account, err := r.accounts.GetAccount(ctx, principal.ID)
		switch {
		case err == nil:
			if account.Banned {
				principal.Active = false
			}
		case errors.Is(err, e.ErrNotFound):
		default:
			return nil, r.classify(ctx, fmt.Errorf("failed to load account: %w", err))
		}
	}
	return principal, nil
}

func (r *Resolver) classify(ctx context.Context, err error) error {
	if errors.Is(err, e.ErrUnauthenticated) || errors.Is(err, e.ErrTransient) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		r.logger.Warn("identity resolution timed out", zap.Error(err))
		return fmt.Errorf("%w: identity resolution: %v", e.ErrTransient, err)
	}
	return err
}
