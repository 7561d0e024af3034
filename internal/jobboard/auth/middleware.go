package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
)

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the resolved principal, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalContextKey).(*models.Principal)
	return p
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// HTTPMiddleware resolves the bearer token, when present, into a Principal stored in the
// request context. Requests without an Authorization header pass through as anonymous;
// per-operation checks decide whether that is enough.
func HTTPMiddleware(next http.Handler, resolver *Resolver, writeError ErrorWriter) http.Handler {
	if writeError == nil {
		writeError = plainError
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		principal, err := resolver.Resolve(r.Context(), tokenString)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("%w: authorization header required", e.ErrUnauthenticated)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("%w: invalid authorization format", e.ErrUnauthenticated)
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", fmt.Errorf("%w: empty token", e.ErrUnauthenticated)
	}

	return tokenString, nil
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, e.ErrTransient) {
		http.Error(w, e.ErrTransient.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, e.ErrUnauthenticated.Error(), http.StatusUnauthorized)
}
