// Package auth resolves session tokens into principals and carries them through
// request contexts.
package auth

import (
	"context"
	"fmt"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates HS256 session tokens signed with a shared secret.
type TokenVerifier struct {
	secret string
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// VerifySession returns the principal claimed by token, or ErrUnauthenticated.
func (v *TokenVerifier) VerifySession(ctx context.Context, token string) (*models.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrTransient, err)
	}
	claims, err := validateToken(token, v.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrUnauthenticated, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: incomplete claims", e.ErrUnauthenticated)
	}

	active := true
	if claims.Active != nil {
		active = *claims.Active
	}
	return &models.Principal{ID: claims.Subject, Role: claims.Role, Active: active}, nil
}

// validateToken checks the token signature and returns parsed claims if valid.
func validateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}
