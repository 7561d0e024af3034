package auth

import (
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload issued by the identity provider.
type Claims struct {
	Role models.Role `json:"role"`
	// Active is optional; a missing claim means the account is active.
	Active *bool `json:"active,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 session token for userID with the given role.
func GenerateToken(userID string, role models.Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
