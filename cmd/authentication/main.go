// This is a **mock identity provider**, designed to issue session tokens
// for the job board, simulating user authentication.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
	tokenTTL      = 24 * time.Hour
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token  string      `json:"token"`
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
}

// tokenHandler issues a token for ?user=<id>&role=<job_seeker|employer|admin>.
// A missing user gets a random id; a missing role defaults to job_seeker.
func tokenHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user"))
		if userID == "" {
			userID = uuid.NewString()
		}
		role := models.Role(strings.TrimSpace(r.URL.Query().Get("role")))
		if role == "" {
			role = models.RoleJobSeeker
		}
		if !role.Valid() {
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		token, err := auth.GenerateToken(userID, role, secret, tokenTTL)
		if err != nil {
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		resp := TokenResponse{Token: token, UserID: userID, Role: role}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, "Failed to encode token", http.StatusInternalServerError)
		}
	}
}

func main() {
	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = defaultPort
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(secret))

	log.Printf("Authentication service running on port %s", port)
	server := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	log.Fatal(server.ListenAndServe())
}
