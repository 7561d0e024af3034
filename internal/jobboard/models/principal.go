// Package models defines the domain models of the job marketplace: principals,
// companies, job postings, candidate profiles, resumes, applications and saved jobs.
// Persistent models carry GORM tags and are migrated as-is by the db package.
package models

import "time"

// Role is the marketplace role claimed by a session.
type Role string

const (
	RoleJobSeeker Role = "job_seeker"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleJobSeeker, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// Principal is an authenticated actor. It is immutable for the duration of a request.
type Principal struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// Account stores local moderation state for a principal. The identity provider
// owns credentials; this table only records bans.
type Account struct {
	ID       string     `gorm:"size:128;primaryKey" json:"id"`
	Banned   bool       `json:"banned"`
	BannedBy string     `gorm:"size:128" json:"bannedBy,omitempty"`
	BannedAt *time.Time `json:"bannedAt,omitempty"`
}
