package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedJob marks a job bookmarked by a candidate.
type SavedJob struct {
	CandidateID string    `gorm:"size:128;primaryKey" json:"candidateId"`
	JobID       uuid.UUID `gorm:"type:char(36);primaryKey" json:"jobId"`
	Job         *Job      `gorm:"foreignKey:JobID" json:"job,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
