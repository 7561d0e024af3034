package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is a state of the application workflow.
type ApplicationStatus string

const (
	StatusApplied     ApplicationStatus = "applied"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusInterviewed ApplicationStatus = "interviewed"
	StatusRejected    ApplicationStatus = "rejected"
	StatusHired       ApplicationStatus = "hired"
)

// transitions lists the legal successors of each status. Terminal states have none.
var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusApplied:     {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusInterviewed, StatusRejected},
	StatusInterviewed: {StatusHired, StatusRejected},
	StatusRejected:    nil,
	StatusHired:       nil,
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no transition may leave s.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusHired
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NonTerminalStatuses returns the statuses from which a candidate may still withdraw.
func NonTerminalStatuses() []ApplicationStatus {
	return []ApplicationStatus{StatusApplied, StatusUnderReview, StatusInterviewed}
}

// Application links one candidate to one job. The pair is unique.
// Withdrawal deletes the row; it is not a status.
type Application struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CandidateID string    `gorm:"size:128;not null;uniqueIndex:idx_application_candidate_job" json:"candidateId"`
	JobID       uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_application_candidate_job;index" json:"jobId"`
	Job         *Job      `gorm:"foreignKey:JobID" json:"job,omitempty"`
	// ResumeID, ResumeRef and ResumeName snapshot the resume at creation time.
	ResumeID    *uuid.UUID        `gorm:"type:char(36)" json:"resumeId,omitempty"`
	ResumeRef   string            `gorm:"size:200" json:"-"`
	ResumeName  string            `gorm:"size:255" json:"resumeName,omitempty"`
	ResumeType  string            `gorm:"size:100" json:"-"`
	CoverLetter string            `gorm:"size:10000" json:"coverLetter,omitempty"`
	Status      ApplicationStatus `gorm:"size:20;not null;index" json:"status"`
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// HasResume reports whether a resume was attached when the application was created.
func (a *Application) HasResume() bool {
	return a.ResumeRef != ""
}

// ApplicationResult is the authoritative post-mutation state returned by workflow operations.
type ApplicationResult struct {
	Application    *Application `json:"application,omitempty"`
	JobID          uuid.UUID    `json:"jobId"`
	ApplicantCount int64        `json:"applicantCount"`
}
