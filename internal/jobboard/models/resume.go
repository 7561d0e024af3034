package models

import (
	"time"

	"github.com/google/uuid"
)

// Resume references an uploaded document held by the blob store.
// At most one resume per candidate is primary; exactly one when any exist.
type Resume struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CandidateID  string    `gorm:"size:128;not null;index" json:"candidateId"`
	StorageRef   string    `gorm:"size:200;not null" json:"-"`
	OriginalName string    `gorm:"size:255" json:"originalName"`
	ContentType  string    `gorm:"size:100" json:"contentType"`
	Size         int64     `json:"size"`
	IsPrimary    bool      `json:"isPrimary"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

// ResumeUpload is the raw document submitted by a candidate.
type ResumeUpload struct {
	OriginalName string
	ContentType  string
	Data         []byte
}

// ResumeFile is a retrieved document.
type ResumeFile struct {
	Name        string
	ContentType string
	Data        []byte
}
