package models

import (
	"time"

	"gorm.io/datatypes"
)

// CandidateProfile holds the job seeker's self-description used for matching.
// A missing row is equivalent to an empty profile.
type CandidateProfile struct {
	CandidateID        string                      `gorm:"size:128;primaryKey" json:"candidateId"`
	Name               string                      `gorm:"size:200" json:"name"`
	Location           string                      `gorm:"size:200" json:"location"`
	Headline           string                      `gorm:"size:300" json:"headline"`
	Experience         string                      `gorm:"size:10000" json:"experience"`
	Skills             datatypes.JSONSlice[string] `json:"skills"`
	YearsOfExperience  int                         `json:"yearsOfExperience"`
	PreferredLocations datatypes.JSONSlice[string] `json:"preferredLocations"`
	PreferredRoles     datatypes.JSONSlice[string] `json:"preferredRoles"`
	UpdatedAt          time.Time                   `json:"updatedAt"`
}

// EmptyProfile returns the profile a candidate has before saving anything.
func EmptyProfile(candidateID string) *CandidateProfile {
	return &CandidateProfile{
		CandidateID:        candidateID,
		Skills:             datatypes.JSONSlice[string]{},
		PreferredLocations: datatypes.JSONSlice[string]{},
		PreferredRoles:     datatypes.JSONSlice[string]{},
	}
}
