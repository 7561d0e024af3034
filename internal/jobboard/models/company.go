package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Company is the employer profile. Each employer owns exactly one company.
type Company struct {
	ID          uuid.UUID                   `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID     string                      `gorm:"size:128;not null;uniqueIndex" json:"ownerId"`
	Name        string                      `gorm:"size:200;not null" json:"name"`
	Website     string                      `gorm:"size:500" json:"website"`
	Description string                      `gorm:"size:5000" json:"description"`
	Locations   datatypes.JSONSlice[string] `json:"locations"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}
