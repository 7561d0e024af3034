package db

import (
	"context"
	"errors"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"gorm.io/gorm/clause"
)

// GetProfile returns the stored profile, or an empty one when none was saved.
func (r *Repository) GetProfile(ctx context.Context, candidateID string) (*models.CandidateProfile, error) {
	var profile models.CandidateProfile
	err := translate(r.db.WithContext(ctx).First(&profile, "candidate_id = ?", candidateID).Error)
	if errors.Is(err, e.ErrNotFound) {
		return models.EmptyProfile(candidateID), nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) SaveProfile(ctx context.Context, profile *models.CandidateProfile) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "candidate_id"}}, UpdateAll: true}).
		Create(profile).Error
	return translate(err)
}

// LockCandidate makes sure the candidate has a profile row and locks it for the rest of
// the transaction. It serializes operations on the candidate's resume set even when the
// set is empty.
func (r *Repository) LockCandidate(ctx context.Context, candidateID string) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "candidate_id"}}, DoNothing: true}).
		Create(models.EmptyProfile(candidateID)).Error
	if err != nil {
		return translate(err)
	}
	var profile models.CandidateProfile
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("candidate_id").
		First(&profile, "candidate_id = ?", candidateID).Error
	return translate(err)
}

// CountCandidates counts profile rows. LockCandidate creates one on a candidate's first
// resume or application, so candidates who never wrote anything are not counted.
func (r *Repository) CountCandidates(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CandidateProfile{}).Count(&count).Error
	return count, translate(err)
}
