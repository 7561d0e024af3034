package db

import (
	"context"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"gorm.io/gorm/clause"
)

// GetAccount returns the moderation record of a principal or ErrNotFound.
func (r *Repository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).First(&account, "id = ?", id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &account, nil
}

// BanAccount records a ban, creating the account row if needed.
func (r *Repository) BanAccount(ctx context.Context, id, bannedBy string, at time.Time) (*models.Account, error) {
	account := &models.Account{ID: id, Banned: true, BannedBy: bannedBy, BannedAt: &at}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"banned", "banned_by", "banned_at"}),
		}).
		Create(account).Error
	if err != nil {
		return nil, translate(err)
	}
	return account, nil
}
