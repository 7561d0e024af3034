package db

import (
	"context"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetCompanyByOwner(ctx context.Context, ownerID string) (*models.Company, error) {
	var company models.Company
	result := r.db.WithContext(ctx).First(&company, "owner_id = ?", ownerID)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &company, nil
}

// EnsureCompany inserts company unless its owner already has one, and returns the
// stored row either way.
func (r *Repository) EnsureCompany(ctx context.Context, company *models.Company) (*models.Company, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(company).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.GetCompanyByOwner(ctx, company.OwnerID)
}

func (r *Repository) UpdateCompany(ctx context.Context, company *models.Company) error {
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("id = ?", company.ID).
		Updates(map[string]interface{}{
			"name":        company.Name,
			"website":     company.Website,
			"description": company.Description,
			"locations":   company.Locations,
			"updated_at":  company.UpdatedAt,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) CountCompanies(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Company{}).Count(&count).Error
	return count, translate(err)
}

// CountCompanyApplications counts applications across every job of a company.
func (r *Repository) CountCompanyApplications(ctx context.Context, company *models.Company) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Joins("JOIN jobs ON jobs.id = applications.job_id").
		Where("jobs.company_id = ?", company.ID).
		Count(&count).Error
	return count, translate(err)
}
