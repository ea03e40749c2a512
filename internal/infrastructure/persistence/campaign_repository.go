package persistence

import (
	"context"
	"time"

	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCampaignRepository implements promotion.CampaignRepository using GORM
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new GormCampaignRepository
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// FindByID finds a campaign by its ID
func (r *GormCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Campaign, error) {
	var model models.CampaignModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find campaign", err)
	}
	return model.ToDomain(), nil
}

// FindAll lists campaigns matching the filter and returns the total count
func (r *GormCampaignRepository) FindAll(ctx context.Context, filter promotion.CampaignFilter) ([]promotion.Campaign, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.CampaignModel{}), filter).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError("count campaigns", err)
	}

	var rows []models.CampaignModel
	if err := paginate(query, filter.Filter, campaignSortColumns, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, translateError("list campaigns", err)
	}

	campaigns := make([]promotion.Campaign, 0, len(rows))
	for i := range rows {
		campaigns = append(campaigns, *rows[i].ToDomain())
	}
	return campaigns, total, nil
}

// ExistsByNameKey checks if another campaign already uses the case-folded name
func (r *GormCampaignRepository) ExistsByNameKey(ctx context.Context, nameKey string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.CampaignModel{}).Where("name_key = ?", nameKey)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, translateError("count campaigns by name", err)
	}
	return count > 0, nil
}

// FindBoundaryCrossing finds enabled campaigns whose start or end date lies in [from, to]
func (r *GormCampaignRepository) FindBoundaryCrossing(ctx context.Context, from, to time.Time) ([]promotion.Campaign, error) {
	var rows []models.CampaignModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("(start_date BETWEEN ? AND ?) OR (end_date BETWEEN ? AND ?)", from, to, from, to).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError("find boundary crossing campaigns", err)
	}

	campaigns := make([]promotion.Campaign, 0, len(rows))
	for i := range rows {
		campaigns = append(campaigns, *rows[i].ToDomain())
	}
	return campaigns, nil
}

// Save creates or updates a campaign
func (r *GormCampaignRepository) Save(ctx context.Context, campaign *promotion.Campaign) error {
	return translateError("save campaign", r.db.WithContext(ctx).Save(models.CampaignModelFromDomain(campaign)).Error)
}

// Delete deletes a campaign
func (r *GormCampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CampaignModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete campaign", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Campaign")
	}
	return nil
}

// applyFilterWithoutPagination applies search and status filters
func (r *GormCampaignRepository) applyFilterWithoutPagination(query *gorm.DB, filter promotion.CampaignFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name "+likeOperator(r.db)+" ? OR description "+likeOperator(r.db)+" ?", pattern, pattern)
	}

	at := filter.At
	if at.IsZero() {
		at = time.Now()
	}
	switch filter.Status {
	case promotion.CampaignStatusActive:
		query = query.Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, at, at)
	case promotion.CampaignStatusUpcoming:
		query = query.Where("is_active = ? AND start_date > ?", true, at)
	case promotion.CampaignStatusExpired:
		query = query.Where("is_active = ? AND end_date < ?", true, at)
	case promotion.CampaignStatusInactive:
		query = query.Where("is_active = ?", false)
	}
	return query
}

// likeOperator returns the case-insensitive LIKE of the connected dialect
func likeOperator(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "ILIKE"
	}
	return "LIKE"
}

var _ promotion.CampaignRepository = (*GormCampaignRepository)(nil)
