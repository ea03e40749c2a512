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

// GormMembershipRepository implements promotion.MembershipRepository using GORM
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GormMembershipRepository
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Find finds the membership of a product in a campaign
func (r *GormMembershipRepository) Find(ctx context.Context, productID, campaignID uuid.UUID) (*promotion.Membership, error) {
	var model models.MembershipModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND campaign_id = ?", productID, campaignID).
		First(&model).Error; err != nil {
		return nil, translateError("find membership", err)
	}
	return model.ToDomain(), nil
}

// FindByCampaign lists every membership of a campaign, ordered by product
func (r *GormMembershipRepository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]promotion.Membership, error) {
	var rows []models.MembershipModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("product_id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError("find campaign memberships", err)
	}

	memberships := make([]promotion.Membership, 0, len(rows))
	for i := range rows {
		memberships = append(memberships, *rows[i].ToDomain())
	}
	return memberships, nil
}

// FindProductIDsByCampaigns returns the distinct member product IDs of the campaigns
func (r *GormMembershipRepository) FindProductIDsByCampaigns(ctx context.Context, campaignIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(campaignIDs) == 0 {
		return []uuid.UUID{}, nil
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.MembershipModel{}).
		Distinct("product_id").
		Where("campaign_id IN ?", campaignIDs).
		Order("product_id ASC").
		Pluck("product_id", &ids).Error; err != nil {
		return nil, translateError("find member products", err)
	}
	return ids, nil
}

// FindActiveByProduct loads the memberships of a product joined with their
// campaigns, keeping only campaigns enabled with start_date <= at <= end_date.
func (r *GormMembershipRepository) FindActiveByProduct(ctx context.Context, productID uuid.UUID, at time.Time) ([]promotion.ActiveMembership, error) {
	var rows []models.ActiveMembershipRow
	if err := r.db.WithContext(ctx).
		Table("campaign_memberships").
		Select("campaigns.*, campaign_memberships.variant_ids").
		Joins("JOIN campaigns ON campaigns.id = campaign_memberships.campaign_id").
		Where("campaign_memberships.product_id = ?", productID).
		Where("campaigns.is_active = ? AND campaigns.start_date <= ? AND campaigns.end_date >= ?", true, at, at).
		Order("campaigns.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, translateError("find active memberships", err)
	}

	active := make([]promotion.ActiveMembership, 0, len(rows))
	for i := range rows {
		active = append(active, rows[i].ToDomain())
	}
	return active, nil
}

// Save creates or updates a membership
func (r *GormMembershipRepository) Save(ctx context.Context, membership *promotion.Membership) error {
	if membership.Scope.IsEmpty() {
		return shared.NewValidationError("Membership variant scope cannot be empty")
	}
	return translateError("save membership", r.db.WithContext(ctx).Save(models.MembershipModelFromDomain(membership)).Error)
}

// Delete deletes one membership
func (r *GormMembershipRepository) Delete(ctx context.Context, productID, campaignID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("product_id = ? AND campaign_id = ?", productID, campaignID).
		Delete(&models.MembershipModel{})
	if result.Error != nil {
		return translateError("delete membership", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Campaign membership")
	}
	return nil
}

// DeleteByCampaign deletes every membership of a campaign
func (r *GormMembershipRepository) DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return translateError("delete campaign memberships",
		r.db.WithContext(ctx).Where("campaign_id = ?", campaignID).Delete(&models.MembershipModel{}).Error)
}

var _ promotion.MembershipRepository = (*GormMembershipRepository)(nil)
