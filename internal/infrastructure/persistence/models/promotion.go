package models

import (
	"time"

	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignModel is the persistence model for the Campaign aggregate.
type CampaignModel struct {
	AggregateModel
	Name            string          `gorm:"type:varchar(255);not null"`
	NameKey         string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_campaigns_name_key"`
	Description     string          `gorm:"type:text"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FixedPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StartDate       time.Time       `gorm:"not null;index:idx_campaigns_window,priority:1"`
	EndDate         time.Time       `gorm:"not null;index:idx_campaigns_window,priority:2"`
	IsActive        bool            `gorm:"not null;default:true;index:idx_campaigns_window,priority:3"`
	TotalUsageLimit *int
	QuantityUsed    int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CampaignModel) TableName() string {
	return "campaigns"
}

// ToDomain converts the persistence model to a domain Campaign.
func (m *CampaignModel) ToDomain() *promotion.Campaign {
	return &promotion.Campaign{
		BaseAggregateRoot: m.AggregateModel.root(),
		Name:              m.Name,
		Description:       m.Description,
		Discount: promotion.DiscountRule{
			Percent:    m.DiscountPercent,
			Amount:     m.DiscountAmount,
			FixedPrice: m.FixedPrice,
		},
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		IsActive:        m.IsActive,
		TotalUsageLimit: m.TotalUsageLimit,
		QuantityUsed:    m.QuantityUsed,
	}
}

// FromDomain populates the persistence model from a domain Campaign.
func (m *CampaignModel) FromDomain(c *promotion.Campaign) {
	m.AggregateModel = aggregateModelOf(c.BaseAggregateRoot)
	m.Name = c.Name
	m.NameKey = c.NameKey()
	m.Description = c.Description
	m.DiscountPercent = c.Discount.Percent
	m.DiscountAmount = c.Discount.Amount
	m.FixedPrice = c.Discount.FixedPrice
	m.StartDate = c.StartDate
	m.EndDate = c.EndDate
	m.IsActive = c.IsActive
	m.TotalUsageLimit = c.TotalUsageLimit
	m.QuantityUsed = c.QuantityUsed
}

// CampaignModelFromDomain creates a new persistence model from a domain Campaign.
func CampaignModelFromDomain(c *promotion.Campaign) *CampaignModel {
	m := &CampaignModel{}
	m.FromDomain(c)
	return m
}

// MembershipModel links a product to a campaign. (product_id, campaign_id) is the key.
type MembershipModel struct {
	ProductID  uuid.UUID           `gorm:"type:uuid;primaryKey"`
	CampaignID uuid.UUID           `gorm:"type:uuid;primaryKey;index"`
	VariantIDs *VariantScopeColumn `gorm:"column:variant_ids"`
	CreatedAt  time.Time           `gorm:"not null"`
	UpdatedAt  time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MembershipModel) TableName() string {
	return "campaign_memberships"
}

// ToDomain converts the persistence model to a domain Membership.
func (m *MembershipModel) ToDomain() *promotion.Membership {
	return &promotion.Membership{
		ProductID:  m.ProductID,
		CampaignID: m.CampaignID,
		Scope:      m.VariantIDs.Scope(),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// MembershipModelFromDomain creates a persistence model from a domain Membership.
func MembershipModelFromDomain(ms *promotion.Membership) *MembershipModel {
	return &MembershipModel{
		ProductID:  ms.ProductID,
		CampaignID: ms.CampaignID,
		VariantIDs: NewVariantScopeColumn(ms.Scope),
		CreatedAt:  ms.CreatedAt,
		UpdatedAt:  ms.UpdatedAt,
	}
}

// ActiveMembershipRow is the result of joining memberships with their active campaigns.
type ActiveMembershipRow struct {
	CampaignModel
	VariantIDs *VariantScopeColumn `gorm:"column:variant_ids"`
}

// ToDomain converts the joined row to a domain ActiveMembership.
func (r *ActiveMembershipRow) ToDomain() promotion.ActiveMembership {
	return promotion.ActiveMembership{
		Campaign: *r.CampaignModel.ToDomain(),
		Scope:    r.VariantIDs.Scope(),
	}
}

// AllModels lists every model for AutoMigrate.
func AllModels() []any {
	return []any{
		&ProductModel{},
		&ProductVariantModel{},
		&CampaignModel{},
		&MembershipModel{},
	}
}
