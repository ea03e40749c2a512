package promotion

import (
	"time"

	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCampaignRequest represents a request to create a campaign
type CreateCampaignRequest struct {
	Name            string           `json:"name" binding:"required,min=1,max=255"`
	Description     string           `json:"description" binding:"max=2000"`
	DiscountPercent *decimal.Decimal `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount" binding:"omitempty,gte=0"`
	FixedPrice      *decimal.Decimal `json:"fixed_price" binding:"omitempty,gte=0"`
	StartDate       time.Time        `json:"start_date" binding:"required"`
	EndDate         time.Time        `json:"end_date" binding:"required"`
	IsActive        *bool            `json:"is_active"`
	TotalUsageLimit *int             `json:"total_usage_limit" binding:"omitempty,min=0"`
}

// UpdateCampaignRequest represents a partial campaign update
type UpdateCampaignRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description     *string          `json:"description" binding:"omitempty,max=2000"`
	DiscountPercent *decimal.Decimal `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount" binding:"omitempty,gte=0"`
	FixedPrice      *decimal.Decimal `json:"fixed_price" binding:"omitempty,gte=0"`
	StartDate       *time.Time       `json:"start_date"`
	EndDate         *time.Time       `json:"end_date"`
	IsActive        *bool            `json:"is_active"`
	TotalUsageLimit *int             `json:"total_usage_limit" binding:"omitempty,min=0"`
}

// ListCampaignsRequest represents campaign list query parameters
type ListCampaignsRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=all active upcoming expired inactive"`
	Search   string `form:"search" binding:"max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// MembershipItemRequest is one product of a membership batch
type MembershipItemRequest struct {
	ProductID  uuid.UUID   `json:"product_id" binding:"required"`
	VariantIDs []uuid.UUID `json:"variant_ids"`
}

// MembershipBatchRequest adds or removes products of a campaign
type MembershipBatchRequest struct {
	Items []MembershipItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToItems converts the request into service items
func (r MembershipBatchRequest) ToItems() []MembershipItem {
	items := make([]MembershipItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = MembershipItem{ProductID: it.ProductID, VariantIDs: it.VariantIDs}
	}
	return items
}

// CampaignResponse represents a campaign in API responses
type CampaignResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	DiscountType    string          `json:"discount_type"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FixedPrice      decimal.Decimal `json:"fixed_price"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	IsActive        bool            `json:"is_active"`
	Status          string          `json:"status"`
	TotalUsageLimit *int            `json:"total_usage_limit"`
	QuantityUsed    int             `json:"quantity_used"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

// VariantResponse represents a product variant inside a campaign detail
type VariantResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	SalePrice decimal.Decimal `json:"sale_price"`
	InScope   bool            `json:"in_scope"`
}

// CampaignProductResponse represents a member product of a campaign
type CampaignProductResponse struct {
	ProductID   uuid.UUID         `json:"product_id"`
	Name        string            `json:"name"`
	Price       decimal.Decimal   `json:"price"`
	SalePrice   decimal.Decimal   `json:"sale_price"`
	AllVariants bool              `json:"all_variants"`
	VariantIDs  []uuid.UUID       `json:"variant_ids"`
	Variants    []VariantResponse `json:"variants"`
}

// CampaignDetailResponse is a campaign with its member products
type CampaignDetailResponse struct {
	CampaignResponse
	Products []CampaignProductResponse `json:"products"`
}

// SyncResultResponse summarizes one product synchronization
type SyncResultResponse struct {
	ProductID       uuid.UUID       `json:"product_id"`
	Skipped         bool            `json:"skipped"`
	Changed         bool            `json:"changed"`
	Price           decimal.Decimal `json:"price"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	VariantsUpdated int             `json:"variants_updated"`
}

// MembershipBatchResponse reports a committed membership batch
type MembershipBatchResponse struct {
	CampaignID uuid.UUID            `json:"campaign_id"`
	ProductIDs []uuid.UUID          `json:"product_ids"`
	Synced     []SyncResultResponse `json:"synced"`
}

// ForceSyncFailure names a product whose resync failed
type ForceSyncFailure struct {
	ProductID uuid.UUID `json:"product_id"`
	Error     string    `json:"error"`
}

// ForceSyncResponse reports a best-effort resync of every member product
type ForceSyncResponse struct {
	CampaignID uuid.UUID          `json:"campaign_id"`
	Total      int                `json:"total"`
	Succeeded  int                `json:"succeeded"`
	Changed    int                `json:"changed"`
	Failed     int                `json:"failed"`
	Failures   []ForceSyncFailure `json:"failures,omitempty"`
}

// ToCampaignResponse converts a domain Campaign to a response
func ToCampaignResponse(c *promotion.Campaign, now time.Time) CampaignResponse {
	return CampaignResponse{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		DiscountType:    string(c.Discount.Kind()),
		DiscountPercent: c.Discount.Percent,
		DiscountAmount:  c.Discount.Amount,
		FixedPrice:      c.Discount.FixedPrice,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		IsActive:        c.IsActive,
		Status:          string(c.StatusAt(now)),
		TotalUsageLimit: c.TotalUsageLimit,
		QuantityUsed:    c.QuantityUsed,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Version:         c.Version,
	}
}

// ToCampaignProductResponse converts a member product and its scope to a response
func ToCampaignProductResponse(p *catalog.Product, scope promotion.VariantScope) CampaignProductResponse {
	resp := CampaignProductResponse{
		ProductID:   p.ID,
		Name:        p.Name,
		Price:       p.Price,
		SalePrice:   p.SalePrice,
		AllVariants: scope.IsAll(),
		VariantIDs:  scope.IDs(),
		Variants:    make([]VariantResponse, 0, len(p.Variants)),
	}
	if resp.VariantIDs == nil {
		resp.VariantIDs = []uuid.UUID{}
	}
	for _, v := range p.Variants {
		resp.Variants = append(resp.Variants, VariantResponse{
			ID:        v.ID,
			Name:      v.Name,
			SKU:       v.SKU,
			Price:     v.Price,
			SalePrice: v.SalePrice,
			InScope:   scope.Includes(v.ID),
		})
	}
	return resp
}

// ToSyncResultResponse converts a sync result to a response
func ToSyncResultResponse(r *SyncResult) SyncResultResponse {
	return SyncResultResponse{
		ProductID:       r.ProductID,
		Skipped:         r.Skipped,
		Changed:         r.Changed(),
		Price:           r.Price,
		SalePrice:       r.SalePrice,
		VariantsUpdated: len(r.VariantChanges),
	}
}

// ToMembershipBatchResponse converts a batch result to a response
func ToMembershipBatchResponse(r *MembershipBatchResult) MembershipBatchResponse {
	resp := MembershipBatchResponse{
		CampaignID: r.CampaignID,
		ProductIDs: r.ProductIDs,
		Synced:     make([]SyncResultResponse, 0, len(r.Syncs)),
	}
	for _, s := range r.Syncs {
		resp.Synced = append(resp.Synced, ToSyncResultResponse(s))
	}
	return resp
}
