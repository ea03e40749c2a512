package catalog

import (
	"time"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeProduct is the aggregate type of product events
const AggregateTypeProduct = "Product"

// EventTypeProductPriceSynced is published after a sync changed stored prices.
const EventTypeProductPriceSynced = "ProductPriceSynced"

// VariantPriceChange records one variant sale price rewrite.
type VariantPriceChange struct {
	VariantID    uuid.UUID       `json:"variant_id"`
	OldSalePrice decimal.Decimal `json:"old_sale_price"`
	NewSalePrice decimal.Decimal `json:"new_sale_price"`
}

// ProductPriceSyncedEvent carries the outcome of one price synchronization
type ProductPriceSyncedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID            `json:"product_id"`
	Trigger        string               `json:"trigger"`
	Price          decimal.Decimal      `json:"price"`
	SalePrice      decimal.Decimal      `json:"sale_price"`
	OldPrice       decimal.Decimal      `json:"old_price"`
	OldSalePrice   decimal.Decimal      `json:"old_sale_price"`
	VariantChanges []VariantPriceChange `json:"variant_changes,omitempty"`
}

// NewProductPriceSyncedEvent creates a ProductPriceSyncedEvent
func NewProductPriceSyncedEvent(
	productID uuid.UUID,
	trigger string,
	oldPrice, oldSalePrice, price, salePrice decimal.Decimal,
	variantChanges []VariantPriceChange,
	at time.Time,
) *ProductPriceSyncedEvent {
	return &ProductPriceSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductPriceSynced, AggregateTypeProduct, productID, at),
		ProductID:       productID,
		Trigger:         trigger,
		Price:           price,
		SalePrice:       salePrice,
		OldPrice:        oldPrice,
		OldSalePrice:    oldSalePrice,
		VariantChanges:  variantChanges,
	}
}
