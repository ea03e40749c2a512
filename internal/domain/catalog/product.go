package catalog

import (
	"strings"
	"time"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog item whose sale price is derived by the pricing engine.
// For products with variants, Price and SalePrice are aggregates of the variants.
type Product struct {
	shared.BaseAggregateRoot
	Name      string
	Price     decimal.Decimal
	SalePrice decimal.Decimal
	Variants  []ProductVariant
}

// ProductVariant is a purchasable option of a product with its own price.
type ProductVariant struct {
	shared.BaseEntity
	ProductID uuid.UUID
	Name      string
	SKU       string
	Price     decimal.Decimal
	SalePrice decimal.Decimal
}

// NewProduct creates a product without variants. Its sale price starts at the base price.
func NewProduct(name string, price decimal.Decimal, now time.Time) (*Product, error) {
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Name:              strings.TrimSpace(name),
		Price:             price,
		SalePrice:         price,
	}, nil
}

// AddVariant appends a variant priced at price.
func (p *Product) AddVariant(name, sku string, price decimal.Decimal, now time.Time) (*ProductVariant, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("Variant name cannot be empty")
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	for _, v := range p.Variants {
		if sku != "" && strings.EqualFold(v.SKU, sku) {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Variant SKU already exists on product")
		}
	}
	p.Variants = append(p.Variants, ProductVariant{
		BaseEntity: shared.NewBaseEntityAt(now),
		ProductID:  p.ID,
		Name:       strings.TrimSpace(name),
		SKU:        sku,
		Price:      price,
		SalePrice:  price,
	})
	p.Touch(now)
	return &p.Variants[len(p.Variants)-1], nil
}

// HasVariants reports whether the product is sold through variants.
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// VariantIDs returns the IDs of the product's current variants.
func (p *Product) VariantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Variants))
	for _, v := range p.Variants {
		ids = append(ids, v.ID)
	}
	return ids
}

// HasVariant reports whether id belongs to this product.
func (p *Product) HasVariant(id uuid.UUID) bool {
	for _, v := range p.Variants {
		if v.ID == id {
			return true
		}
	}
	return false
}

// Variant returns the variant with the given id, or nil.
func (p *Product) Variant(id uuid.UUID) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// ApplyPricing sets the aggregate prices and reports whether anything changed.
func (p *Product) ApplyPricing(price, salePrice decimal.Decimal, now time.Time) bool {
	if p.Price.Equal(price) && p.SalePrice.Equal(salePrice) {
		return false
	}
	p.Price = price
	p.SalePrice = salePrice
	p.Modified(now)
	return true
}

// ApplySalePrice sets the variant sale price and reports whether it changed.
func (v *ProductVariant) ApplySalePrice(salePrice decimal.Decimal, now time.Time) bool {
	if v.SalePrice.Equal(salePrice) {
		return false
	}
	v.SalePrice = salePrice
	v.Touch(now)
	return true
}

func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("Product name cannot exceed 200 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewValidationError("Price cannot be negative")
	}
	return nil
}
