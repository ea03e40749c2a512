package promotion

import (
	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VariantPricing is the computed sale price of one variant
type VariantPricing struct {
	VariantID uuid.UUID
	SalePrice decimal.Decimal
}

// PricingPlan is the full recomputation of a product's derived prices.
type PricingPlan struct {
	Variants  []VariantPricing
	Price     decimal.Decimal
	SalePrice decimal.Decimal
}

// PlanProductPricing recomputes every derived price of product from the
// campaigns active on it. It does not mutate product.
//
// Each variant sees only campaigns whose scope includes it. With variants, the
// product price and sale price are the minimum over variants; without variants
// the sale price resolves the product's own price against every campaign.
func PlanProductPricing(product *catalog.Product, active []ActiveMembership, scale int32) PricingPlan {
	if !product.HasVariants() {
		return PricingPlan{
			Price:     product.Price,
			SalePrice: salePrice(product.Price, rulesOf(active, nil), scale),
		}
	}

	plan := PricingPlan{Variants: make([]VariantPricing, 0, len(product.Variants))}
	for i, v := range product.Variants {
		id := v.ID
		sale := salePrice(v.Price, rulesOf(active, &id), scale)
		plan.Variants = append(plan.Variants, VariantPricing{VariantID: v.ID, SalePrice: sale})

		if i == 0 || v.Price.LessThan(plan.Price) {
			plan.Price = v.Price
		}
		if i == 0 || sale.LessThan(plan.SalePrice) {
			plan.SalePrice = sale
		}
	}
	return plan
}

// salePrice rounds the resolved price and never lets rounding lift it above base.
func salePrice(base decimal.Decimal, rules []DiscountRule, scale int32) decimal.Decimal {
	return decimal.Min(base, RoundPrice(Resolve(base, rules), scale))
}

// rulesOf collects the rules that apply to variantID, or to the product as a
// whole when variantID is nil.
func rulesOf(active []ActiveMembership, variantID *uuid.UUID) []DiscountRule {
	rules := make([]DiscountRule, 0, len(active))
	for _, m := range active {
		if variantID != nil && !m.Scope.Includes(*variantID) {
			continue
		}
		rules = append(rules, m.Campaign.Discount)
	}
	return rules
}
