package promotion

import (
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DiscountKind names the single non-zero component of a DiscountRule
type DiscountKind string

const (
	DiscountKindNone       DiscountKind = ""
	DiscountKindPercent    DiscountKind = "percent"
	DiscountKindAmount     DiscountKind = "amount"
	DiscountKindFixedPrice DiscountKind = "fixed_price"
)

var hundred = decimal.NewFromInt(100)

// DiscountRule is the pricing rule carried by a campaign.
// Exactly one of the three components is non-zero on a valid rule.
type DiscountRule struct {
	Percent    decimal.Decimal
	Amount     decimal.Decimal
	FixedPrice decimal.Decimal
}

// PercentOff builds a percentage rule.
func PercentOff(pct decimal.Decimal) DiscountRule {
	return DiscountRule{Percent: pct}
}

// AmountOff builds a flat amount rule.
func AmountOff(amount decimal.Decimal) DiscountRule {
	return DiscountRule{Amount: amount}
}

// FixedPriceOf builds a fixed price rule.
func FixedPriceOf(price decimal.Decimal) DiscountRule {
	return DiscountRule{FixedPrice: price}
}

// Kind returns the component Apply will use. Precedence is fixed price, amount, percent.
func (r DiscountRule) Kind() DiscountKind {
	switch {
	case r.FixedPrice.IsPositive():
		return DiscountKindFixedPrice
	case r.Amount.IsPositive():
		return DiscountKindAmount
	case r.Percent.IsPositive():
		return DiscountKindPercent
	default:
		return DiscountKindNone
	}
}

// Apply returns the candidate price of base under this rule, clamped at zero.
// A rule without a positive component leaves base unchanged.
func (r DiscountRule) Apply(base decimal.Decimal) decimal.Decimal {
	var candidate decimal.Decimal
	switch r.Kind() {
	case DiscountKindFixedPrice:
		candidate = r.FixedPrice
	case DiscountKindAmount:
		candidate = base.Sub(r.Amount)
	case DiscountKindPercent:
		candidate = base.Mul(hundred.Sub(r.Percent)).Div(hundred)
	default:
		candidate = base
	}
	if candidate.IsNegative() {
		return decimal.Zero
	}
	return candidate
}

// Validate enforces that exactly one component is set and within range.
func (r DiscountRule) Validate() error {
	if r.Percent.IsNegative() || r.Amount.IsNegative() || r.FixedPrice.IsNegative() {
		return shared.NewValidationError("Discount values cannot be negative")
	}
	set := 0
	for _, v := range []decimal.Decimal{r.Percent, r.Amount, r.FixedPrice} {
		if v.IsPositive() {
			set++
		}
	}
	if set == 0 {
		return shared.NewValidationError("Exactly one of discount_percent, discount_amount or fixed_price must be set")
	}
	if set > 1 {
		return shared.NewValidationError("Only one of discount_percent, discount_amount or fixed_price may be set")
	}
	if r.Percent.GreaterThan(hundred) {
		return shared.NewValidationError("Discount percent must be within (0, 100]")
	}
	return nil
}

// Equal reports whether both rules carry the same values.
func (r DiscountRule) Equal(o DiscountRule) bool {
	return r.Percent.Equal(o.Percent) && r.Amount.Equal(o.Amount) && r.FixedPrice.Equal(o.FixedPrice)
}
