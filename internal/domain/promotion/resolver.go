package promotion

import "github.com/shopspring/decimal"

// Resolve returns the lowest price base can reach under any single rule.
// Rules never stack and the result never exceeds base.
func Resolve(base decimal.Decimal, rules []DiscountRule) decimal.Decimal {
	best := base
	for _, r := range rules {
		if c := r.Apply(base); c.LessThan(best) {
			best = c
		}
	}
	return best
}

// RoundPrice rounds p half-up to scale decimal places. Prices are never negative,
// so half away from zero is half-up.
func RoundPrice(p decimal.Decimal, scale int32) decimal.Decimal {
	return p.Round(scale)
}
