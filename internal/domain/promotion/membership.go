package promotion

import (
	"time"

	"github.com/google/uuid"
)

// Membership links a product to a campaign with the variants it covers.
// It is identified by (ProductID, CampaignID). An emptied scope is never stored.
type Membership struct {
	ProductID  uuid.UUID
	CampaignID uuid.UUID
	Scope      VariantScope
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewMembership creates a membership with the given scope.
func NewMembership(productID, campaignID uuid.UUID, scope VariantScope, now time.Time) *Membership {
	return &Membership{
		ProductID:  productID,
		CampaignID: campaignID,
		Scope:      scope,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Merge widens the scope with incoming. Merging never narrows a scope.
func (m *Membership) Merge(incoming VariantScope, now time.Time) {
	m.Scope = m.Scope.Union(incoming)
	m.UpdatedAt = now
}

// Remove subtracts variantIDs from the scope, materializing ALL against the
// product's current variants. It reports whether the scope became empty, in
// which case the membership must be deleted.
func (m *Membership) Remove(variantIDs, productVariants []uuid.UUID, now time.Time) (emptied bool) {
	m.Scope = m.Scope.Subtract(variantIDs, productVariants)
	m.UpdatedAt = now
	return m.Scope.IsEmpty()
}

// ActiveMembership is a membership joined with a campaign that is active at
// the time it was loaded.
type ActiveMembership struct {
	Campaign Campaign
	Scope    VariantScope
}
