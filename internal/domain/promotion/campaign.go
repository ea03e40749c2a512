package promotion

import (
	"strings"
	"time"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// CampaignStatus is the lifecycle state of a campaign at a given instant
type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusUpcoming CampaignStatus = "upcoming"
	CampaignStatusExpired  CampaignStatus = "expired"
	CampaignStatusInactive CampaignStatus = "inactive"
)

// IsValid checks if the status is a known value
func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusActive, CampaignStatusUpcoming, CampaignStatusExpired, CampaignStatusInactive:
		return true
	}
	return false
}

// Campaign is a time-bounded discount rule applied to its member products.
type Campaign struct {
	shared.BaseAggregateRoot
	Name            string
	Description     string
	Discount        DiscountRule
	StartDate       time.Time
	EndDate         time.Time
	IsActive        bool
	TotalUsageLimit *int
	QuantityUsed    int
}

// CampaignFields are the attributes supplied when creating a campaign
type CampaignFields struct {
	Name            string
	Description     string
	Discount        DiscountRule
	StartDate       time.Time
	EndDate         time.Time
	IsActive        bool
	TotalUsageLimit *int
}

// CampaignPatch is a partial update. Nil fields are left untouched.
// When any discount field is present the whole rule is replaced by the
// present fields, absent ones becoming zero.
type CampaignPatch struct {
	Name            *string
	Description     *string
	DiscountPercent *decimal.Decimal
	DiscountAmount  *decimal.Decimal
	FixedPrice      *decimal.Decimal
	StartDate       *time.Time
	EndDate         *time.Time
	IsActive        *bool
	TotalUsageLimit *int
}

func (p CampaignPatch) touchesDiscount() bool {
	return p.DiscountPercent != nil || p.DiscountAmount != nil || p.FixedPrice != nil
}

// NewCampaign validates fields and creates a campaign.
func NewCampaign(fields CampaignFields, now time.Time) (*Campaign, error) {
	c := &Campaign{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Name:              strings.TrimSpace(fields.Name),
		Description:       fields.Description,
		Discount:          fields.Discount,
		StartDate:         fields.StartDate,
		EndDate:           fields.EndDate,
		IsActive:          fields.IsActive,
		TotalUsageLimit:   normalizeUsageLimit(fields.TotalUsageLimit),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.Raise(NewCampaignCreatedEvent(c, now))
	return c, nil
}

// Apply applies patch and reports whether any pricing-relevant field changed:
// the discount rule, either date or the active flag.
func (c *Campaign) Apply(patch CampaignPatch, now time.Time) (pricingChanged bool, err error) {
	next := *c
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.touchesDiscount() {
		next.Discount = DiscountRule{
			Percent:    derefDecimal(patch.DiscountPercent),
			Amount:     derefDecimal(patch.DiscountAmount),
			FixedPrice: derefDecimal(patch.FixedPrice),
		}
	}
	if patch.StartDate != nil {
		next.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		next.EndDate = *patch.EndDate
	}
	if patch.IsActive != nil {
		next.IsActive = *patch.IsActive
	}
	if patch.TotalUsageLimit != nil {
		next.TotalUsageLimit = normalizeUsageLimit(patch.TotalUsageLimit)
	}
	if err := next.validate(); err != nil {
		return false, err
	}

	pricingChanged = !next.Discount.Equal(c.Discount) ||
		!next.StartDate.Equal(c.StartDate) ||
		!next.EndDate.Equal(c.EndDate) ||
		next.IsActive != c.IsActive

	*c = next
	c.Modified(now)
	c.Raise(NewCampaignUpdatedEvent(c, pricingChanged, now))
	return pricingChanged, nil
}

// MarkDeleted records the deletion event for the campaign.
func (c *Campaign) MarkDeleted(now time.Time) {
	c.Raise(NewCampaignDeletedEvent(c, now))
}

// IsActiveAt reports whether the campaign applies at t: enabled and
// startDate <= t <= endDate.
func (c *Campaign) IsActiveAt(t time.Time) bool {
	return c.IsActive && !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// StatusAt returns the lifecycle status at t.
func (c *Campaign) StatusAt(t time.Time) CampaignStatus {
	switch {
	case !c.IsActive:
		return CampaignStatusInactive
	case t.Before(c.StartDate):
		return CampaignStatusUpcoming
	case t.After(c.EndDate):
		return CampaignStatusExpired
	default:
		return CampaignStatusActive
	}
}

// NameKey returns the case-folded name used for uniqueness.
func (c *Campaign) NameKey() string {
	return NameKey(c.Name)
}

// NameKey case-folds a campaign name for uniqueness checks.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func (c *Campaign) validate() error {
	if c.Name == "" {
		return shared.NewValidationError("Campaign name cannot be empty")
	}
	if len(c.Name) > 255 {
		return shared.NewValidationError("Campaign name cannot exceed 255 characters")
	}
	if err := c.Discount.Validate(); err != nil {
		return err
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return shared.NewValidationError("Campaign start_date and end_date are required")
	}
	if !c.StartDate.Before(c.EndDate) {
		return shared.NewValidationError("Campaign start_date must be before end_date")
	}
	if c.QuantityUsed < 0 {
		return shared.NewValidationError("Campaign quantity_used cannot be negative")
	}
	return nil
}

func normalizeUsageLimit(limit *int) *int {
	if limit == nil || *limit <= 0 {
		return nil
	}
	v := *limit
	return &v
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
