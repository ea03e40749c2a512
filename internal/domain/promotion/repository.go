package promotion

import (
	"context"
	"time"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
)

// CampaignFilter narrows campaign listings
type CampaignFilter struct {
	shared.Filter
	// Status selects by lifecycle state at At; empty means all.
	Status CampaignStatus
	At     time.Time
}

// CampaignRepository defines the interface for campaign persistence
type CampaignRepository interface {
	// FindByID finds a campaign by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Campaign, error)

	// FindAll lists campaigns matching the filter and returns the total count
	FindAll(ctx context.Context, filter CampaignFilter) ([]Campaign, int64, error)

	// ExistsByNameKey checks if another campaign already uses the case-folded name
	ExistsByNameKey(ctx context.Context, nameKey string, excludeID *uuid.UUID) (bool, error)

	// FindBoundaryCrossing finds enabled campaigns whose start or end date lies in [from, to]
	FindBoundaryCrossing(ctx context.Context, from, to time.Time) ([]Campaign, error)

	// Save creates or updates a campaign
	Save(ctx context.Context, campaign *Campaign) error

	// Delete deletes a campaign
	Delete(ctx context.Context, id uuid.UUID) error
}

// MembershipRepository defines the interface for campaign membership persistence
type MembershipRepository interface {
	// Find finds the membership of a product in a campaign
	Find(ctx context.Context, productID, campaignID uuid.UUID) (*Membership, error)

	// FindByCampaign lists every membership of a campaign
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]Membership, error)

	// FindProductIDsByCampaigns returns the distinct member product IDs of the campaigns
	FindProductIDsByCampaigns(ctx context.Context, campaignIDs []uuid.UUID) ([]uuid.UUID, error)

	// FindActiveByProduct loads the memberships of a product whose campaign is active at
	FindActiveByProduct(ctx context.Context, productID uuid.UUID, at time.Time) ([]ActiveMembership, error)

	// Save creates or updates a membership
	Save(ctx context.Context, membership *Membership) error

	// Delete deletes one membership
	Delete(ctx context.Context, productID, campaignID uuid.UUID) error

	// DeleteByCampaign deletes every membership of a campaign
	DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) error
}
