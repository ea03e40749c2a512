package promotion

import (
	"time"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeCampaign is the aggregate type of campaign events
const AggregateTypeCampaign = "Campaign"

// Event type constants
const (
	EventTypeCampaignCreated    = "CampaignCreated"
	EventTypeCampaignUpdated    = "CampaignUpdated"
	EventTypeCampaignDeleted    = "CampaignDeleted"
	EventTypeMembershipsChanged = "CampaignMembershipsChanged"
)

// CampaignCreatedEvent is published when a campaign is created
type CampaignCreatedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID `json:"campaign_id"`
	Name       string    `json:"name"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// NewCampaignCreatedEvent creates a CampaignCreatedEvent
func NewCampaignCreatedEvent(c *Campaign, at time.Time) *CampaignCreatedEvent {
	return &CampaignCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignCreated, AggregateTypeCampaign, c.ID, at),
		CampaignID:      c.ID,
		Name:            c.Name,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
	}
}

// CampaignUpdatedEvent is published when a campaign is updated
type CampaignUpdatedEvent struct {
	shared.BaseDomainEvent
	CampaignID     uuid.UUID `json:"campaign_id"`
	PricingChanged bool      `json:"pricing_changed"`
}

// NewCampaignUpdatedEvent creates a CampaignUpdatedEvent
func NewCampaignUpdatedEvent(c *Campaign, pricingChanged bool, at time.Time) *CampaignUpdatedEvent {
	return &CampaignUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignUpdated, AggregateTypeCampaign, c.ID, at),
		CampaignID:      c.ID,
		PricingChanged:  pricingChanged,
	}
}

// CampaignDeletedEvent is published when a campaign is deleted
type CampaignDeletedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID `json:"campaign_id"`
	Name       string    `json:"name"`
}

// NewCampaignDeletedEvent creates a CampaignDeletedEvent
func NewCampaignDeletedEvent(c *Campaign, at time.Time) *CampaignDeletedEvent {
	return &CampaignDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCampaignDeleted, AggregateTypeCampaign, c.ID, at),
		CampaignID:      c.ID,
		Name:            c.Name,
	}
}

// MembershipsChangedEvent is published after a membership batch commits
type MembershipsChangedEvent struct {
	shared.BaseDomainEvent
	CampaignID uuid.UUID   `json:"campaign_id"`
	Operation  string      `json:"operation"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// NewMembershipsChangedEvent creates a MembershipsChangedEvent
func NewMembershipsChangedEvent(campaignID uuid.UUID, operation string, productIDs []uuid.UUID, at time.Time) *MembershipsChangedEvent {
	return &MembershipsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMembershipsChanged, AggregateTypeCampaign, campaignID, at),
		CampaignID:      campaignID,
		Operation:       operation,
		ProductIDs:      productIDs,
	}
}
