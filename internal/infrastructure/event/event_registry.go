package event

import (
	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
)

// RegisterAllEvents registers every domain event type with the serializer
func RegisterAllEvents(serializer *EventSerializer) {
	// Catalog
	serializer.Register(catalog.EventTypeProductPriceSynced, &catalog.ProductPriceSyncedEvent{})

	// Promotion
	serializer.Register(promotion.EventTypeCampaignCreated, &promotion.CampaignCreatedEvent{})
	serializer.Register(promotion.EventTypeCampaignUpdated, &promotion.CampaignUpdatedEvent{})
	serializer.Register(promotion.EventTypeCampaignDeleted, &promotion.CampaignDeletedEvent{})
	serializer.Register(promotion.EventTypeMembershipsChanged, &promotion.MembershipsChangedEvent{})
}
