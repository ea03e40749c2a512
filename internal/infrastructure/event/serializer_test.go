package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_Envelope(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	productID := uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := catalog.NewProductPriceSyncedEvent(productID, "schedule",
		decimal.NewFromInt(100), decimal.NewFromInt(100),
		decimal.NewFromInt(100), decimal.NewFromInt(80),
		nil, at)

	data, err := s.Serialize(event)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, event.EventID(), env.ID)
	assert.Equal(t, catalog.EventTypeProductPriceSynced, env.Type)
	assert.Equal(t, catalog.AggregateTypeProduct, env.AggregateType)
	assert.Equal(t, productID, env.AggregateID)
	assert.True(t, at.Equal(env.OccurredAt))

	decoded, err := s.Deserialize(data)
	require.NoError(t, err)
	synced, ok := decoded.(*catalog.ProductPriceSyncedEvent)
	require.True(t, ok)
	assert.Equal(t, productID, synced.ProductID)
	assert.Equal(t, "schedule", synced.Trigger)
	assert.True(t, decimal.NewFromInt(80).Equal(synced.SalePrice))
}

func TestEventSerializer_UnknownType(t *testing.T) {
	s := NewEventSerializer()

	data, err := s.Serialize(newTestEvent("Unregistered"))
	require.NoError(t, err)

	_, err = s.Deserialize(data)
	assert.ErrorContains(t, err, "unknown event type")
}

func TestEventSerializer_MalformedEnvelope(t *testing.T) {
	_, err := NewEventSerializer().Deserialize([]byte("{"))
	assert.Error(t, err)
}

func TestRegisterAllEvents(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	assert.Equal(t, []string{
		promotion.EventTypeCampaignCreated,
		promotion.EventTypeCampaignDeleted,
		promotion.EventTypeMembershipsChanged,
		promotion.EventTypeCampaignUpdated,
		catalog.EventTypeProductPriceSynced,
	}, s.RegisteredTypes())
}
