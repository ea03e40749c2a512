package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), time.Now().UTC()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)

	event := newTestEvent("TestEvent")
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	synced := newTestHandler("ProductPriceSynced")
	all := newTestHandler()
	bus.Subscribe(synced)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("ProductPriceSynced"),
		newTestEvent("CampaignCreated"),
	))

	assert.Len(t, synced.getHandled(), 1)
	assert.Len(t, all.getHandled(), 2)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("Ignored")
	bus.Subscribe(handler, "Chosen")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("Ignored"), newTestEvent("Chosen")))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, "Chosen", handler.getHandled()[0].EventType())
}

func TestInMemoryEventBus_HandlerErrorsAreJoined(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler("TestEvent")
	failing.err = errors.New("kafka unavailable")
	healthy := newTestHandler("TestEvent")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("TestEvent"))

	assert.ErrorIs(t, err, failing.err)
	assert.Len(t, healthy.getHandled(), 1, "other handlers still receive the event")
}

func TestInMemoryEventBus_RecoversFromPanics(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	panicking := newTestHandler("TestEvent")
	panicking.panicWith = "boom"
	healthy := newTestHandler("TestEvent")
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("TestEvent"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("TestEvent")))
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_StopRejectsPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))

	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("TestEvent")), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent("TestEvent")))
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("duplicate registration is ignored", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		r.Register(h, "A")
		r.Register(h, "A")
		r.Register(h)
		r.Register(h)

		assert.Len(t, r.GetHandlers("A"), 1)
		assert.Equal(t, 1, r.Count())
	})

	t.Run("type handlers come before wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		wildcard := newTestHandler()
		typed := newTestHandler()
		r.Register(wildcard)
		r.Register(typed, "A")

		handlers := r.GetHandlers("A")
		require.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wildcard, handlers[1])
	})

	t.Run("unregister removes every subscription", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		r.Register(h, "A", "B")
		r.Register(h)
		r.Unregister(h)

		assert.Empty(t, r.GetHandlers("A"))
		assert.Empty(t, r.GetHandlers("B"))
		assert.Zero(t, r.Count())
	})
}
