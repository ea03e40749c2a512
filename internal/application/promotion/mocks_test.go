package promotion

import (
	"context"
	"sync"
	"time"

	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateVariantSalePrice(ctx context.Context, variantID uuid.UUID, salePrice decimal.Decimal) error {
	args := m.Called(ctx, variantID, salePrice)
	return args.Error(0)
}

func (m *MockProductRepository) UpdatePrices(ctx context.Context, productID uuid.UUID, price, salePrice decimal.Decimal) error {
	args := m.Called(ctx, productID, price, salePrice)
	return args.Error(0)
}

// MockCampaignRepository is a mock implementation of promotion.CampaignRepository
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*promotion.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) FindAll(ctx context.Context, filter promotion.CampaignFilter) ([]promotion.Campaign, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]promotion.Campaign), args.Get(1).(int64), args.Error(2)
}

func (m *MockCampaignRepository) ExistsByNameKey(ctx context.Context, nameKey string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, nameKey, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCampaignRepository) FindBoundaryCrossing(ctx context.Context, from, to time.Time) ([]promotion.Campaign, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]promotion.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Save(ctx context.Context, campaign *promotion.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *MockCampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMembershipRepository is a mock implementation of promotion.MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Find(ctx context.Context, productID, campaignID uuid.UUID) (*promotion.Membership, error) {
	args := m.Called(ctx, productID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Membership), args.Error(1)
}

func (m *MockMembershipRepository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]promotion.Membership, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).([]promotion.Membership), args.Error(1)
}

func (m *MockMembershipRepository) FindProductIDsByCampaigns(ctx context.Context, campaignIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, campaignIDs)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockMembershipRepository) FindActiveByProduct(ctx context.Context, productID uuid.UUID, at time.Time) ([]promotion.ActiveMembership, error) {
	args := m.Called(ctx, productID, at)
	return args.Get(0).([]promotion.ActiveMembership), args.Error(1)
}

func (m *MockMembershipRepository) Save(ctx context.Context, membership *promotion.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, productID, campaignID uuid.UUID) error {
	args := m.Called(ctx, productID, campaignID)
	return args.Error(0)
}

func (m *MockMembershipRepository) DeleteByCampaign(ctx context.Context, campaignID uuid.UUID) error {
	args := m.Called(ctx, campaignID)
	return args.Error(0)
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// recordingRecorder captures sync measurements
type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []SyncOutcome
	runs     []*ScheduledSyncResult
}

func (r *recordingRecorder) RecordProductSync(_ context.Context, _ SyncTrigger, outcome SyncOutcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingRecorder) RecordScheduledRun(_ context.Context, result *ScheduledSyncResult, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, result)
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type testRepos struct {
	products    *MockProductRepository
	campaigns   *MockCampaignRepository
	memberships *MockMembershipRepository
	scope       *NoOpTransactionScope
}

func newTestRepos() *testRepos {
	r := &testRepos{
		products:    new(MockProductRepository),
		campaigns:   new(MockCampaignRepository),
		memberships: new(MockMembershipRepository),
	}
	r.scope = NewNoOpTransactionScope(r.products, r.campaigns, r.memberships)
	return r
}

func newProduct(price int64) *catalog.Product {
	p, err := catalog.NewProduct("Test product", d(price), testNow.Add(-time.Hour))
	if err != nil {
		panic(err)
	}
	return p
}

func newCampaign(rule promotion.DiscountRule) *promotion.Campaign {
	c, err := promotion.NewCampaign(promotion.CampaignFields{
		Name:      "Campaign " + uuid.NewString(),
		Discount:  rule,
		StartDate: testNow.Add(-24 * time.Hour),
		EndDate:   testNow.Add(24 * time.Hour),
		IsActive:  true,
	}, testNow.Add(-48*time.Hour))
	if err != nil {
		panic(err)
	}
	c.PullEvents()
	return c
}
