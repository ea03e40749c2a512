package persistence

import (
	"context"
	"testing"
	"time"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var flowNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// pricingFlow wires the real services over an in-memory SQLite database
type pricingFlow struct {
	db          *gorm.DB
	products    *GormProductRepository
	campaigns   *GormCampaignRepository
	memberships *GormMembershipRepository
	syncer      *apppromotion.PriceSyncService
	campaignSvc *apppromotion.CampaignService
	scheduled   *apppromotion.ScheduledSyncService
}

func setupPricingFlow(t *testing.T) *pricingFlow {
	t.Helper()
	database, err := Open(context.Background(),
		&config.DatabaseConfig{Driver: "sqlite", DBName: ":memory:"},
		WithLogger(logger.Default.LogMode(logger.Silent)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.AutoMigrate(context.Background()))
	return newPricingFlow(database.DB)
}

// newPricingFlow wires repositories and services over an already migrated database
func newPricingFlow(db *gorm.DB) *pricingFlow {
	txScope := NewGormTransactionScope(db)
	f := &pricingFlow{
		db:          db,
		products:    NewGormProductRepository(db),
		campaigns:   NewGormCampaignRepository(db),
		memberships: NewGormMembershipRepository(db),
	}
	f.syncer = apppromotion.NewPriceSyncService(txScope, zap.NewNop(),
		apppromotion.WithClock(func() time.Time { return flowNow }))
	membershipSvc := apppromotion.NewMembershipService(txScope, f.syncer, nil, zap.NewNop())
	f.campaignSvc = apppromotion.NewCampaignService(txScope, f.campaigns, f.memberships, f.products,
		f.syncer, membershipSvc, nil, zap.NewNop())
	f.scheduled = apppromotion.NewScheduledSyncService(f.campaigns, f.memberships, f.syncer,
		20*time.Minute, nil, zap.NewNop())
	return f
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func dp(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

func (f *pricingFlow) product(t *testing.T, price int64, variantPrices ...int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Product "+uuid.NewString()[:8], d(price), flowNow)
	require.NoError(t, err)
	for i, vp := range variantPrices {
		_, err := p.AddVariant("Variant", "SKU-"+string(rune('A'+i)), d(vp), flowNow)
		require.NoError(t, err)
	}
	require.NoError(t, f.products.Save(context.Background(), p))
	return p
}

func (f *pricingFlow) campaign(t *testing.T, name string, percent, amount, fixed *decimal.Decimal) uuid.UUID {
	t.Helper()
	resp, err := f.campaignSvc.Create(context.Background(), apppromotion.CreateCampaignRequest{
		Name:            name,
		DiscountPercent: percent,
		DiscountAmount:  amount,
		FixedPrice:      fixed,
		StartDate:       flowNow.Add(-24 * time.Hour),
		EndDate:         flowNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return resp.ID
}

func (f *pricingFlow) add(t *testing.T, campaignID, productID uuid.UUID, variantIDs ...uuid.UUID) {
	t.Helper()
	_, err := f.campaignSvc.AddProducts(context.Background(), campaignID, apppromotion.MembershipBatchRequest{
		Items: []apppromotion.MembershipItemRequest{{ProductID: productID, VariantIDs: variantIDs}},
	})
	require.NoError(t, err)
}

func (f *pricingFlow) reload(t *testing.T, id uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]any{"want %d got %s", want, got.String()}, msgAndArgs...)...)
}

func TestPricingFlow_PercentCampaignOnWholeProduct(t *testing.T) {
	f := setupPricingFlow(t)
	p := f.product(t, 100000)
	c := f.campaign(t, "Spring Sale", dp(10), nil, nil)

	f.add(t, c, p.ID)

	got := f.reload(t, p.ID)
	assertDecimal(t, 100000, got.Price)
	assertDecimal(t, 90000, got.SalePrice)
}

func TestPricingFlow_LowestCandidateWins(t *testing.T) {
	f := setupPricingFlow(t)
	p := f.product(t, 100000)
	fixed := f.campaign(t, "Fixed", nil, nil, dp(95000))
	amount := f.campaign(t, "Amount", nil, dp(20000), nil)

	f.add(t, fixed, p.ID)
	f.add(t, amount, p.ID)

	assertDecimal(t, 80000, f.reload(t, p.ID).SalePrice)
}

func TestPricingFlow_VariantScope(t *testing.T) {
	f := setupPricingFlow(t)
	p := f.product(t, 0, 50000, 50000)
	v1, v2 := p.Variants[0].ID, p.Variants[1].ID
	c := f.campaign(t, "Half Off", dp(50), nil, nil)

	f.add(t, c, p.ID, v2)

	got := f.reload(t, p.ID)
	require.Len(t, got.Variants, 2)
	assertDecimal(t, 50000, got.Variant(v1).SalePrice, "excluded variant keeps its price")
	assertDecimal(t, 25000, got.Variant(v2).SalePrice)
	assertDecimal(t, 50000, got.Price)
	assertDecimal(t, 25000, got.SalePrice)
}

func TestPricingFlow_DeleteCampaignRestoresBaseline(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 100000)
	c := f.campaign(t, "Clearance", nil, dp(20000), nil)
	f.add(t, c, p.ID)
	assertDecimal(t, 80000, f.reload(t, p.ID).SalePrice)

	require.NoError(t, f.campaignSvc.Delete(ctx, c))

	assertDecimal(t, 100000, f.reload(t, p.ID).SalePrice)
	ids, err := f.memberships.FindProductIDsByCampaigns(ctx, []uuid.UUID{c})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPricingFlow_WholeProductScopeOnVariants(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 0, 100000, 120000)
	v1, v2 := p.Variants[0].ID, p.Variants[1].ID
	c := f.campaign(t, "Everything", dp(10), nil, nil)

	f.add(t, c, p.ID)

	var raw *string
	require.NoError(t, f.db.Raw(
		"SELECT variant_ids FROM campaign_memberships WHERE product_id = ? AND campaign_id = ?", p.ID, c,
	).Row().Scan(&raw))
	assert.Nil(t, raw, "whole-product scope is stored as NULL")

	m, err := f.memberships.Find(ctx, p.ID, c)
	require.NoError(t, err)
	assert.True(t, m.Scope.IsAll())

	active, err := f.memberships.FindActiveByProduct(ctx, p.ID, flowNow)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Scope.IsAll())

	got := f.reload(t, p.ID)
	assertDecimal(t, 90000, got.Variant(v1).SalePrice)
	assertDecimal(t, 108000, got.Variant(v2).SalePrice)
	assertDecimal(t, 100000, got.Price)
	assertDecimal(t, 90000, got.SalePrice)

	_, err = f.campaignSvc.RemoveProducts(ctx, c, apppromotion.MembershipBatchRequest{
		Items: []apppromotion.MembershipItemRequest{{ProductID: p.ID, VariantIDs: []uuid.UUID{v1}}},
	})
	require.NoError(t, err)

	m, err = f.memberships.Find(ctx, p.ID, c)
	require.NoError(t, err, "removing one variant from ALL keeps the rest")
	assert.True(t, m.Scope.Equal(promotion.ScopeOf(v2)))

	got = f.reload(t, p.ID)
	assertDecimal(t, 100000, got.Variant(v1).SalePrice)
	assertDecimal(t, 108000, got.Variant(v2).SalePrice)
	assertDecimal(t, 100000, got.SalePrice)
}

func TestPricingFlow_SyncIsIdempotent(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 100000, 40000, 60000)
	c := f.campaign(t, "Ten", dp(10), nil, nil)
	f.add(t, c, p.ID)
	before := f.reload(t, p.ID)

	r, err := f.syncer.SyncProductPrice(ctx, p.ID, apppromotion.TriggerManual)
	require.NoError(t, err)

	assert.False(t, r.Changed())
	after := f.reload(t, p.ID)
	assert.True(t, before.SalePrice.Equal(after.SalePrice))
	assert.Equal(t, before.Version, after.Version)
	assertDecimal(t, 36000, after.SalePrice)
	assertDecimal(t, 40000, after.Price)
}

func TestPricingFlow_MergeNeverNarrowsScope(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 0, 100, 200, 300)
	v1, v2 := p.Variants[0].ID, p.Variants[1].ID
	c := f.campaign(t, "Merge", dp(10), nil, nil)

	f.add(t, c, p.ID, v1)
	f.add(t, c, p.ID, v2)
	m, err := f.memberships.Find(ctx, p.ID, c)
	require.NoError(t, err)
	assert.True(t, m.Scope.Equal(promotion.ScopeOf(v1, v2)))

	f.add(t, c, p.ID)
	m, err = f.memberships.Find(ctx, p.ID, c)
	require.NoError(t, err)
	assert.True(t, m.Scope.IsAll())

	f.add(t, c, p.ID, v1)
	m, err = f.memberships.Find(ctx, p.ID, c)
	require.NoError(t, err)
	assert.True(t, m.Scope.IsAll(), "adding a subset to ALL keeps ALL")
}

func TestPricingFlow_ShrinkToEmptyDeletesMembership(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 0, 1000, 2000)
	v1, v2 := p.Variants[0].ID, p.Variants[1].ID
	c := f.campaign(t, "Shrink", dp(50), nil, nil)
	f.add(t, c, p.ID, v1, v2)
	assertDecimal(t, 500, f.reload(t, p.ID).SalePrice)

	_, err := f.campaignSvc.RemoveProducts(ctx, c, apppromotion.MembershipBatchRequest{
		Items: []apppromotion.MembershipItemRequest{{ProductID: p.ID, VariantIDs: []uuid.UUID{v1, v2}}},
	})
	require.NoError(t, err)

	_, err = f.memberships.Find(ctx, p.ID, c)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	got := f.reload(t, p.ID)
	assertDecimal(t, 1000, got.SalePrice)
	assertDecimal(t, 2000, got.Variant(v2).SalePrice)
}

func TestPricingFlow_RemoveMissingMembershipRollsBackBatch(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	member := f.product(t, 1000)
	stranger := f.product(t, 1000)
	c := f.campaign(t, "Rollback", dp(10), nil, nil)
	f.add(t, c, member.ID)

	_, err := f.campaignSvc.RemoveProducts(ctx, c, apppromotion.MembershipBatchRequest{
		Items: []apppromotion.MembershipItemRequest{{ProductID: member.ID}, {ProductID: stranger.ID}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.memberships.Find(ctx, member.ID, c)
	assert.NoError(t, err, "first removal must be rolled back")
	assertDecimal(t, 900, f.reload(t, member.ID).SalePrice)
}

func TestPricingFlow_UpdateResyncsMembers(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 1000)
	c := f.campaign(t, "Adjust", dp(10), nil, nil)
	f.add(t, c, p.ID)

	desc := "only the description"
	_, err := f.campaignSvc.Update(ctx, c, apppromotion.UpdateCampaignRequest{Description: &desc})
	require.NoError(t, err)
	assertDecimal(t, 900, f.reload(t, p.ID).SalePrice)

	_, err = f.campaignSvc.Update(ctx, c, apppromotion.UpdateCampaignRequest{DiscountPercent: dp(25)})
	require.NoError(t, err)
	assertDecimal(t, 750, f.reload(t, p.ID).SalePrice)

	inactive := false
	_, err = f.campaignSvc.Update(ctx, c, apppromotion.UpdateCampaignRequest{IsActive: &inactive})
	require.NoError(t, err)
	assertDecimal(t, 1000, f.reload(t, p.ID).SalePrice)
}

func TestPricingFlow_DuplicateNameIsRejectedCaseInsensitively(t *testing.T) {
	f := setupPricingFlow(t)
	f.campaign(t, "Summer Sale", dp(10), nil, nil)

	_, err := f.campaignSvc.Create(context.Background(), apppromotion.CreateCampaignRequest{
		Name:            "SUMMER sale",
		DiscountPercent: dp(5),
		StartDate:       flowNow,
		EndDate:         flowNow.Add(time.Hour),
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestPricingFlow_ScheduledSyncAppliesStartedCampaign(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 1000)
	untouched := f.product(t, 1000)

	// Starts in ten minutes; membership is added while it is still upcoming.
	starting, err := f.campaignSvc.Create(ctx, apppromotion.CreateCampaignRequest{
		Name:            "Flash",
		DiscountPercent: dp(20),
		StartDate:       flowNow.Add(10 * time.Minute),
		EndDate:         flowNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	f.add(t, starting.ID, p.ID)
	assertDecimal(t, 1000, f.reload(t, p.ID).SalePrice)

	// A long-running campaign whose boundaries are outside the window.
	steady := f.campaign(t, "Steady", dp(50), nil, nil)
	require.NoError(t, f.memberships.Save(ctx, promotion.NewMembership(untouched.ID, steady, promotion.ScopeAll(), flowNow)))

	result, err := f.scheduled.RunScheduledSync(ctx, flowNow.Add(15*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Campaigns)
	assert.Equal(t, 1, result.Products)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 0, result.Failed)
	assertDecimal(t, 800, f.reload(t, p.ID).SalePrice)
	assertDecimal(t, 1000, f.reload(t, untouched.ID).SalePrice, "campaign outside the window is not rescanned")
}

func TestPricingFlow_ListAndDetail(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	p := f.product(t, 0, 100, 200)
	active := f.campaign(t, "Active One", dp(10), nil, nil)
	_, err := f.campaignSvc.Create(ctx, apppromotion.CreateCampaignRequest{
		Name:            "Later",
		Description:     "starts next week",
		DiscountPercent: dp(10),
		StartDate:       flowNow.Add(7 * 24 * time.Hour),
		EndDate:         flowNow.Add(8 * 24 * time.Hour),
	})
	require.NoError(t, err)
	f.add(t, active, p.ID, p.Variants[1].ID)

	list, total, err := f.campaignSvc.List(ctx, apppromotion.ListCampaignsRequest{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, active, list[0].ID)

	_, total, err = f.campaignSvc.List(ctx, apppromotion.ListCampaignsRequest{Search: "next week"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	detail, err := f.campaignSvc.GetByID(ctx, active)
	require.NoError(t, err)
	require.Len(t, detail.Products, 1)
	assert.False(t, detail.Products[0].AllVariants)
	assert.Equal(t, []uuid.UUID{p.Variants[1].ID}, detail.Products[0].VariantIDs)
}

func TestPricingFlow_ForceSyncRepairsDrift(t *testing.T) {
	f := setupPricingFlow(t)
	ctx := context.Background()
	a := f.product(t, 1000)
	b := f.product(t, 2000)
	c := f.campaign(t, "Force", dp(10), nil, nil)
	f.add(t, c, a.ID)
	f.add(t, c, b.ID)

	// Simulate an out-of-band write that left a stale sale price.
	require.NoError(t, f.products.UpdatePrices(ctx, a.ID, d(1000), d(1000)))

	resp, err := f.campaignSvc.ForceSync(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Changed)
	assert.Zero(t, resp.Failed)
	assertDecimal(t, 900, f.reload(t, a.ID).SalePrice)
}
