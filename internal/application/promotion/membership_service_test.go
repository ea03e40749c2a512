package promotion

import (
	"context"
	"testing"

	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMembershipService(r *testRepos, pub shared.EventPublisher) *MembershipService {
	return NewMembershipService(r.scope, newSyncService(r), pub, nil)
}

// expectQuietSync stubs a resync that finds nothing to change.
func expectQuietSync(ctx context.Context, r *testRepos, productID uuid.UUID, p interface{}) {
	r.products.On("FindByIDForUpdate", ctx, productID).Return(p, nil)
	r.memberships.On("FindActiveByProduct", ctx, productID, testNow).Return([]promotion.ActiveMembership{}, nil)
}

func TestMembershipService_AddProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("creates ALL membership for empty variant list", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		p := newProduct(1000)
		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, p.ID).Return(p, nil)
		r.memberships.On("Find", ctx, p.ID, c.ID).Return(nil, shared.ErrNotFound)
		r.memberships.On("Save", ctx, mock.MatchedBy(func(m *promotion.Membership) bool {
			return m.ProductID == p.ID && m.CampaignID == c.ID && m.Scope.IsAll()
		})).Return(nil)
		expectQuietSync(ctx, r, p.ID, p)
		pub := &recordingPublisher{}

		result, err := newMembershipService(r, pub).AddProducts(ctx, c.ID, []MembershipItem{{ProductID: p.ID}})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{p.ID}, result.ProductIDs)
		require.Len(t, result.Syncs, 1)
		assert.Contains(t, pub.types(), promotion.EventTypeMembershipsChanged)
		r.memberships.AssertExpectations(t)
	})

	t.Run("merges into existing scope", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		p := newProduct(0)
		v1, _ := p.AddVariant("V1", "V1", d(100), testNow)
		v1ID := v1.ID
		v2, _ := p.AddVariant("V2", "V2", d(100), testNow)
		v2ID := v2.ID
		existing := promotion.NewMembership(p.ID, c.ID, promotion.ScopeOf(v1ID), testNow)

		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, p.ID).Return(p, nil)
		r.memberships.On("Find", ctx, p.ID, c.ID).Return(existing, nil)
		r.memberships.On("Save", ctx, mock.MatchedBy(func(m *promotion.Membership) bool {
			return m.Scope.Equal(promotion.ScopeOf(v1ID, v2ID))
		})).Return(nil)
		r.products.On("UpdatePrices", ctx, p.ID, mock.Anything, mock.Anything).Return(nil)
		expectQuietSync(ctx, r, p.ID, p)

		_, err := newMembershipService(r, nil).AddProducts(ctx, c.ID, []MembershipItem{{ProductID: p.ID, VariantIDs: []uuid.UUID{v2ID}}})
		require.NoError(t, err)
		r.memberships.AssertExpectations(t)
	})

	t.Run("rejects variants of another product", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		p := newProduct(1000)
		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, p.ID).Return(p, nil)

		_, err := newMembershipService(r, nil).AddProducts(ctx, c.ID, []MembershipItem{{ProductID: p.ID, VariantIDs: []uuid.UUID{uuid.New()}}})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		r.memberships.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing campaign aborts batch", func(t *testing.T) {
		r := newTestRepos()
		id := uuid.New()
		r.campaigns.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := newMembershipService(r, nil).AddProducts(ctx, id, []MembershipItem{{ProductID: uuid.New()}})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("missing product aborts batch", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		missing := uuid.New()
		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)

		_, err := newMembershipService(r, nil).AddProducts(ctx, c.ID, []MembershipItem{{ProductID: missing}})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		r.products.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("empty batch is invalid", func(t *testing.T) {
		r := newTestRepos()
		_, err := newMembershipService(r, nil).AddProducts(ctx, uuid.New(), nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestMembershipService_RemoveProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("empty variant list deletes membership", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		p := newProduct(1000)
		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, p.ID).Return(p, nil)
		r.memberships.On("Find", ctx, p.ID, c.ID).Return(promotion.NewMembership(p.ID, c.ID, promotion.ScopeAll(), testNow), nil)
		r.memberships.On("Delete", ctx, p.ID, c.ID).Return(nil)
		expectQuietSync(ctx, r, p.ID, p)

		_, err := newMembershipService(r, nil).RemoveProducts(ctx, c.ID, []MembershipItem{{ProductID: p.ID}})
		require.NoError(t, err)
		r.memberships.AssertExpectations(t)
	})

	t.Run("ALL scope is materialized then narrowed", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		p := newProduct(0)
		v1, _ := p.AddVariant("V1", "V1", d(100), testNow)
		v1ID := v1.ID
		v2, _ := p.AddVariant("V2", "V2", d(100), testNow)
		v2ID := v2.ID
		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, p.ID).Return(p, nil)
		r.memberships.On("Find", ctx, p.ID, c.ID).Return(promotion.NewMembership(p.ID, c.ID, promotion.ScopeAll(), testNow), nil)
		r.memberships.On("Save", ctx, mock.MatchedBy(func(m *promotion.Membership) bool {
			return !m.Scope.IsAll() && m.Scope.Equal(promotion.ScopeOf(v2ID))
		})).Return(nil)
		r.products.On("UpdatePrices", ctx, p.ID, mock.Anything, mock.Anything).Return(nil)
		expectQuietSync(ctx, r, p.ID, p)

		_, err := newMembershipService(r, nil).RemoveProducts(ctx, c.ID, []MembershipItem{{ProductID: p.ID, VariantIDs: []uuid.UUID{v1ID}}})
		require.NoError(t, err)
		r.memberships.AssertExpectations(t)
	})

	t.Run("shrinking to empty deletes membership", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		p := newProduct(0)
		v1, _ := p.AddVariant("V1", "V1", d(100), testNow)
		v1ID := v1.ID
		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, p.ID).Return(p, nil)
		r.memberships.On("Find", ctx, p.ID, c.ID).Return(promotion.NewMembership(p.ID, c.ID, promotion.ScopeOf(v1ID), testNow), nil)
		r.memberships.On("Delete", ctx, p.ID, c.ID).Return(nil)
		r.products.On("UpdatePrices", ctx, p.ID, mock.Anything, mock.Anything).Return(nil)
		expectQuietSync(ctx, r, p.ID, p)

		_, err := newMembershipService(r, nil).RemoveProducts(ctx, c.ID, []MembershipItem{{ProductID: p.ID, VariantIDs: []uuid.UUID{v1ID}}})
		require.NoError(t, err)
		r.memberships.AssertCalled(t, "Delete", ctx, p.ID, c.ID)
		r.memberships.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("missing membership aborts batch", func(t *testing.T) {
		r := newTestRepos()
		c := newCampaign(promotion.PercentOff(d(10)))
		p := newProduct(1000)
		r.campaigns.On("FindByID", ctx, c.ID).Return(c, nil)
		r.products.On("FindByID", ctx, p.ID).Return(p, nil)
		r.memberships.On("Find", ctx, p.ID, c.ID).Return(nil, shared.ErrNotFound)

		_, err := newMembershipService(r, nil).RemoveProducts(ctx, c.ID, []MembershipItem{{ProductID: p.ID}})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestMergeItems(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	v1, v2 := uuid.New(), uuid.New()

	merged := mergeItems([]MembershipItem{
		{ProductID: p1, VariantIDs: []uuid.UUID{v1}},
		{ProductID: p2, VariantIDs: []uuid.UUID{v2}},
		{ProductID: p1, VariantIDs: []uuid.UUID{v2, v1}},
		{ProductID: p2},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, p1, merged[0].ProductID)
	assert.ElementsMatch(t, []uuid.UUID{v1, v2}, merged[0].VariantIDs)
	assert.Nil(t, merged[1].VariantIDs, "an empty list absorbs other entries")
}
