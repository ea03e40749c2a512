package promotion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MembershipItem is one product entry of a membership batch.
// For additions an empty VariantIDs means the whole product; for removals it
// means the membership is dropped entirely.
type MembershipItem struct {
	ProductID  uuid.UUID
	VariantIDs []uuid.UUID
}

// MembershipBatchResult reports the products a batch touched and their resync outcome
type MembershipBatchResult struct {
	CampaignID uuid.UUID
	ProductIDs []uuid.UUID
	Syncs      []*SyncResult
}

// MembershipService adds products to and removes products from campaigns.
// Each batch runs in one transaction together with the resync of every
// affected product.
type MembershipService struct {
	txScope   TransactionScope
	syncer    *PriceSyncService
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewMembershipService creates a MembershipService
func NewMembershipService(txScope TransactionScope, syncer *PriceSyncService, publisher shared.EventPublisher, logger *zap.Logger) *MembershipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{
		txScope:   txScope,
		syncer:    syncer,
		publisher: publisher,
		logger:    logger,
	}
}

// AddProducts merges the items into the campaign's memberships.
func (s *MembershipService) AddProducts(ctx context.Context, campaignID uuid.UUID, items []MembershipItem) (*MembershipBatchResult, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	return s.runBatch(ctx, campaignID, "add", TriggerMembershipAdd, items, s.addOne)
}

// RemoveProducts narrows or deletes the campaign's memberships.
func (s *MembershipService) RemoveProducts(ctx context.Context, campaignID uuid.UUID, items []MembershipItem) (*MembershipBatchResult, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	return s.runBatch(ctx, campaignID, "remove", TriggerMembershipRemove, items, s.removeOne)
}

type itemApplier func(ctx context.Context, repos TransactionalRepositories, campaignID uuid.UUID, item MembershipItem, now time.Time) error

func (s *MembershipService) runBatch(
	ctx context.Context,
	campaignID uuid.UUID,
	operation string,
	trigger SyncTrigger,
	items []MembershipItem,
	apply itemApplier,
) (*MembershipBatchResult, error) {
	merged := mergeItems(items)
	productIDs := make([]uuid.UUID, 0, len(merged))
	for _, item := range merged {
		productIDs = append(productIDs, item.ProductID)
	}
	// Resync in ascending ID order so concurrent batches lock products in the same order.
	productIDs = uniqueSorted(productIDs)

	result := &MembershipBatchResult{CampaignID: campaignID, ProductIDs: productIDs}
	now := s.syncer.Now()

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		result.Syncs = result.Syncs[:0]
		if _, err := repos.CampaignRepo().FindByID(ctx, campaignID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("Campaign")
			}
			return fmt.Errorf("load campaign %s: %w", campaignID, err)
		}
		for _, item := range merged {
			if err := apply(ctx, repos, campaignID, item, now); err != nil {
				return err
			}
		}
		for _, productID := range productIDs {
			r, err := s.syncer.SyncInTx(ctx, repos, productID, trigger)
			if err != nil {
				return err
			}
			result.Syncs = append(result.Syncs, r)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Membership batch rolled back",
			zap.String("campaign_id", campaignID.String()),
			zap.String("operation", operation),
			zap.Int("products", len(productIDs)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Membership batch committed",
		zap.String("campaign_id", campaignID.String()),
		zap.String("operation", operation),
		zap.Int("products", len(productIDs)))

	s.syncer.Publish(ctx, result.Syncs...)
	if s.publisher != nil {
		event := promotion.NewMembershipsChangedEvent(campaignID, operation, productIDs, now)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish membership event", zap.Error(err))
		}
	}
	return result, nil
}

func (s *MembershipService) addOne(ctx context.Context, repos TransactionalRepositories, campaignID uuid.UUID, item MembershipItem, now time.Time) error {
	product, err := repos.ProductRepo().FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewNotFoundError(fmt.Sprintf("Product %s", item.ProductID))
		}
		return fmt.Errorf("load product %s: %w", item.ProductID, err)
	}

	incoming := promotion.ScopeFromRequest(item.VariantIDs)
	for _, id := range incoming.IDs() {
		if !product.HasVariant(id) {
			return shared.NewValidationError(fmt.Sprintf("Variant %s does not belong to product %s", id, product.ID))
		}
	}

	membership, err := repos.MembershipRepo().Find(ctx, item.ProductID, campaignID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		membership = promotion.NewMembership(item.ProductID, campaignID, incoming, now)
	case err != nil:
		return fmt.Errorf("load membership of product %s: %w", item.ProductID, err)
	default:
		membership.Merge(incoming, now)
	}
	return repos.MembershipRepo().Save(ctx, membership)
}

func (s *MembershipService) removeOne(ctx context.Context, repos TransactionalRepositories, campaignID uuid.UUID, item MembershipItem, now time.Time) error {
	product, err := repos.ProductRepo().FindByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewNotFoundError(fmt.Sprintf("Product %s", item.ProductID))
		}
		return fmt.Errorf("load product %s: %w", item.ProductID, err)
	}

	membership, err := repos.MembershipRepo().Find(ctx, item.ProductID, campaignID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewNotFoundError(fmt.Sprintf("Membership of product %s", item.ProductID))
		}
		return fmt.Errorf("load membership of product %s: %w", item.ProductID, err)
	}

	if len(item.VariantIDs) == 0 || membership.Remove(item.VariantIDs, product.VariantIDs(), now) {
		return repos.MembershipRepo().Delete(ctx, item.ProductID, campaignID)
	}
	return repos.MembershipRepo().Save(ctx, membership)
}

func validateItems(items []MembershipItem) error {
	if len(items) == 0 {
		return shared.NewValidationError("At least one product is required")
	}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return shared.NewValidationError("product_id is required for every item")
		}
	}
	return nil
}

// mergeItems folds repeated product entries into one. An empty variant list
// absorbs any other entry of the same product.
func mergeItems(items []MembershipItem) []MembershipItem {
	merged := make([]MembershipItem, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		i, seen := index[item.ProductID]
		if !seen {
			index[item.ProductID] = len(merged)
			merged = append(merged, MembershipItem{
				ProductID:  item.ProductID,
				VariantIDs: slices.Clone(item.VariantIDs),
			})
			continue
		}
		current := &merged[i]
		if len(current.VariantIDs) == 0 || len(item.VariantIDs) == 0 {
			current.VariantIDs = nil
			continue
		}
		for _, id := range item.VariantIDs {
			if !slices.Contains(current.VariantIDs, id) {
				current.VariantIDs = append(current.VariantIDs, id)
			}
		}
	}
	return merged
}
