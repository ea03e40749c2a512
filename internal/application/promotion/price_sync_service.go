package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SyncResult describes what one product synchronization did
type SyncResult struct {
	ProductID      uuid.UUID
	Trigger        SyncTrigger
	Skipped        bool
	ProductChanged bool
	OldPrice       decimal.Decimal
	OldSalePrice   decimal.Decimal
	Price          decimal.Decimal
	SalePrice      decimal.Decimal
	VariantChanges []catalog.VariantPriceChange
	SyncedAt       time.Time
}

// Changed reports whether any stored price was rewritten.
func (r *SyncResult) Changed() bool {
	return r != nil && (r.ProductChanged || len(r.VariantChanges) > 0)
}

// Outcome classifies the result for metrics.
func (r *SyncResult) Outcome() SyncOutcome {
	switch {
	case r == nil:
		return OutcomeFailed
	case r.Skipped:
		return OutcomeSkipped
	case r.Changed():
		return OutcomeUpdated
	default:
		return OutcomeUnchanged
	}
}

// PriceSyncService recomputes and persists the derived prices of a product.
// It is the only writer of sale prices.
type PriceSyncService struct {
	txScope    TransactionScope
	publisher  shared.EventPublisher
	recorder   SyncRecorder
	logger     *zap.Logger
	priceScale int32
	now        func() time.Time
}

// PriceSyncOption configures a PriceSyncService
type PriceSyncOption func(*PriceSyncService)

// WithPriceScale sets the number of decimal places prices are rounded to.
func WithPriceScale(scale int32) PriceSyncOption {
	return func(s *PriceSyncService) { s.priceScale = scale }
}

// WithClock overrides the time source used to decide which campaigns are active.
func WithClock(now func() time.Time) PriceSyncOption {
	return func(s *PriceSyncService) { s.now = now }
}

// WithEventPublisher publishes ProductPriceSynced events after commit.
func WithEventPublisher(p shared.EventPublisher) PriceSyncOption {
	return func(s *PriceSyncService) { s.publisher = p }
}

// WithSyncRecorder sets the metrics sink.
func WithSyncRecorder(r SyncRecorder) PriceSyncOption {
	return func(s *PriceSyncService) { s.recorder = r }
}

// NewPriceSyncService creates a PriceSyncService
func NewPriceSyncService(txScope TransactionScope, logger *zap.Logger, opts ...PriceSyncOption) *PriceSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PriceSyncService{
		txScope:  txScope,
		recorder: NopSyncRecorder{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock reading.
func (s *PriceSyncService) Now() time.Time {
	return s.now()
}

// SyncProductPrice recomputes one product in its own transaction and publishes
// the outcome after commit. A missing product is a no-op.
func (s *PriceSyncService) SyncProductPrice(ctx context.Context, productID uuid.UUID, trigger SyncTrigger) (*SyncResult, error) {
	return s.SyncProductPriceAt(ctx, productID, trigger, s.now())
}

// SyncProductPriceAt is SyncProductPrice evaluated against campaigns active at at.
func (s *PriceSyncService) SyncProductPriceAt(ctx context.Context, productID uuid.UUID, trigger SyncTrigger, at time.Time) (*SyncResult, error) {
	var result *SyncResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.syncInTx(ctx, repos, productID, trigger, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Publish(ctx, result)
	return result, nil
}

// SyncInTx recomputes one product inside the caller's transaction. The caller
// publishes the returned results once its transaction has committed.
func (s *PriceSyncService) SyncInTx(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID, trigger SyncTrigger) (*SyncResult, error) {
	return s.syncInTx(ctx, repos, productID, trigger, s.now())
}

func (s *PriceSyncService) syncInTx(
	ctx context.Context,
	repos TransactionalRepositories,
	productID uuid.UUID,
	trigger SyncTrigger,
	at time.Time,
) (result *SyncResult, err error) {
	start := time.Now()
	defer func() {
		s.recorder.RecordProductSync(ctx, trigger, result.Outcome(), time.Since(start))
	}()

	product, err := repos.ProductRepo().FindByIDForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("Product not found, skipping price sync",
				zap.String("product_id", productID.String()),
				zap.String("trigger", string(trigger)))
			return &SyncResult{ProductID: productID, Trigger: trigger, Skipped: true, SyncedAt: at}, nil
		}
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}

	active, err := repos.MembershipRepo().FindActiveByProduct(ctx, productID, at)
	if err != nil {
		return nil, fmt.Errorf("load active campaigns of product %s: %w", productID, err)
	}

	plan := promotion.PlanProductPricing(product, active, s.priceScale)

	res := &SyncResult{
		ProductID:    productID,
		Trigger:      trigger,
		OldPrice:     product.Price,
		OldSalePrice: product.SalePrice,
		SyncedAt:     at,
	}

	for _, vp := range plan.Variants {
		variant := product.Variant(vp.VariantID)
		old := variant.SalePrice
		if !variant.ApplySalePrice(vp.SalePrice, at) {
			continue
		}
		if err := repos.ProductRepo().UpdateVariantSalePrice(ctx, variant.ID, variant.SalePrice); err != nil {
			return nil, fmt.Errorf("write sale price of variant %s: %w", variant.ID, err)
		}
		res.VariantChanges = append(res.VariantChanges, catalog.VariantPriceChange{
			VariantID:    variant.ID,
			OldSalePrice: old,
			NewSalePrice: variant.SalePrice,
		})
	}

	if product.ApplyPricing(plan.Price, plan.SalePrice, at) {
		if err := repos.ProductRepo().UpdatePrices(ctx, product.ID, product.Price, product.SalePrice); err != nil {
			return nil, fmt.Errorf("write prices of product %s: %w", product.ID, err)
		}
		res.ProductChanged = true
	}
	res.Price = product.Price
	res.SalePrice = product.SalePrice

	s.logger.Debug("Product price synchronized",
		zap.String("product_id", productID.String()),
		zap.String("trigger", string(trigger)),
		zap.Int("active_campaigns", len(active)),
		zap.Int("variants_changed", len(res.VariantChanges)),
		zap.Bool("product_changed", res.ProductChanged),
		zap.String("sale_price", res.SalePrice.String()))

	return res, nil
}

// Publish emits ProductPriceSynced for every result that changed stored prices.
// Publishing failures are logged; the prices are already committed.
func (s *PriceSyncService) Publish(ctx context.Context, results ...*SyncResult) {
	if s.publisher == nil {
		return
	}
	events := make([]shared.DomainEvent, 0, len(results))
	for _, r := range results {
		if !r.Changed() {
			continue
		}
		events = append(events, catalog.NewProductPriceSyncedEvent(
			r.ProductID, string(r.Trigger),
			r.OldPrice, r.OldSalePrice, r.Price, r.SalePrice,
			r.VariantChanges, r.SyncedAt,
		))
	}
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish price sync events",
			zap.Int("events", len(events)),
			zap.Error(err))
	}
}
