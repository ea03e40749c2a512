package promotion

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default schedule of the boundary scan
const (
	DefaultScheduleInterval = 5 * time.Minute
	DefaultScheduleLookback = 20 * time.Minute
)

// ScheduledSyncResult summarizes one boundary scan
type ScheduledSyncResult struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Campaigns   int
	Products    int
	Synced      int
	Changed     int
	Skipped     int
	Failed      int
}

// ScheduledSyncService finds campaigns that started or ended recently and
// resyncs their member products. It keeps no state between runs; the lookback
// window is wider than the tick interval so a delayed or missed tick is
// covered by the next one.
type ScheduledSyncService struct {
	campaignRepo   promotion.CampaignRepository
	membershipRepo promotion.MembershipRepository
	syncer         *PriceSyncService
	recorder       SyncRecorder
	logger         *zap.Logger
	lookback       time.Duration
}

// NewScheduledSyncService creates a ScheduledSyncService
func NewScheduledSyncService(
	campaignRepo promotion.CampaignRepository,
	membershipRepo promotion.MembershipRepository,
	syncer *PriceSyncService,
	lookback time.Duration,
	recorder SyncRecorder,
	logger *zap.Logger,
) *ScheduledSyncService {
	if lookback <= 0 {
		lookback = DefaultScheduleLookback
	}
	if recorder == nil {
		recorder = NopSyncRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduledSyncService{
		campaignRepo:   campaignRepo,
		membershipRepo: membershipRepo,
		syncer:         syncer,
		recorder:       recorder,
		logger:         logger,
		lookback:       lookback,
	}
}

// Lookback returns the scan window width
func (s *ScheduledSyncService) Lookback() time.Duration {
	return s.lookback
}

// RunScheduledSync scans [now-lookback, now] for enabled campaigns whose start
// or end date falls inside it and resyncs each member product once, each in its
// own transaction. Per-product failures are logged and counted; only a failure
// to discover the work is returned.
func (s *ScheduledSyncService) RunScheduledSync(ctx context.Context, now time.Time) (*ScheduledSyncResult, error) {
	start := time.Now()
	result := &ScheduledSyncResult{
		WindowStart: now.Add(-s.lookback),
		WindowEnd:   now,
	}
	defer func() {
		s.recorder.RecordScheduledRun(ctx, result, time.Since(start))
	}()

	campaigns, err := s.campaignRepo.FindBoundaryCrossing(ctx, result.WindowStart, result.WindowEnd)
	if err != nil {
		return result, fmt.Errorf("find boundary crossing campaigns: %w", err)
	}
	result.Campaigns = len(campaigns)
	if len(campaigns) == 0 {
		return result, nil
	}

	campaignIDs := make([]uuid.UUID, len(campaigns))
	for i, c := range campaigns {
		campaignIDs[i] = c.ID
	}
	productIDs, err := s.membershipRepo.FindProductIDsByCampaigns(ctx, campaignIDs)
	if err != nil {
		return result, fmt.Errorf("find member products: %w", err)
	}
	productIDs = uniqueSorted(productIDs)
	result.Products = len(productIDs)

	for _, productID := range productIDs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		r, err := s.syncer.SyncProductPriceAt(ctx, productID, TriggerSchedule, now)
		if err != nil {
			result.Failed++
			s.logger.Error("Scheduled price sync failed for product",
				zap.String("product_id", productID.String()),
				zap.Error(err))
			continue
		}
		switch r.Outcome() {
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeUpdated:
			result.Changed++
			result.Synced++
		default:
			result.Synced++
		}
	}

	s.logger.Info("Scheduled price sync finished",
		zap.Time("window_start", result.WindowStart),
		zap.Time("window_end", result.WindowEnd),
		zap.Int("campaigns", result.Campaigns),
		zap.Int("products", result.Products),
		zap.Int("changed", result.Changed),
		zap.Int("failed", result.Failed))
	return result, nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(out)
}
