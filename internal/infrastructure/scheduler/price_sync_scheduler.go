package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const leaseKeyPrefix = "price-sync:tick:"

var (
	ErrSchedulerNotRunning = errors.New("price sync scheduler stopped")
	ErrRunInProgress       = errors.New("price sync run already in progress")
	ErrInvalidConfig       = errors.New("price sync scheduler misconfigured")
)

// ScheduledSyncRunner runs one boundary scan
type ScheduledSyncRunner interface {
	RunScheduledSync(ctx context.Context, now time.Time) (*apppromotion.ScheduledSyncResult, error)
}

// PriceSyncSchedulerConfig holds configuration for the price sync scheduler
type PriceSyncSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval between boundary scans
	Interval time.Duration

	// RunTimeout bounds a single scan
	RunTimeout time.Duration

	// RunOnStart performs a scan immediately after Start
	RunOnStart bool
}

// DefaultPriceSyncSchedulerConfig returns default configuration
func DefaultPriceSyncSchedulerConfig() PriceSyncSchedulerConfig {
	return PriceSyncSchedulerConfig{
		Enabled:    true,
		Interval:   apppromotion.DefaultScheduleInterval,
		RunTimeout: 2 * time.Minute,
		RunOnStart: true,
	}
}

// Validate checks the configuration
func (c PriceSyncSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// PriceSyncScheduler periodically runs the campaign boundary scan.
// When a lease store is set, a tick only runs on the replica that claims the
// lease for the current interval bucket.
type PriceSyncScheduler struct {
	runner ScheduledSyncRunner
	leases shared.LeaseStore
	logger *zap.Logger
	config PriceSyncSchedulerConfig
	now    func() time.Time

	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewPriceSyncScheduler creates a new price sync scheduler. leases may be nil.
func NewPriceSyncScheduler(
	runner ScheduledSyncRunner,
	leases shared.LeaseStore,
	logger *zap.Logger,
	config PriceSyncSchedulerConfig,
) *PriceSyncScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceSyncScheduler{
		runner: runner,
		leases: leases,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Start starts the ticker loop
func (s *PriceSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Price sync scheduler is disabled")
		return nil
	}
	if err := s.config.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx)

	s.logger.Info("Price sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("run_timeout", s.config.RunTimeout),
		zap.Bool("lease", s.leases != nil),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish
func (s *PriceSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Price sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Price sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is running
func (s *PriceSyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// TriggerImmediate runs one scan now, bypassing the lease, and returns its result
func (s *PriceSyncScheduler) TriggerImmediate(ctx context.Context) (*apppromotion.ScheduledSyncResult, error) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil, ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	s.logger.Info("Triggering immediate price sync")
	return s.execute(ctx, s.now())
}

func (s *PriceSyncScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Price sync loop stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled scan unless a run is still in flight or another
// replica holds this interval's lease.
func (s *PriceSyncScheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Skipping price sync tick, previous run still in progress")
		return
	}
	defer s.running.Store(false)

	now := s.now()
	if s.leases != nil {
		key := leaseKeyPrefix + strconv.FormatInt(now.Truncate(s.config.Interval).Unix(), 10)
		ok, err := s.leases.Acquire(ctx, key, s.config.Interval)
		if err != nil {
			s.logger.Warn("Price sync lease unavailable, running without it", zap.Error(err))
		} else if !ok {
			s.logger.Debug("Price sync tick claimed by another replica", zap.String("lease", key))
			return
		}
	}

	_, _ = s.execute(ctx, now)
}

func (s *PriceSyncScheduler) execute(ctx context.Context, now time.Time) (*apppromotion.ScheduledSyncResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	runCtx, span := telemetry.StartSpan(runCtx, "price_sync.scheduled_run",
		telemetry.AttrTrigger.String(string(apppromotion.TriggerSchedule)))
	started := time.Now()
	result, err := s.runner.RunScheduledSync(runCtx, now)
	duration := time.Since(started)
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logger.Error("Scheduled price sync failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return result, err
	}

	s.logger.Info("Scheduled price sync completed",
		zap.Duration("duration", duration),
		zap.Int("campaigns", result.Campaigns),
		zap.Int("products", result.Products),
		zap.Int("changed", result.Changed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
