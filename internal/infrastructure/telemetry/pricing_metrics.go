package telemetry

import (
	"context"
	"fmt"
	"time"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName names the instrumentation scope of pricesync metrics.
const MeterName = "github.com/erp/pricesync"

var (
	attrTrigger = attribute.Key("trigger")
	attrOutcome = attribute.Key("outcome")
	attrResult  = attribute.Key("result")
)

// PriceSyncMetrics records product syncs and scheduled runs.
//
//	pricesync.product.syncs            counter  {trigger, outcome}
//	pricesync.product.sync.duration    histogram seconds {trigger}
//	pricesync.schedule.runs            counter  {result}
//	pricesync.schedule.products        counter  {outcome}
//	pricesync.schedule.run.duration    histogram seconds
//	pricesync.schedule.campaigns       gauge    campaigns seen by the last run
type PriceSyncMetrics struct {
	productSyncs     metric.Int64Counter
	productDuration  metric.Float64Histogram
	scheduleRuns     metric.Int64Counter
	scheduleProducts metric.Int64Counter
	scheduleDuration metric.Float64Histogram
	scheduleCampaign metric.Int64Gauge
}

var _ apppromotion.SyncRecorder = (*PriceSyncMetrics)(nil)

// NewPriceSyncMetrics creates the instruments on meter.
func NewPriceSyncMetrics(meter metric.Meter) (*PriceSyncMetrics, error) {
	m := &PriceSyncMetrics{}
	var err error

	if m.productSyncs, err = meter.Int64Counter("pricesync.product.syncs",
		metric.WithDescription("Product price synchronizations by trigger and outcome"),
		metric.WithUnit("{sync}"),
	); err != nil {
		return nil, fmt.Errorf("create product sync counter: %w", err)
	}
	if m.productDuration, err = meter.Float64Histogram("pricesync.product.sync.duration",
		metric.WithDescription("Duration of a single product synchronization"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(SyncDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create product sync histogram: %w", err)
	}
	if m.scheduleRuns, err = meter.Int64Counter("pricesync.schedule.runs",
		metric.WithDescription("Scheduled synchronization runs"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, fmt.Errorf("create schedule run counter: %w", err)
	}
	if m.scheduleProducts, err = meter.Int64Counter("pricesync.schedule.products",
		metric.WithDescription("Products visited by scheduled runs by outcome"),
		metric.WithUnit("{product}"),
	); err != nil {
		return nil, fmt.Errorf("create schedule product counter: %w", err)
	}
	if m.scheduleDuration, err = meter.Float64Histogram("pricesync.schedule.run.duration",
		metric.WithDescription("Duration of a scheduled synchronization run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(SyncDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create schedule run histogram: %w", err)
	}
	if m.scheduleCampaign, err = meter.Int64Gauge("pricesync.schedule.campaigns",
		metric.WithDescription("Campaigns crossing a window boundary in the last run"),
		metric.WithUnit("{campaign}"),
	); err != nil {
		return nil, fmt.Errorf("create schedule campaign gauge: %w", err)
	}
	return m, nil
}

func (m *PriceSyncMetrics) RecordProductSync(ctx context.Context, trigger apppromotion.SyncTrigger, outcome apppromotion.SyncOutcome, elapsed time.Duration) {
	m.productSyncs.Add(ctx, 1, metric.WithAttributes(
		attrTrigger.String(string(trigger)),
		attrOutcome.String(string(outcome)),
	))
	m.productDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrTrigger.String(string(trigger))))
}

// RecordScheduledRun counts the run as failed when any product failed or
// the run aborted before producing a result.
func (m *PriceSyncMetrics) RecordScheduledRun(ctx context.Context, result *apppromotion.ScheduledSyncResult, elapsed time.Duration) {
	m.scheduleDuration.Record(ctx, elapsed.Seconds())
	if result == nil {
		m.scheduleRuns.Add(ctx, 1, metric.WithAttributes(attrResult.String("error")))
		return
	}

	status := "ok"
	if result.Failed > 0 {
		status = "partial"
	}
	m.scheduleRuns.Add(ctx, 1, metric.WithAttributes(attrResult.String(status)))
	m.scheduleCampaign.Record(ctx, int64(result.Campaigns))

	unchanged := result.Synced - result.Changed
	for outcome, n := range map[apppromotion.SyncOutcome]int{
		apppromotion.OutcomeUpdated:   result.Changed,
		apppromotion.OutcomeUnchanged: unchanged,
		apppromotion.OutcomeSkipped:   result.Skipped,
		apppromotion.OutcomeFailed:    result.Failed,
	} {
		if n > 0 {
			m.scheduleProducts.Add(ctx, int64(n), metric.WithAttributes(attrOutcome.String(string(outcome))))
		}
	}
}
