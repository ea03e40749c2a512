package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var attrConnState = attribute.Key("state")

// RegisterPoolMetrics exposes the database pool on meter, sampled at each
// collection:
//
//	db.client.connections.usage     gauge {state=used|idle}
//	db.client.connections.max       gauge
//	db.client.connections.wait      counter  waits for a free connection
//	db.client.connections.wait_time counter  seconds spent waiting
//
// Row locks taken by concurrent syncs of one product hold connections; a
// rising wait count is the first symptom.
func RegisterPoolMetrics(meter metric.Meter, stats func() sql.DBStats) (metric.Registration, error) {
	usage, err := meter.Int64ObservableGauge("db.client.connections.usage",
		metric.WithDescription("Connections by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("create pool usage gauge: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge("db.client.connections.max",
		metric.WithDescription("Maximum open connections allowed"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("create pool max gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db.client.connections.wait",
		metric.WithDescription("Times a caller waited for a connection"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, fmt.Errorf("create pool wait counter: %w", err)
	}
	waitTime, err := meter.Float64ObservableCounter("db.client.connections.wait_time",
		metric.WithDescription("Total time spent waiting for a connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create pool wait time counter: %w", err)
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(usage, int64(s.InUse), metric.WithAttributes(attrConnState.String("used")))
		o.ObserveInt64(usage, int64(s.Idle), metric.WithAttributes(attrConnState.String("idle")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		o.ObserveFloat64(waitTime, s.WaitDuration.Seconds())
		return nil
	}, usage, maxOpen, waits, waitTime)
}
