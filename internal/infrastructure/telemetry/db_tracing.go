package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm plugin and slow query marking.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm plus callbacks that annotate each
// query span with rows affected, table and a slow query marker.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	after := annotateSpan(cfg.SlowQueryThresh)
	cb := db.Callback()
	if err := errors.Join(
		cb.Create().Before("gorm:create").Register("pricesync:trace_start_create", markQueryStart),
		cb.Query().Before("gorm:query").Register("pricesync:trace_start_query", markQueryStart),
		cb.Update().Before("gorm:update").Register("pricesync:trace_start_update", markQueryStart),
		cb.Delete().Before("gorm:delete").Register("pricesync:trace_start_delete", markQueryStart),
		cb.Row().Before("gorm:row").Register("pricesync:trace_start_row", markQueryStart),
		cb.Raw().Before("gorm:raw").Register("pricesync:trace_start_raw", markQueryStart),
		cb.Create().After("gorm:create").Register("pricesync:trace_end_create", after),
		cb.Query().After("gorm:query").Register("pricesync:trace_end_query", after),
		cb.Update().After("gorm:update").Register("pricesync:trace_end_update", after),
		cb.Delete().After("gorm:delete").Register("pricesync:trace_end_delete", after),
		cb.Row().After("gorm:row").Register("pricesync:trace_end_row", after),
		cb.Raw().After("gorm:raw").Register("pricesync:trace_end_raw", after),
	); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func annotateSpan(slow time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
			if elapsed := time.Since(start); elapsed > slow {
				span.SetAttributes(
					attribute.Bool("db.slow_query", true),
					attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
				)
			}
		}
	}
}
