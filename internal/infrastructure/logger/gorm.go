package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	defaultLockWait  = 50 * time.Millisecond
)

// GormLogger routes GORM statements into zap. Statements that take row
// locks (the price sync path) are reported against a tighter threshold so
// contention between concurrent syncs of the same product is visible.
type GormLogger struct {
	base      *zap.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
	lockWait  time.Duration
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration after which a plain statement is slow.
// Zero disables slow statement reporting.
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowQuery = d }
}

// WithLockWaitThreshold sets the duration after which a locking read is
// reported as contended.
func WithLockWaitThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.lockWait = d }
}

func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		base:      base.Named("sql"),
		level:     level,
		slowQuery: defaultSlowQuery,
		lockWait:  defaultLockWait,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	L(ctx, l.base).Sugar().Logf(lvl, msg, data...)
}

// Trace reports one executed statement. Record-not-found is never logged:
// repositories translate it into a domain not-found error.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	if err != nil && errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	kind := statementKind(sql)
	log := L(ctx, l.base).With(
		zap.String("statement", kind),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	)

	threshold := l.slowQuery
	if kind == "lock" {
		threshold = l.lockWait
	}

	switch {
	case err != nil:
		if l.level >= gormlogger.Error {
			log.Error("statement failed", zap.String("sql", sql), zap.Error(err))
		}
	case threshold > 0 && elapsed > threshold:
		if l.level >= gormlogger.Warn {
			msg := "slow statement"
			if kind == "lock" {
				msg = "row lock contended"
			}
			log.Warn(msg, zap.Duration("threshold", threshold), zap.String("sql", sql))
		}
	case l.level >= gormlogger.Info:
		log.Debug("statement", zap.String("sql", sql))
	}
}

// statementKind classifies sql by its leading verb. Locking reads are
// reported as "lock".
func statementKind(sql string) string {
	s := strings.ToUpper(strings.TrimSpace(sql))
	if strings.Contains(s, " FOR UPDATE") || strings.Contains(s, " FOR SHARE") {
		return "lock"
	}
	verb, _, _ := strings.Cut(s, " ")
	switch verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return strings.ToLower(verb)
	case "WITH":
		return "select"
	default:
		return "other"
	}
}

// MapGormLogLevel picks the GORM level for the configured application level.
// Statements are only traced when the application logs at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "debug":
		return gormlogger.Info
	case "error", "fatal":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
