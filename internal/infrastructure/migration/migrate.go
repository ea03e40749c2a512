package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Files is the schema shipped with the binary.
//
//go:embed sql/*.sql
var Files embed.FS

const embeddedDir = "sql"

// Migrator applies the campaign/product schema to PostgreSQL.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Status is the schema state recorded in the version table.
type Status struct {
	Version uint
	Dirty   bool
}

type options struct {
	dir   string
	table string
}

type Option func(*options)

// WithSourcePath reads migrations from dir instead of the embedded set.
func WithSourcePath(dir string) Option {
	return func(o *options) { o.dir = dir }
}

func WithMigrationsTable(table string) Option {
	return func(o *options) { o.table = table }
}

func New(db *sql.DB, log *zap.Logger, opts ...Option) (*Migrator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: o.table})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	var m *migrate.Migrate
	if o.dir != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+o.dir, "postgres", driver)
	} else {
		src, srcErr := iofs.New(Files, embeddedDir)
		if srcErr != nil {
			return nil, fmt.Errorf("embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}

	log = log.Named("migrate")
	m.Log = migrateLogger{log: log}
	return &Migrator{m: m, log: log}, nil
}

// Up applies every pending migration.
func (mg *Migrator) Up(ctx context.Context) error {
	return mg.run(ctx, "up", mg.m.Up)
}

// Down rolls the schema back to nothing.
func (mg *Migrator) Down(ctx context.Context) error {
	return mg.run(ctx, "down", mg.m.Down)
}

// Steps applies n migrations, rolling back when n is negative.
func (mg *Migrator) Steps(ctx context.Context, n int) error {
	return mg.run(ctx, fmt.Sprintf("steps(%d)", n), func() error { return mg.m.Steps(n) })
}

// run executes op and stops it between migrations when ctx is cancelled.
func (mg *Migrator) run(ctx context.Context, name string, op func() error) error {
	before, err := mg.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("schema is dirty at version %d; repair with force", before.Version)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mg.m.GracefulStop <- true
		case <-done:
		}
	}()

	err = op()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		mg.log.Info("Schema up to date", zap.String("op", name), zap.Uint("version", before.Version))
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", name, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("migrate %s interrupted: %w", name, ctxErr)
	}

	after, err := mg.Status()
	if err != nil {
		return err
	}
	mg.log.Info("Schema migrated",
		zap.String("op", name),
		zap.Uint("from", before.Version),
		zap.Uint("to", after.Version),
	)
	return nil
}

// Status reads the version table; an empty table is version 0.
func (mg *Migrator) Status() (Status, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}

// Force records version as applied and clears the dirty flag without running
// anything.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLogger adapts zap to migrate.Logger; per-file progress is debug.
type migrateLogger struct {
	log *zap.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.log.Core().Enabled(zap.DebugLevel)
}
