package migrations

import (
	"context"
	"database/sql"

	"github.com/nti-labs/webhooks/config"
)

// DBExecutor represents a database connection that can execute queries,
// satisfied by both *sql.DB and *sql.Tx.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// MajorMigrationInterface defines a major version migration against the
// single shared database. Unlike the teacher's per-workspace database
// split, this domain has one database scoped by site_id, so there is no
// separate workspace-level migration step.
type MajorMigrationInterface interface {
	GetMajorVersion() float64
	ShouldRestartServer() bool
	Apply(ctx context.Context, cfg *config.Config, db DBExecutor) error
}

// MigrationManager interface for managing migrations.
type MigrationManager interface {
	GetCurrentDBVersion(ctx context.Context, db *sql.DB) (float64, error, bool)
	SetCurrentDBVersion(ctx context.Context, db *sql.DB, version float64) error
	RunMigrations(ctx context.Context, cfg *config.Config, db *sql.DB) error
}

// MigrationRegistry manages registered migrations.
type MigrationRegistry interface {
	Register(migration MajorMigrationInterface)
	GetMigrations() []MajorMigrationInterface
	GetMigration(version float64) (MajorMigrationInterface, bool)
}
