// Package dbconn opens the single shared PostgreSQL pool the repository
// layer queries against, every row scoped by an explicit site_id column.
//
// Grounded on the teacher's pkg/database.ConnectionManager, but dropping
// its per-workspace-database sharding and LRU pool eviction: the teacher
// gives each tenant its own physical database because workspaces are
// provisioned (and destroyed) independently and need hard data isolation.
// Subscriptions and delivery attempts have no such requirement — a site is
// just a row-level scope within one schema, the way the original's ZODB
// "site" objects share one storage — so one pool configured the way the
// teacher configures its per-workspace pools (see SPEC_FULL §9) is enough.
package dbconn

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Config controls pool sizing, mirroring the fields the teacher's
// ConnectionManager reads off config.DatabaseConfig.
type Config struct {
	DSN                   string
	MaxOpenConns          int
	MaxIdleConns          int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration

	// DriverName overrides the registered sql driver, defaulting to
	// "postgres". Callers that wrap the driver with ocsql for tracing pass
	// the name returned by ocsql.Register here.
	DriverName string
}

// Open establishes the shared pool and verifies connectivity with a ping.
func Open(cfg Config) (*sql.DB, error) {
	driverName := cfg.DriverName
	if driverName == "" {
		driverName = "postgres"
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("dbconn: open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = maxOpen / 2
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnectionMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbconn: ping: %w", err)
	}

	return db, nil
}
