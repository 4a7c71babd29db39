package migrations

import (
	"context"

	"github.com/nti-labs/webhooks/config"
)

// V1Migration creates the core schema: webhook subscriptions and their
// delivery attempt history.
type V1Migration struct{}

func init() {
	Register(&V1Migration{})
}

// GetMajorVersion returns the major version this migration upgrades to.
func (m *V1Migration) GetMajorVersion() float64 {
	return 1
}

// ShouldRestartServer indicates whether applying this migration requires a
// server restart.
func (m *V1Migration) ShouldRestartServer() bool {
	return false
}

// Apply creates the webhook_subscriptions and webhook_delivery_attempts
// tables along with their supporting indexes.
func (m *V1Migration) Apply(ctx context.Context, cfg *config.Config, db DBExecutor) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS webhook_subscriptions (
			id                                     TEXT PRIMARY KEY,
			site_id                                TEXT NOT NULL,
			for_type                               TEXT NOT NULL,
			when_event                             TEXT NOT NULL,
			to_url                                 TEXT NOT NULL,
			owner_id                               TEXT NOT NULL,
			permission_id                          TEXT NOT NULL,
			dialect_id                             TEXT NOT NULL,
			active                                 BOOLEAN NOT NULL DEFAULT true,
			status_message                         TEXT NOT NULL DEFAULT '',
			attempt_limit                          INTEGER NOT NULL DEFAULT 0,
			applicable_precondition_failure_limit  INTEGER NOT NULL DEFAULT 0,
			created_time                           TIMESTAMPTZ NOT NULL DEFAULT now(),
			modified_time                          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_subscriptions_site_id
			ON webhook_subscriptions (site_id)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_subscriptions_for_type_when_event
			ON webhook_subscriptions (site_id, for_type, when_event)
			WHERE active`,
		`CREATE TABLE IF NOT EXISTS webhook_delivery_attempts (
			id                  TEXT PRIMARY KEY,
			subscription_id     TEXT NOT NULL REFERENCES webhook_subscriptions (id) ON DELETE CASCADE,
			site_id             TEXT NOT NULL,
			status              TEXT NOT NULL,
			message             TEXT NOT NULL DEFAULT '',
			request_json        TEXT NOT NULL DEFAULT '',
			response_json       TEXT NOT NULL DEFAULT '',
			internal_info_json  TEXT NOT NULL DEFAULT '',
			created_time        TIMESTAMPTZ NOT NULL DEFAULT now(),
			modified_time       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_delivery_attempts_subscription_id
			ON webhook_delivery_attempts (subscription_id)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_delivery_attempts_site_id
			ON webhook_delivery_attempts (site_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
