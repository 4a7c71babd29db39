package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nti-labs/webhooks/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var subscriptionColumns = []string{
	"id", "site_id", "for_type", "when_event", "to_url", "owner_id",
	"permission_id", "dialect_id", "active", "status_message",
	"attempt_limit", "applicable_precondition_failure_limit",
	"created_time", "modified_time",
}

// subscriptionRepository implements domain.SubscriptionRepository for PostgreSQL.
type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository.
func NewSubscriptionRepository(db *sql.DB) domain.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	query, args, err := psql.Insert("webhook_subscriptions").
		Columns(subscriptionColumns...).
		Values(
			sub.ID, sub.SiteID, sub.ForType, sub.When, sub.To, sub.OwnerID,
			sub.PermissionID, sub.DialectID, sub.Active, sub.StatusMessage,
			sub.AttemptLimit, sub.ApplicablePreconditionFailureLimit,
			sub.CreatedTime, sub.ModifiedTime,
		).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, siteID, id string) (*domain.Subscription, error) {
	query, args, err := psql.Select(subscriptionColumns...).
		From("webhook_subscriptions").
		Where(sq.Eq{"site_id": siteID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription not found: %s", id)
	}
	return sub, err
}

func (r *subscriptionRepository) List(ctx context.Context, siteID string) ([]*domain.Subscription, error) {
	return r.listWhere(ctx, sq.Eq{"site_id": siteID})
}

func (r *subscriptionRepository) ListByOwner(ctx context.Context, siteID, ownerID string) ([]*domain.Subscription, error) {
	return r.listWhere(ctx, sq.Eq{"site_id": siteID, "owner_id": ownerID})
}

func (r *subscriptionRepository) ListForTypeAndEvent(ctx context.Context, siteID, forType, when string) ([]*domain.Subscription, error) {
	return r.listWhere(ctx, sq.Eq{"site_id": siteID, "for_type": forType, "when_event": when})
}

func (r *subscriptionRepository) listWhere(ctx context.Context, pred sq.Eq) ([]*domain.Subscription, error) {
	query, args, err := psql.Select(subscriptionColumns...).
		From("webhook_subscriptions").
		Where(pred).
		OrderBy("created_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscriptionRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	sub.ModifiedTime = time.Now().UTC()

	query, args, err := psql.Update("webhook_subscriptions").
		Set("for_type", sub.ForType).
		Set("when_event", sub.When).
		Set("to_url", sub.To).
		Set("owner_id", sub.OwnerID).
		Set("permission_id", sub.PermissionID).
		Set("dialect_id", sub.DialectID).
		Set("active", sub.Active).
		Set("status_message", sub.StatusMessage).
		Set("attempt_limit", sub.AttemptLimit).
		Set("applicable_precondition_failure_limit", sub.ApplicablePreconditionFailureLimit).
		Set("modified_time", sub.ModifiedTime).
		Where(sq.Eq{"site_id": sub.SiteID, "id": sub.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", sub.ID)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, siteID, id string) error {
	query, args, err := psql.Delete("webhook_subscriptions").
		Where(sq.Eq{"site_id": siteID, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", id)
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row *sql.Row) (*domain.Subscription, error) {
	return scanSubscriptionInto(row)
}

func scanSubscriptionRows(rows *sql.Rows) (*domain.Subscription, error) {
	return scanSubscriptionInto(rows)
}

func scanSubscriptionInto(s scanner) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := s.Scan(
		&sub.ID, &sub.SiteID, &sub.ForType, &sub.When, &sub.To, &sub.OwnerID,
		&sub.PermissionID, &sub.DialectID, &sub.Active, &sub.StatusMessage,
		&sub.AttemptLimit, &sub.ApplicablePreconditionFailureLimit,
		&sub.CreatedTime, &sub.ModifiedTime,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
