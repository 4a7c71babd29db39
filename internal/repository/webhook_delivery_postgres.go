package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/nti-labs/webhooks/internal/domain"
)

var attemptColumns = []string{
	"id", "subscription_id", "site_id", "status", "message",
	"request_json", "response_json", "internal_info_json",
	"created_time", "modified_time",
}

// deliveryAttemptRepository implements domain.DeliveryAttemptRepository for PostgreSQL.
type deliveryAttemptRepository struct {
	db *sql.DB
}

// NewDeliveryAttemptRepository creates a new PostgreSQL delivery attempt repository.
func NewDeliveryAttemptRepository(db *sql.DB) domain.DeliveryAttemptRepository {
	return &deliveryAttemptRepository{db: db}
}

func (r *deliveryAttemptRepository) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	requestJSON, responseJSON, internalJSON, err := marshalAttempt(attempt)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("webhook_delivery_attempts").
		Columns(attemptColumns...).
		Values(
			attempt.ID, attempt.SubscriptionID, attempt.SiteID, string(attempt.Status()), attempt.Message,
			requestJSON, responseJSON, internalJSON,
			attempt.CreatedTime, attempt.ModifiedTime,
		).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create delivery attempt: %w", err)
	}
	return nil
}

func (r *deliveryAttemptRepository) GetByID(ctx context.Context, siteID, id string) (*domain.DeliveryAttempt, error) {
	query, args, err := psql.Select(attemptColumns...).
		From("webhook_delivery_attempts").
		Where(sq.Eq{"site_id": siteID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	attempt, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("delivery attempt not found: %s", id)
	}
	return attempt, err
}

func (r *deliveryAttemptRepository) ListBySubscription(ctx context.Context, siteID, subscriptionID string, limit, offset int) ([]*domain.DeliveryAttempt, int, error) {
	countQuery, countArgs, err := psql.Select("count(*)").
		From("webhook_delivery_attempts").
		Where(sq.Eq{"site_id": siteID, "subscription_id": subscriptionID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count delivery attempts: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}

	query, args, err := psql.Select(attemptColumns...).
		From("webhook_delivery_attempts").
		Where(sq.Eq{"site_id": siteID, "subscription_id": subscriptionID}).
		OrderBy("created_time DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list delivery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.DeliveryAttempt
	for rows.Next() {
		attempt, err := scanAttemptRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan delivery attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating delivery attempts: %w", err)
	}
	return attempts, total, nil
}

func (r *deliveryAttemptRepository) Resolve(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	requestJSON, responseJSON, internalJSON, err := marshalAttempt(attempt)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("webhook_delivery_attempts").
		Set("status", string(attempt.Status())).
		Set("message", attempt.Message).
		Set("request_json", requestJSON).
		Set("response_json", responseJSON).
		Set("internal_info_json", internalJSON).
		Set("modified_time", attempt.ModifiedTime).
		Where(sq.Eq{"site_id": attempt.SiteID, "id": attempt.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to resolve delivery attempt: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delivery attempt not found: %s", attempt.ID)
	}
	return nil
}

func (r *deliveryAttemptRepository) DeleteOldestResolved(ctx context.Context, siteID, subscriptionID string, keep int) (int, error) {
	query, args, err := psql.Select("id").
		From("webhook_delivery_attempts").
		Where(sq.And{
			sq.Eq{"site_id": siteID, "subscription_id": subscriptionID},
			sq.NotEq{"status": string(domain.AttemptStatusPending)},
		}).
		OrderBy("created_time DESC").
		Offset(uint64(keep)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to find prunable delivery attempts: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan prunable delivery attempt id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating prunable delivery attempts: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	delQuery, delArgs, err := psql.Delete("webhook_delivery_attempts").
		Where(sq.Eq{"site_id": siteID, "id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, delQuery, delArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete prunable delivery attempts: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

func (r *deliveryAttemptRepository) CountBySubscription(ctx context.Context, siteID, subscriptionID string) (int, int, error) {
	query, args, err := psql.Select("status", "count(*)").
		From("webhook_delivery_attempts").
		Where(sq.Eq{"site_id": siteID, "subscription_id": subscriptionID}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count delivery attempts: %w", err)
	}
	defer rows.Close()

	var total, failed int
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return 0, 0, fmt.Errorf("failed to scan status count: %w", err)
		}
		total += count
		if domain.AttemptStatus(status) == domain.AttemptStatusFailed {
			failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("error iterating status counts: %w", err)
	}
	return total, failed, nil
}

func marshalAttempt(attempt *domain.DeliveryAttempt) (requestJSON, responseJSON, internalJSON []byte, err error) {
	if attempt.Request != nil {
		requestJSON, err = json.Marshal(attempt.Request)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal request record: %w", err)
		}
	}
	if attempt.Response != nil {
		responseJSON, err = json.Marshal(attempt.Response)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal response record: %w", err)
		}
	}
	internalJSON, err = json.Marshal(attempt.InternalInfo)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal internal info: %w", err)
	}
	return requestJSON, responseJSON, internalJSON, nil
}

func scanAttempt(row *sql.Row) (*domain.DeliveryAttempt, error) {
	return scanAttemptInto(row)
}

func scanAttemptRows(rows *sql.Rows) (*domain.DeliveryAttempt, error) {
	return scanAttemptInto(rows)
}

func scanAttemptInto(s scanner) (*domain.DeliveryAttempt, error) {
	var (
		id, subscriptionID, siteID, status, message string
		requestJSON, responseJSON, internalJSON     []byte
		createdTime, modifiedTime                   sql.NullTime
	)

	if err := s.Scan(
		&id, &subscriptionID, &siteID, &status, &message,
		&requestJSON, &responseJSON, &internalJSON,
		&createdTime, &modifiedTime,
	); err != nil {
		return nil, err
	}

	var request *domain.RequestRecord
	if len(requestJSON) > 0 {
		request = &domain.RequestRecord{}
		if err := json.Unmarshal(requestJSON, request); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request record: %w", err)
		}
	}

	var response *domain.ResponseRecord
	if len(responseJSON) > 0 {
		response = &domain.ResponseRecord{}
		if err := json.Unmarshal(responseJSON, response); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response record: %w", err)
		}
	}

	var internalInfo domain.InternalInfo
	if len(internalJSON) > 0 {
		if err := json.Unmarshal(internalJSON, &internalInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal internal info: %w", err)
		}
	}

	return domain.HydrateDeliveryAttempt(
		id, subscriptionID, siteID, domain.AttemptStatus(status), message,
		request, response, internalInfo,
		createdTime.Time, modifiedTime.Time,
	), nil
}
