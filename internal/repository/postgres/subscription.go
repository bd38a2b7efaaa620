package postgres

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/subscription"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/lib/pq"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id,
			member_id,
			location_id,
			plan_id,
			pricing_id,
			parent_id,
			subscription_status,
			payment_type,
			collection_method,
			start_date,
			current_period_start,
			current_period_end,
			trial_end,
			cancel_at,
			cancel_at_period_end,
			cancelled_at,
			ended_at,
			make_up_credits,
			promo_snapshot,
			cancellation,
			metadata,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:member_id,
			:location_id,
			:plan_id,
			:pricing_id,
			:parent_id,
			:subscription_status,
			:payment_type,
			:collection_method,
			:start_date,
			:current_period_start,
			:current_period_end,
			:trial_end,
			:cancel_at,
			:cancel_at_period_end,
			:cancelled_at,
			:ended_at,
			:make_up_credits,
			:promo_snapshot,
			:cancellation,
			:metadata,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE
			id = :id AND
			tenant_id = :tenant_id AND
			status != :deleted_status
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"id":             id,
		"tenant_id":      types.GetTenantID(ctx),
		"deleted_status": types.StatusDeleted,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"subscription_id": id}).
			Mark(ierr.ErrNotFound)
	}

	var sub subscription.Subscription
	if err := rows.StructScan(&sub); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE subscriptions
		SET
			subscription_status = :subscription_status,
			collection_method = :collection_method,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			trial_end = :trial_end,
			cancel_at = :cancel_at,
			cancel_at_period_end = :cancel_at_period_end,
			cancelled_at = :cancelled_at,
			ended_at = :ended_at,
			make_up_credits = :make_up_credits,
			promo_snapshot = :promo_snapshot,
			cancellation = :cancellation,
			metadata = :metadata,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id
	`

	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *subscription.ListFilter) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE tenant_id = :tenant_id AND status != :deleted_status
	`
	params := map[string]interface{}{
		"tenant_id":      types.GetTenantID(ctx),
		"deleted_status": types.StatusDeleted,
	}

	if filter.MemberID != "" {
		query += " AND member_id = :member_id"
		params["member_id"] = filter.MemberID
	}
	if filter.LocationID != "" {
		query += " AND location_id = :location_id"
		params["location_id"] = filter.LocationID
	}
	if len(filter.Statuses) > 0 {
		query += " AND subscription_status = ANY(:statuses)"
		params["statuses"] = pq.Array(filter.Statuses)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY created_at DESC LIMIT :limit OFFSET :offset"
	params["limit"] = limit
	params["offset"] = filter.Offset

	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		var sub subscription.Subscription
		if err := rows.StructScan(&sub); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, &sub)
	}
	return subs, nil
}

func (r *subscriptionRepository) ListExpiringTrials(ctx context.Context, cutoff time.Time) ([]*subscription.Subscription, error) {
	query := `
		SELECT * FROM subscriptions
		WHERE
			subscription_status = :trialing AND
			trial_end IS NOT NULL AND
			trial_end <= :cutoff AND
			status != :deleted_status
		ORDER BY trial_end ASC
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"trialing":       types.SubscriptionStatusTrialing,
		"cutoff":         cutoff,
		"deleted_status": types.StatusDeleted,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list expiring trials").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		var sub subscription.Subscription
		if err := rows.StructScan(&sub); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, &sub)
	}
	return subs, nil
}
