package postgres

import (
	"context"

	"github.com/gymlane/gymlane/internal/domain/pricing"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
)

type pricingRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPricingRepository(db *postgres.DB, logger *logger.Logger) pricing.Repository {
	return &pricingRepository{db: db, logger: logger}
}

func (r *pricingRepository) Create(ctx context.Context, p *pricing.Pricing) error {
	query := `
		INSERT INTO pricings (
			id,
			plan_id,
			location_id,
			amount,
			currency,
			interval,
			interval_threshold,
			expire_interval,
			expire_threshold,
			downpayment,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:plan_id,
			:location_id,
			:amount,
			:currency,
			:interval,
			:interval_threshold,
			:expire_interval,
			:expire_threshold,
			:downpayment,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create pricing").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *pricingRepository) Get(ctx context.Context, id string) (*pricing.Pricing, error) {
	query := `
		SELECT * FROM pricings
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
			WithHint("Failed to get pricing").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("pricing not found").
			WithHint("Pricing not found").
			WithReportableDetails(map[string]any{"pricing_id": id}).
			Mark(ierr.ErrNotFound)
	}

	var p pricing.Pricing
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan pricing").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *pricingRepository) ListByPlan(ctx context.Context, planID string) ([]*pricing.Pricing, error) {
	query := `
		SELECT * FROM pricings
		WHERE
			plan_id = :plan_id AND
			tenant_id = :tenant_id AND
			status = :status
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, map[string]interface{}{
		"plan_id":   planID,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	})
}

func (r *pricingRepository) ListByLocation(ctx context.Context, locationID string) ([]*pricing.Pricing, error) {
	query := `
		SELECT * FROM pricings
		WHERE
			location_id = :location_id AND
			tenant_id = :tenant_id AND
			status = :status
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, map[string]interface{}{
		"location_id": locationID,
		"tenant_id":   types.GetTenantID(ctx),
		"status":      types.StatusPublished,
	})
}

func (r *pricingRepository) list(ctx context.Context, query string, params map[string]interface{}) ([]*pricing.Pricing, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list pricings").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var pricings []*pricing.Pricing
	for rows.Next() {
		var p pricing.Pricing
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan pricing").
				Mark(ierr.ErrDatabase)
		}
		pricings = append(pricings, &p)
	}
	return pricings, nil
}
