package postgres

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/promo"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
)

type promoRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPromoRepository(db *postgres.DB, logger *logger.Logger) promo.Repository {
	return &promoRepository{db: db, logger: logger}
}

func (r *promoRepository) Create(ctx context.Context, p *promo.Promo) error {
	query := `
		INSERT INTO promos (
			id,
			location_id,
			code,
			type,
			value,
			duration,
			duration_in_months,
			max_redemptions,
			redemption_count,
			expires_at,
			is_active,
			eligible_pricing_ids,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:location_id,
			:code,
			:type,
			:value,
			:duration,
			:duration_in_months,
			:max_redemptions,
			:redemption_count,
			:expires_at,
			:is_active,
			:eligible_pricing_ids,
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
			WithHint("Failed to create promo").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *promoRepository) Get(ctx context.Context, id string) (*promo.Promo, error) {
	query := `
		SELECT * FROM promos
		WHERE
			id = :id AND
			tenant_id = :tenant_id AND
			status != :deleted_status
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"id":             id,
		"tenant_id":      types.GetTenantID(ctx),
		"deleted_status": types.StatusDeleted,
	})
}

func (r *promoRepository) GetByCode(ctx context.Context, locationID, code string) (*promo.Promo, error) {
	query := `
		SELECT * FROM promos
		WHERE
			location_id = :location_id AND
			code = :code AND
			tenant_id = :tenant_id AND
			status != :deleted_status
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"location_id":    locationID,
		"code":           code,
		"tenant_id":      types.GetTenantID(ctx),
		"deleted_status": types.StatusDeleted,
	})
}

func (r *promoRepository) getOne(ctx context.Context, query string, params map[string]interface{}) (*promo.Promo, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get promo").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("promo not found").
			WithHint("Promo not found").
			Mark(ierr.ErrNotFound)
	}

	var p promo.Promo
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan promo").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *promoRepository) Update(ctx context.Context, p *promo.Promo) error {
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE promos
		SET
			value = :value,
			duration = :duration,
			duration_in_months = :duration_in_months,
			max_redemptions = :max_redemptions,
			expires_at = :expires_at,
			is_active = :is_active,
			eligible_pricing_ids = :eligible_pricing_ids,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id
	`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update promo").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *promoRepository) List(ctx context.Context, locationID string) ([]*promo.Promo, error) {
	query := `
		SELECT * FROM promos
		WHERE
			location_id = :location_id AND
			tenant_id = :tenant_id AND
			status != :deleted_status
		ORDER BY created_at DESC
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"location_id":    locationID,
		"tenant_id":      types.GetTenantID(ctx),
		"deleted_status": types.StatusDeleted,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list promos").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var promos []*promo.Promo
	for rows.Next() {
		var p promo.Promo
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan promo").
				Mark(ierr.ErrDatabase)
		}
		promos = append(promos, &p)
	}
	return promos, nil
}

// IncrementRedemption bumps the counter only while it is under the cap. The
// guarded UPDATE is what makes the cap hold under concurrent settlements: two
// transactions racing for the last redemption serialize on the row lock and
// the loser matches zero rows.
func (r *promoRepository) IncrementRedemption(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE promos
		SET
			redemption_count = redemption_count + 1,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id AND
			(max_redemptions IS NULL OR redemption_count < max_redemptions)
	`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"updated_at": time.Now().UTC(),
		"updated_by": types.GetUserID(ctx),
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
	})
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to increment promo redemption").
			Mark(ierr.ErrDatabase)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to increment promo redemption").
			Mark(ierr.ErrDatabase)
	}
	return affected > 0, nil
}
