package postgres

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/member"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
)

type memberRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewMemberRepository(db *postgres.DB, logger *logger.Logger) member.Repository {
	return &memberRepository{db: db, logger: logger}
}

func (r *memberRepository) Get(ctx context.Context, id string) (*member.Member, error) {
	query := `
		SELECT * FROM members
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
			WithHint("Failed to get member").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("member not found").
			WithHint("Member not found").
			WithReportableDetails(map[string]any{"member_id": id}).
			Mark(ierr.ErrNotFound)
	}

	var m member.Member
	if err := rows.StructScan(&m); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan member").
			Mark(ierr.ErrDatabase)
	}
	return &m, nil
}

func (r *memberRepository) Update(ctx context.Context, m *member.Member) error {
	m.UpdatedAt = time.Now().UTC()
	m.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE members
		SET
			gateway_customer_id = :gateway_customer_id,
			default_payment_method_id = :default_payment_method_id,
			membership_active = :membership_active,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id
	`

	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update member").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *memberRepository) SetMembershipActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE members
		SET
			membership_active = :membership_active,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id
	`

	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"membership_active": active,
		"updated_at":        time.Now().UTC(),
		"updated_by":        types.GetUserID(ctx),
		"id":                id,
		"tenant_id":         types.GetTenantID(ctx),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update membership flag").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
