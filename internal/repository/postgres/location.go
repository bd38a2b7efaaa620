package postgres

import (
	"context"

	"github.com/gymlane/gymlane/internal/domain/location"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
)

type locationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewLocationRepository(db *postgres.DB, logger *logger.Logger) location.Repository {
	return &locationRepository{db: db, logger: logger}
}

func (r *locationRepository) Get(ctx context.Context, id string) (*location.Location, error) {
	query := `
		SELECT * FROM locations
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
			WithHint("Failed to get location").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("location not found").
			WithHint("Location not found").
			WithReportableDetails(map[string]any{"location_id": id}).
			Mark(ierr.ErrNotFound)
	}

	var loc location.Location
	if err := rows.StructScan(&loc); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan location").
			Mark(ierr.ErrDatabase)
	}
	return &loc, nil
}
