package postgres

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/wallet"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

type walletRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWalletRepository(db *postgres.DB, logger *logger.Logger) wallet.Repository {
	return &walletRepository{db: db, logger: logger}
}

func (r *walletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (
			id,
			location_id,
			vendor_id,
			currency,
			balance,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:location_id,
			:vendor_id,
			:currency,
			:balance,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, w); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create wallet").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *walletRepository) Get(ctx context.Context, id string) (*wallet.Wallet, error) {
	query := `
		SELECT * FROM wallets
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

func (r *walletRepository) GetByLocation(ctx context.Context, locationID string) (*wallet.Wallet, error) {
	query := `
		SELECT * FROM wallets
		WHERE
			location_id = :location_id AND
			tenant_id = :tenant_id AND
			status != :deleted_status
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"location_id":    locationID,
		"tenant_id":      types.GetTenantID(ctx),
		"deleted_status": types.StatusDeleted,
	})
}

func (r *walletRepository) getOne(ctx context.Context, query string, params map[string]interface{}) (*wallet.Wallet, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get wallet").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("wallet not found").
			WithHint("Wallet not found").
			Mark(ierr.ErrNotFound)
	}

	var w wallet.Wallet
	if err := rows.StructScan(&w); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan wallet").
			Mark(ierr.ErrDatabase)
	}
	return &w, nil
}

// DebitBalance subtracts atomically, guarded so the balance can never go
// negative, and returns the post-debit balance. A false return means the funds
// were insufficient at the moment the row was locked.
func (r *walletRepository) DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	query := `
		UPDATE wallets
		SET
			balance = balance - :amount,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id AND
			balance >= :amount
		RETURNING balance
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"amount":     amount,
		"updated_at": time.Now().UTC(),
		"updated_by": types.GetUserID(ctx),
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
	})
	if err != nil {
		return decimal.Zero, false, ierr.WithError(err).
			WithHint("Failed to debit wallet").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return decimal.Zero, false, nil
	}
	var balance decimal.Decimal
	if err := rows.Scan(&balance); err != nil {
		return decimal.Zero, false, ierr.WithError(err).
			WithHint("Failed to debit wallet").
			Mark(ierr.ErrDatabase)
	}
	return balance, true, nil
}

func (r *walletRepository) CreditBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET
			balance = balance + :amount,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id
		RETURNING balance
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"amount":     amount,
		"updated_at": time.Now().UTC(),
		"updated_by": types.GetUserID(ctx),
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
	})
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to credit wallet").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return decimal.Zero, ierr.NewError("wallet not found").
			WithHint("Wallet not found").
			Mark(ierr.ErrNotFound)
	}
	var balance decimal.Decimal
	if err := rows.Scan(&balance); err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to credit wallet").
			Mark(ierr.ErrDatabase)
	}
	return balance, nil
}

func (r *walletRepository) CreateUsageEntry(ctx context.Context, entry *wallet.UsageEntry) error {
	query := `
		INSERT INTO wallet_usage_entries (
			id,
			wallet_id,
			amount,
			resulting_balance,
			is_credit,
			description,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:wallet_id,
			:amount,
			:resulting_balance,
			:is_credit,
			:description,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create wallet usage entry").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *walletRepository) ListUsage(ctx context.Context, walletID string, limit int) ([]*wallet.UsageEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT * FROM wallet_usage_entries
		WHERE
			wallet_id = :wallet_id AND
			tenant_id = :tenant_id
		ORDER BY created_at DESC
		LIMIT :limit
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"wallet_id": walletID,
		"tenant_id": types.GetTenantID(ctx),
		"limit":     limit,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list wallet usage").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var entries []*wallet.UsageEntry
	for rows.Next() {
		var entry wallet.UsageEntry
		if err := rows.StructScan(&entry); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan wallet usage entry").
				Mark(ierr.ErrDatabase)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
