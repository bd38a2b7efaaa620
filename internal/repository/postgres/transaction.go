package postgres

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/transaction"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
)

type transactionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return &transactionRepository{db: db, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			id,
			invoice_id,
			subscription_id,
			member_id,
			location_id,
			type,
			txn_status,
			payment_type,
			subtotal,
			tax,
			total,
			refunded,
			refunded_amount,
			refund,
			payment_intent_id,
			payment_method_id,
			settled_at,
			metadata,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:invoice_id,
			:subscription_id,
			:member_id,
			:location_id,
			:type,
			:txn_status,
			:payment_type,
			:subtotal,
			:tax,
			:total,
			:refunded,
			:refunded_amount,
			:refund,
			:payment_intent_id,
			:payment_method_id,
			:settled_at,
			:metadata,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, txn); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `
		SELECT * FROM transactions
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

// GetByInvoice returns the ledger entry paired with an invoice. Each invoice
// carries at most one inbound transaction; refund entries reference the
// original through metadata instead.
func (r *transactionRepository) GetByInvoice(ctx context.Context, invoiceID string) (*transaction.Transaction, error) {
	query := `
		SELECT * FROM transactions
		WHERE
			invoice_id = :invoice_id AND
			type = :inbound AND
			tenant_id = :tenant_id AND
			status != :deleted_status
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"invoice_id":     invoiceID,
		"inbound":        types.TransactionTypeInbound,
		"tenant_id":      types.GetTenantID(ctx),
		"deleted_status": types.StatusDeleted,
	})
}

func (r *transactionRepository) GetLatestPaidForSubscription(ctx context.Context, subscriptionID string) (*transaction.Transaction, error) {
	query := `
		SELECT * FROM transactions
		WHERE
			subscription_id = :subscription_id AND
			type = :inbound AND
			txn_status = :paid AND
			refunded = false AND
			tenant_id = :tenant_id AND
			status != :deleted_status
		ORDER BY settled_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"subscription_id": subscriptionID,
		"inbound":         types.TransactionTypeInbound,
		"paid":            types.TransactionStatusPaid,
		"tenant_id":       types.GetTenantID(ctx),
		"deleted_status":  types.StatusDeleted,
	})
}

func (r *transactionRepository) getOne(ctx context.Context, query string, params map[string]interface{}) (*transaction.Transaction, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get transaction").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("transaction not found").
			WithHint("Transaction not found").
			Mark(ierr.ErrNotFound)
	}

	var txn transaction.Transaction
	if err := rows.StructScan(&txn); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan transaction").
			Mark(ierr.ErrDatabase)
	}
	return &txn, nil
}

func (r *transactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	txn.UpdatedAt = time.Now().UTC()
	txn.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE transactions
		SET
			txn_status = :txn_status,
			payment_type = :payment_type,
			refunded = :refunded,
			refunded_amount = :refunded_amount,
			refund = :refund,
			payment_intent_id = :payment_intent_id,
			payment_method_id = :payment_method_id,
			settled_at = :settled_at,
			metadata = :metadata,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id
	`

	if _, err := r.db.NamedExecContext(ctx, query, txn); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *transactionRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*transaction.Transaction, error) {
	query := `
		SELECT * FROM transactions
		WHERE
			subscription_id = :subscription_id AND
			tenant_id = :tenant_id AND
			status != :deleted_status
		ORDER BY created_at DESC
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"subscription_id": subscriptionID,
		"tenant_id":       types.GetTenantID(ctx),
		"deleted_status":  types.StatusDeleted,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		var txn transaction.Transaction
		if err := rows.StructScan(&txn); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan transaction").
				Mark(ierr.ErrDatabase)
		}
		txns = append(txns, &txn)
	}
	return txns, nil
}
