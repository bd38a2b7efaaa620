package postgres

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/invoice"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/lib/pq"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

// CreateWithLineItems writes the invoice and its line items. Callers wrap this
// in a transaction together with the paired pending ledger entry.
func (r *invoiceRepository) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			id,
			invoice_number,
			member_id,
			location_id,
			subscription_id,
			invoice_status,
			invoice_type,
			payment_type,
			collection_method,
			currency,
			subtotal,
			tax,
			discount,
			total,
			due_date,
			period_start,
			period_end,
			sent_at,
			paid_at,
			voided_at,
			metadata,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:invoice_number,
			:member_id,
			:location_id,
			:subscription_id,
			:invoice_status,
			:invoice_type,
			:payment_type,
			:collection_method,
			:currency,
			:subtotal,
			:tax,
			:discount,
			:total,
			:due_date,
			:period_start,
			:period_end,
			:sent_at,
			:paid_at,
			:voided_at,
			:metadata,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}

	itemQuery := `
		INSERT INTO invoice_line_items (
			id,
			invoice_id,
			name,
			quantity,
			price,
			position,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:invoice_id,
			:name,
			:quantity,
			:price,
			:position,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`
	for _, item := range inv.LineItems {
		if _, err := r.db.NamedExecContext(ctx, itemQuery, item); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create invoice line item").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `
		SELECT * FROM invoices
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
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("invoice not found").
			WithHint("Invoice not found").
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}

	var inv invoice.Invoice
	if err := rows.StructScan(&inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan invoice").
			Mark(ierr.ErrDatabase)
	}

	if err := r.loadLineItems(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) loadLineItems(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		SELECT * FROM invoice_line_items
		WHERE
			invoice_id = :invoice_id AND
			tenant_id = :tenant_id
		ORDER BY position ASC
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"invoice_id": inv.ID,
		"tenant_id":  types.GetTenantID(ctx),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load invoice line items").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	for rows.Next() {
		var item invoice.LineItem
		if err := rows.StructScan(&item); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to scan invoice line item").
				Mark(ierr.ErrDatabase)
		}
		inv.LineItems = append(inv.LineItems, &item)
	}
	return nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()
	inv.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE invoices
		SET
			invoice_status = :invoice_status,
			payment_type = :payment_type,
			subtotal = :subtotal,
			tax = :tax,
			discount = :discount,
			total = :total,
			due_date = :due_date,
			sent_at = :sent_at,
			paid_at = :paid_at,
			voided_at = :voided_at,
			metadata = :metadata,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id
	`

	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `
		SELECT * FROM invoices
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
	if filter.SubscriptionID != "" {
		query += " AND subscription_id = :subscription_id"
		params["subscription_id"] = filter.SubscriptionID
	}
	if len(filter.Statuses) > 0 {
		query += " AND invoice_status = ANY(:statuses)"
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
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.StructScan(&inv); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan invoice").
				Mark(ierr.ErrDatabase)
		}
		invoices = append(invoices, &inv)
	}
	return invoices, nil
}

func (r *invoiceRepository) GetDraftForSubscription(ctx context.Context, subscriptionID string) (*invoice.Invoice, error) {
	query := `
		SELECT * FROM invoices
		WHERE
			subscription_id = :subscription_id AND
			invoice_status = :draft AND
			tenant_id = :tenant_id AND
			status != :deleted_status
		ORDER BY created_at DESC
		LIMIT 1
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"subscription_id": subscriptionID,
		"draft":           types.InvoiceStatusDraft,
		"tenant_id":       types.GetTenantID(ctx),
		"deleted_status":  types.StatusDeleted,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get draft invoice").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("no draft invoice for subscription").
			WithHint("Subscription has no open draft invoice").
			WithReportableDetails(map[string]any{"subscription_id": subscriptionID}).
			Mark(ierr.ErrNotFound)
	}

	var inv invoice.Invoice
	if err := rows.StructScan(&inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan invoice").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}
