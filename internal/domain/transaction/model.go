package transaction

import (
	"time"

	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is a ledger entry representing money movement, or a pending
// placeholder awaiting settlement, tied to an invoice. The pending row created
// at invoice-draft time is the same row later transitioned to paid; settlement
// never inserts a second transaction for the same invoice.
type Transaction struct {
	ID             string  `db:"id" json:"id"`
	InvoiceID      *string `db:"invoice_id" json:"invoice_id,omitempty"`
	SubscriptionID *string `db:"subscription_id" json:"subscription_id,omitempty"`
	MemberID       string  `db:"member_id" json:"member_id"`
	LocationID     string  `db:"location_id" json:"location_id"`

	Type        types.TransactionType   `db:"type" json:"type"`
	TxnStatus   types.TransactionStatus `db:"txn_status" json:"txn_status"`
	PaymentType types.PaymentType       `db:"payment_type" json:"payment_type"`

	Subtotal decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax      decimal.Decimal `db:"tax" json:"tax"`
	Total    decimal.Decimal `db:"total" json:"total"`

	Refunded       bool               `db:"refunded" json:"refunded"`
	RefundedAmount decimal.Decimal    `db:"refunded_amount" json:"refunded_amount"`
	Refund         *types.RefundRecord `db:"refund" json:"refund,omitempty"`

	PaymentIntentID *string `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	PaymentMethodID *string `db:"payment_method_id" json:"payment_method_id,omitempty"`

	SettledAt *time.Time     `db:"settled_at" json:"settled_at,omitempty"`
	Metadata  types.Metadata `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (t *Transaction) Validate() error {
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.TxnStatus.Validate(); err != nil {
		return err
	}
	if t.Total.IsNegative() {
		return ierr.NewError("transaction total must not be negative").
			WithHint("Transaction total must not be negative").
			Mark(ierr.ErrValidation)
	}
	if t.RefundedAmount.GreaterThan(t.Total) {
		return ierr.NewError("refunded amount exceeds transaction total").
			WithHint("Refunded amount must not exceed the transaction total").
			WithReportableDetails(map[string]any{
				"total":           t.Total,
				"refunded_amount": t.RefundedAmount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsRefundable reports whether a refund can still be issued against this
// transaction
func (t *Transaction) IsRefundable() bool {
	return t.TxnStatus == types.TransactionStatusPaid && !t.Refunded
}

// ClampRefund bounds a requested refund to what the transaction can still give
// back. A zero request means a full refund.
func (t *Transaction) ClampRefund(requested decimal.Decimal) decimal.Decimal {
	remaining := t.Total.Sub(t.RefundedAmount)
	if requested.IsZero() || requested.GreaterThan(remaining) {
		return remaining
	}
	return requested
}
