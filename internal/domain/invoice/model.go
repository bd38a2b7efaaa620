package invoice

import (
	"time"

	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is a billable document itemizing charges for one billing period
type Invoice struct {
	ID             string  `db:"id" json:"id"`
	InvoiceNumber  string  `db:"invoice_number" json:"invoice_number"`
	MemberID       string  `db:"member_id" json:"member_id"`
	LocationID     string  `db:"location_id" json:"location_id"`
	SubscriptionID *string `db:"subscription_id" json:"subscription_id,omitempty"`

	InvoiceStatus    types.InvoiceStatus    `db:"invoice_status" json:"invoice_status"`
	InvoiceType      types.InvoiceType      `db:"invoice_type" json:"invoice_type"`
	PaymentType      types.PaymentType      `db:"payment_type" json:"payment_type"`
	CollectionMethod types.CollectionMethod `db:"collection_method" json:"collection_method"`

	Currency string          `db:"currency" json:"currency"`
	Subtotal decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax      decimal.Decimal `db:"tax" json:"tax"`
	Discount decimal.Decimal `db:"discount" json:"discount"`
	Total    decimal.Decimal `db:"total" json:"total"`

	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	PeriodStart *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd   *time.Time `db:"period_end" json:"period_end,omitempty"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	VoidedAt    *time.Time `db:"voided_at" json:"voided_at,omitempty"`

	Metadata  types.Metadata `db:"metadata" json:"metadata,omitempty"`
	LineItems []*LineItem    `db:"-" json:"line_items,omitempty"`

	types.BaseModel
}

// ComputeTotals derives subtotal and total from the line items and the given
// tax/discount. Total never goes below zero.
func (i *Invoice) ComputeTotals() {
	subtotal := decimal.Zero
	for _, item := range i.LineItems {
		subtotal = subtotal.Add(item.Price.Mul(item.Quantity))
	}
	i.Subtotal = subtotal

	total := subtotal.Add(i.Tax).Sub(i.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	i.Total = total
}

func (i *Invoice) Validate() error {
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if err := i.InvoiceType.Validate(); err != nil {
		return err
	}
	if i.Subtotal.IsNegative() || i.Tax.IsNegative() || i.Discount.IsNegative() {
		return ierr.NewError("invoice amounts must not be negative").
			WithHint("Invoice amounts must not be negative").
			Mark(ierr.ErrValidation)
	}

	expected := i.Subtotal.Add(i.Tax).Sub(i.Discount)
	if expected.IsNegative() {
		expected = decimal.Zero
	}
	if !i.Total.Equal(expected) {
		return ierr.NewError("invoice total does not match its parts").
			WithHint("Invoice total must equal max(0, subtotal + tax - discount)").
			WithReportableDetails(map[string]any{
				"subtotal": i.Subtotal,
				"tax":      i.Tax,
				"discount": i.Discount,
				"total":    i.Total,
			}).
			Mark(ierr.ErrValidation)
	}

	if i.PeriodStart != nil && i.PeriodEnd != nil && i.PeriodEnd.Before(*i.PeriodStart) {
		return ierr.NewError("invoice period end before period start").
			WithHint("Invoice period end must not precede its start").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsOverdue reports whether an unpaid invoice is past its due date
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.InvoiceStatus != types.InvoiceStatusSent {
		return false
	}
	return i.DueDate != nil && now.After(*i.DueDate)
}

// LineItem is one ordered line of an invoice
type LineItem struct {
	ID        string          `db:"id" json:"id"`
	InvoiceID string          `db:"invoice_id" json:"invoice_id"`
	Name      string          `db:"name" json:"name"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Position  int             `db:"position" json:"position"`

	types.BaseModel
}

// Amount is the extended line amount
func (li *LineItem) Amount() decimal.Decimal {
	return li.Price.Mul(li.Quantity)
}
