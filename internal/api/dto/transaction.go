package dto

import (
	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/domain/transaction"
	ierr "github.com/gymlane/gymlane/internal/errors"
)

// RefundTransactionRequest issues a refund against a settled transaction. A
// zero or missing amount means a full refund of whatever is still refundable.
type RefundTransactionRequest struct {
	Amount decimal.Decimal `json:"amount,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

func (r *RefundTransactionRequest) Validate() error {
	if r.Amount.IsNegative() {
		return ierr.NewError("refund amount must not be negative").
			WithHint("Refund amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TransactionResponse is the API representation of a ledger transaction
type TransactionResponse struct {
	*transaction.Transaction
}

// ListTransactionsResponse is a list of transactions
type ListTransactionsResponse struct {
	Items []*TransactionResponse `json:"items"`
	Total int                    `json:"total"`
}
