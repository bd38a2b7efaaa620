package wallet

import (
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

// Wallet is a location-level prepaid balance used to absorb processing fees on
// cash-collected renewals
type Wallet struct {
	ID         string          `db:"id" json:"id"`
	LocationID string          `db:"location_id" json:"location_id"`
	VendorID   string          `db:"vendor_id" json:"vendor_id"`
	Currency   string          `db:"currency" json:"currency"`
	Balance    decimal.Decimal `db:"balance" json:"balance"`

	types.BaseModel
}

func (w *Wallet) Validate() error {
	if w.Balance.IsNegative() {
		return ierr.NewError("wallet balance must not be negative").
			WithHint("Wallet balance must not be negative").
			WithReportableDetails(map[string]any{
				"wallet_id": w.ID,
				"balance":   w.Balance,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UsageEntry is one row of the wallet's usage ledger. Credits are top-ups,
// debits are fee absorptions; ResultingBalance is the balance after applying
// this entry.
type UsageEntry struct {
	ID               string          `db:"id" json:"id"`
	WalletID         string          `db:"wallet_id" json:"wallet_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	ResultingBalance decimal.Decimal `db:"resulting_balance" json:"resulting_balance"`
	IsCredit         bool            `db:"is_credit" json:"is_credit"`
	Description      string          `db:"description" json:"description"`

	types.BaseModel
}
