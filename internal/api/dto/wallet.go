package dto

import (
	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/domain/wallet"
	ierr "github.com/gymlane/gymlane/internal/errors"
)

// TopUpWalletRequest credits the location wallet
type TopUpWalletRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description,omitempty"`
}

func (r *TopUpWalletRequest) Validate() error {
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("top up amount must be positive").
			WithHint("Top up amount must be positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// WalletResponse is the API representation of a wallet and its recent usage
type WalletResponse struct {
	*wallet.Wallet
	Usage []*wallet.UsageEntry `json:"usage,omitempty"`
}
