package location

import (
	"github.com/gymlane/gymlane/internal/types"
	"github.com/shopspring/decimal"
)

// Location is the billing core's view of a gym/studio location: the tax and
// fee settings that shape every charge. Location CRUD lives elsewhere.
type Location struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Timezone string `db:"timezone" json:"timezone"`
	// TaxRate is a percentage, e.g. 8.25 means 8.25%
	TaxRate decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	// FeePassthrough adds the processing fee on top of the member's charge
	// instead of absorbing it into the price
	FeePassthrough bool `db:"fee_passthrough" json:"fee_passthrough"`
	// FeePercent is the processing fee percentage applied when passing through
	// or when debiting the wallet on cash renewals
	FeePercent decimal.Decimal `db:"fee_percent" json:"fee_percent"`
	// VendorID identifies the location's vendor account for wallet fee debits
	VendorID string `db:"vendor_id" json:"vendor_id"`
	// WalletFeeAbsorption debits the location wallet for the processing fee
	// when a cash renewal is marked paid
	WalletFeeAbsorption bool `db:"wallet_fee_absorption" json:"wallet_fee_absorption"`

	types.BaseModel
}

// TaxOn returns the tax for the given amount at this location's rate
func (l *Location) TaxOn(amount decimal.Decimal) decimal.Decimal {
	if l.TaxRate.IsZero() || amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return amount.Mul(l.TaxRate).Div(decimal.NewFromInt(100)).Floor()
}

// FeeOn returns the processing fee for the given amount
func (l *Location) FeeOn(amount decimal.Decimal) decimal.Decimal {
	if l.FeePercent.IsZero() || amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return amount.Mul(l.FeePercent).Div(decimal.NewFromInt(100)).Floor()
}
