package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository provides access to wallet balances and their usage ledger
type Repository interface {
	Create(ctx context.Context, wallet *Wallet) error
	Get(ctx context.Context, id string) (*Wallet, error)
	GetByLocation(ctx context.Context, locationID string) (*Wallet, error)
	// DebitBalance subtracts amount from the wallet only while the balance
	// covers it, returning the post-debit balance; ok is false when funds are
	// insufficient. Negative balances are never allowed.
	DebitBalance(ctx context.Context, id string, amount decimal.Decimal) (balance decimal.Decimal, ok bool, err error)
	// CreditBalance adds amount to the wallet and returns the resulting balance
	CreditBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
	CreateUsageEntry(ctx context.Context, entry *UsageEntry) error
	ListUsage(ctx context.Context, walletID string, limit int) ([]*UsageEntry, error)
}
