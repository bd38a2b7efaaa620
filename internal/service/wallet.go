package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/wallet"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

const walletUsageLimit = 50

// WalletService manages the location wallets that absorb processing fees on
// cash-collected renewals. Charges fail closed: a balance never goes negative,
// and an uncovered fee fails the whole settlement.
type WalletService interface {
	GetByLocation(ctx context.Context, locationID string) (*dto.WalletResponse, error)
	TopUp(ctx context.Context, locationID string, req *dto.TopUpWalletRequest) (*dto.WalletResponse, error)
	// Charge debits the wallet and records a usage entry. Must run inside the
	// caller's transaction when the debit is part of a settlement.
	Charge(ctx context.Context, locationID string, amount decimal.Decimal, description string) error
}

type walletService struct {
	ServiceParams
}

func NewWalletService(params ServiceParams) WalletService {
	return &walletService{ServiceParams: params}
}

func (s *walletService) GetByLocation(ctx context.Context, locationID string) (*dto.WalletResponse, error) {
	w, err := s.WalletRepo.GetByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	usage, err := s.WalletRepo.ListUsage(ctx, w.ID, walletUsageLimit)
	if err != nil {
		return nil, err
	}
	return &dto.WalletResponse{Wallet: w, Usage: usage}, nil
}

func (s *walletService) TopUp(ctx context.Context, locationID string, req *dto.TopUpWalletRequest) (*dto.WalletResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	w, err := s.WalletRepo.GetByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = "wallet top up"
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		balance, err := s.WalletRepo.CreditBalance(ctx, w.ID, req.Amount)
		if err != nil {
			return err
		}
		w.Balance = balance
		return s.WalletRepo.CreateUsageEntry(ctx, &wallet.UsageEntry{
			ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_USAGE),
			WalletID:         w.ID,
			Amount:           req.Amount,
			ResultingBalance: balance,
			IsCredit:         true,
			Description:      description,
			BaseModel:        types.GetDefaultBaseModel(ctx),
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("wallet topped up",
		"wallet_id", w.ID,
		"location_id", locationID,
		"amount", req.Amount,
		"balance", w.Balance)
	return &dto.WalletResponse{Wallet: w}, nil
}

func (s *walletService) Charge(ctx context.Context, locationID string, amount decimal.Decimal, description string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("wallet charge amount must be positive").
			WithHint("Wallet charge amount must be positive").
			Mark(ierr.ErrValidation)
	}

	w, err := s.WalletRepo.GetByLocation(ctx, locationID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.NewError("location has no wallet").
				WithHint("Wallet fee absorption requires a funded wallet").
				WithReportableDetails(map[string]any{"location_id": locationID}).
				Mark(ierr.ErrWalletChargeFailure)
		}
		return err
	}

	balance, ok, err := s.WalletRepo.DebitBalance(ctx, w.ID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ierr.NewError("insufficient wallet balance").
			WithHint("Wallet balance does not cover the fee").
			WithReportableDetails(map[string]any{
				"wallet_id": w.ID,
				"balance":   w.Balance,
				"amount":    amount,
			}).
			Mark(ierr.ErrWalletChargeFailure)
	}

	return s.WalletRepo.CreateUsageEntry(ctx, &wallet.UsageEntry{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WALLET_USAGE),
		WalletID:         w.ID,
		Amount:           amount,
		ResultingBalance: balance,
		IsCredit:         false,
		Description:      description,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	})
}
