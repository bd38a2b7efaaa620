package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/gymlane/gymlane/internal/api/dto"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/testutil"
)

type WalletServiceSuite struct {
	ServiceTestSuite
}

func TestWalletService(t *testing.T) {
	suite.Run(t, new(WalletServiceSuite))
}

func (s *WalletServiceSuite) TestTopUpCreditsAndRecordsUsage() {
	s.seedWallet(decimal.NewFromInt(500))

	resp, err := s.walletService.TopUp(s.GetContext(), testutil.TestLocationID,
		&dto.TopUpWalletRequest{Amount: decimal.NewFromInt(2000), Description: "monthly float"})
	s.Require().NoError(err)
	s.True(resp.Balance.Equal(decimal.NewFromInt(2500)))

	usage, err := s.GetStores().WalletRepo.ListUsage(s.GetContext(), "wallet_1", 10)
	s.Require().NoError(err)
	s.Require().Len(usage, 1)
	s.True(usage[0].IsCredit)
	s.True(usage[0].Amount.Equal(decimal.NewFromInt(2000)))
	s.True(usage[0].ResultingBalance.Equal(decimal.NewFromInt(2500)))
	s.Equal("monthly float", usage[0].Description)
}

func (s *WalletServiceSuite) TestTopUpRequiresPositiveAmount() {
	s.seedWallet(decimal.NewFromInt(500))

	_, err := s.walletService.TopUp(s.GetContext(), testutil.TestLocationID,
		&dto.TopUpWalletRequest{Amount: decimal.Zero})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WalletServiceSuite) TestChargeDebitsAndRecordsUsage() {
	s.seedWallet(decimal.NewFromInt(1000))

	err := s.walletService.Charge(s.GetContext(), testutil.TestLocationID,
		decimal.NewFromInt(300), "fee absorption")
	s.Require().NoError(err)

	w, err := s.GetStores().WalletRepo.Get(s.GetContext(), "wallet_1")
	s.Require().NoError(err)
	s.True(w.Balance.Equal(decimal.NewFromInt(700)))

	usage, err := s.GetStores().WalletRepo.ListUsage(s.GetContext(), "wallet_1", 10)
	s.Require().NoError(err)
	s.Require().Len(usage, 1)
	s.False(usage[0].IsCredit)
	s.True(usage[0].ResultingBalance.Equal(decimal.NewFromInt(700)))
}

func (s *WalletServiceSuite) TestChargeInsufficientBalanceFailsClosed() {
	s.seedWallet(decimal.NewFromInt(100))

	err := s.walletService.Charge(s.GetContext(), testutil.TestLocationID,
		decimal.NewFromInt(300), "fee absorption")
	s.Error(err)
	s.True(ierr.IsWalletChargeFailure(err))

	w, gerr := s.GetStores().WalletRepo.Get(s.GetContext(), "wallet_1")
	s.Require().NoError(gerr)
	s.True(w.Balance.Equal(decimal.NewFromInt(100)))

	usage, uerr := s.GetStores().WalletRepo.ListUsage(s.GetContext(), "wallet_1", 10)
	s.Require().NoError(uerr)
	s.Empty(usage)
}

func (s *WalletServiceSuite) TestChargeWithoutWalletFailsClosed() {
	err := s.walletService.Charge(s.GetContext(), testutil.TestLocationID,
		decimal.NewFromInt(300), "fee absorption")
	s.Error(err)
	s.True(ierr.IsWalletChargeFailure(err))
}

func (s *WalletServiceSuite) TestChargeRequiresPositiveAmount() {
	s.seedWallet(decimal.NewFromInt(1000))

	err := s.walletService.Charge(s.GetContext(), testutil.TestLocationID,
		decimal.Zero, "fee absorption")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WalletServiceSuite) TestGetByLocationIncludesUsage() {
	s.seedWallet(decimal.NewFromInt(1000))
	s.Require().NoError(s.walletService.Charge(s.GetContext(), testutil.TestLocationID,
		decimal.NewFromInt(250), "fee absorption"))

	resp, err := s.walletService.GetByLocation(s.GetContext(), testutil.TestLocationID)
	s.Require().NoError(err)
	s.True(resp.Balance.Equal(decimal.NewFromInt(750)))
	s.Len(resp.Usage, 1)
}
