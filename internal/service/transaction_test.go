package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/transaction"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/testutil"
	"github.com/gymlane/gymlane/internal/types"
)

type TransactionServiceSuite struct {
	ServiceTestSuite
}

func TestTransactionService(t *testing.T) {
	suite.Run(t, new(TransactionServiceSuite))
}

// seedSettledCharge writes a settled one-off card charge into the ledger
func (s *TransactionServiceSuite) seedSettledCharge(total int64) *transaction.Transaction {
	txn := &transaction.Transaction{
		ID:              "txn_1",
		MemberID:        "member_1",
		LocationID:      testutil.TestLocationID,
		Type:            types.TransactionTypeInbound,
		TxnStatus:       types.TransactionStatusPaid,
		PaymentType:     types.PaymentTypeCard,
		Subtotal:        decimal.NewFromInt(total),
		Tax:             decimal.Zero,
		Total:           decimal.NewFromInt(total),
		RefundedAmount:  decimal.Zero,
		PaymentIntentID: lo.ToPtr("pi_test_1"),
		SettledAt:       lo.ToPtr(time.Now().UTC()),
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().TransactionRepo.Create(s.GetContext(), txn))
	return txn
}

func (s *TransactionServiceSuite) seedSettledCashCharge(total int64) *transaction.Transaction {
	txn := &transaction.Transaction{
		ID:             "txn_1",
		MemberID:       "member_1",
		LocationID:     testutil.TestLocationID,
		Type:           types.TransactionTypeInbound,
		TxnStatus:      types.TransactionStatusPaid,
		PaymentType:    types.PaymentTypeCash,
		Subtotal:       decimal.NewFromInt(total),
		Tax:            decimal.Zero,
		Total:          decimal.NewFromInt(total),
		RefundedAmount: decimal.Zero,
		SettledAt:      lo.ToPtr(time.Now().UTC()),
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().TransactionRepo.Create(s.GetContext(), txn))
	return txn
}

func (s *TransactionServiceSuite) TestRefundZeroAmountRefundsInFull() {
	s.seedSettledCharge(10000)

	resp, err := s.transactionService.Refund(s.GetContext(), "txn_1", &dto.RefundTransactionRequest{})
	s.Require().NoError(err)
	s.True(resp.Refunded)
	s.True(resp.RefundedAmount.Equal(decimal.NewFromInt(10000)))

	s.Require().Len(s.GetGateway().Refunds, 1)
	s.Equal("pi_test_1", s.GetGateway().Refunds[0].PaymentIntentID)
	s.True(s.GetGateway().Refunds[0].Amount.Equal(decimal.NewFromInt(10000)))
}

func (s *TransactionServiceSuite) TestRefundWritesOutboundLedgerEntry() {
	s.seedSettledCharge(10000)

	_, err := s.transactionService.Refund(s.GetContext(), "txn_1",
		&dto.RefundTransactionRequest{Amount: decimal.NewFromInt(2500), Reason: "unused sessions"})
	s.Require().NoError(err)

	all := s.GetStores().TransactionRepo.(*testutil.InMemoryTransactionStore).All()
	s.Require().Len(all, 2)
	outbound := all[1]
	s.Equal(types.TransactionTypeOutbound, outbound.Type)
	s.Equal(types.TransactionStatusPaid, outbound.TxnStatus)
	s.True(outbound.Total.Equal(decimal.NewFromInt(2500)))
	s.Equal("txn_1", outbound.Metadata["refund_of"])
	s.NotEmpty(outbound.Metadata["gateway_refund_id"])
	s.NotNil(outbound.SettledAt)
}

func (s *TransactionServiceSuite) TestRefundRequestClampedToTotal() {
	s.seedSettledCharge(5000)

	resp, err := s.transactionService.Refund(s.GetContext(), "txn_1",
		&dto.RefundTransactionRequest{Amount: decimal.NewFromInt(99999)})
	s.Require().NoError(err)
	s.True(resp.RefundedAmount.Equal(decimal.NewFromInt(5000)))
	s.True(s.GetGateway().Refunds[0].Amount.Equal(decimal.NewFromInt(5000)))
}

func (s *TransactionServiceSuite) TestDoubleRefundRejected() {
	s.seedSettledCharge(10000)

	_, err := s.transactionService.Refund(s.GetContext(), "txn_1",
		&dto.RefundTransactionRequest{Amount: decimal.NewFromInt(3000)})
	s.Require().NoError(err)

	_, err = s.transactionService.Refund(s.GetContext(), "txn_1", &dto.RefundTransactionRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Len(s.GetGateway().Refunds, 1)
}

func (s *TransactionServiceSuite) TestRefundPendingRejected() {
	txn := s.seedSettledCharge(10000)
	txn.TxnStatus = types.TransactionStatusPending
	s.Require().NoError(s.GetStores().TransactionRepo.Update(s.GetContext(), txn))

	_, err := s.transactionService.Refund(s.GetContext(), "txn_1", &dto.RefundTransactionRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *TransactionServiceSuite) TestRefundSubscriptionChargeRejected() {
	txn := s.seedSettledCharge(10000)
	txn.SubscriptionID = lo.ToPtr("sub_1")
	s.Require().NoError(s.GetStores().TransactionRepo.Update(s.GetContext(), txn))

	_, err := s.transactionService.Refund(s.GetContext(), "txn_1", &dto.RefundTransactionRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Empty(s.GetGateway().Refunds)
}

func (s *TransactionServiceSuite) TestRefundNegativeAmountRejected() {
	s.seedSettledCharge(10000)

	_, err := s.transactionService.Refund(s.GetContext(), "txn_1",
		&dto.RefundTransactionRequest{Amount: decimal.NewFromInt(-1)})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *TransactionServiceSuite) TestCashRefundSkipsGateway() {
	s.seedSettledCashCharge(8000)

	resp, err := s.transactionService.Refund(s.GetContext(), "txn_1", &dto.RefundTransactionRequest{})
	s.Require().NoError(err)
	s.True(resp.Refunded)
	s.Empty(s.GetGateway().Refunds)

	all := s.GetStores().TransactionRepo.(*testutil.InMemoryTransactionStore).All()
	s.Require().Len(all, 2)
	s.Equal(types.TransactionTypeOutbound, all[1].Type)
	s.Empty(all[1].Metadata["gateway_refund_id"])
}

func (s *TransactionServiceSuite) TestGatewayRefundErrorSurfacesVerbatim() {
	s.seedSettledCharge(10000)
	s.GetGateway().FailRefunds = true

	_, err := s.transactionService.Refund(s.GetContext(), "txn_1", &dto.RefundTransactionRequest{})
	s.Error(err)
	s.True(ierr.IsGatewayFailure(err))

	// nothing was written to the ledger
	txn, gerr := s.GetStores().TransactionRepo.Get(s.GetContext(), "txn_1")
	s.Require().NoError(gerr)
	s.False(txn.Refunded)
	all := s.GetStores().TransactionRepo.(*testutil.InMemoryTransactionStore).All()
	s.Len(all, 1)
}

func (s *TransactionServiceSuite) TestListBySubscription() {
	for i, id := range []string{"txn_a", "txn_b"} {
		txn := &transaction.Transaction{
			ID:             id,
			SubscriptionID: lo.ToPtr("sub_1"),
			MemberID:       "member_1",
			LocationID:     testutil.TestLocationID,
			Type:           types.TransactionTypeInbound,
			TxnStatus:      types.TransactionStatusPaid,
			PaymentType:    types.PaymentTypeCard,
			Total:          decimal.NewFromInt(int64(1000 * (i + 1))),
			BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
		}
		txn.CreatedAt = txn.CreatedAt.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(s.GetStores().TransactionRepo.Create(s.GetContext(), txn))
	}

	resp, err := s.transactionService.ListBySubscription(s.GetContext(), "sub_1")
	s.Require().NoError(err)
	s.Equal(2, resp.Total)
	// newest first
	s.Equal("txn_b", resp.Items[0].ID)
}
