package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/transaction"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// TransactionService exposes the ledger and handles refunds. Direct refunds of
// subscription-linked transactions are rejected: the subscription has to be
// cancelled, which issues the refund as part of the cancellation.
type TransactionService interface {
	Get(ctx context.Context, id string) (*dto.TransactionResponse, error)
	ListBySubscription(ctx context.Context, subscriptionID string) (*dto.ListTransactionsResponse, error)
	Refund(ctx context.Context, id string, req *dto.RefundTransactionRequest) (*dto.TransactionResponse, error)
}

type transactionService struct {
	ServiceParams
}

func NewTransactionService(params ServiceParams) TransactionService {
	return &transactionService{ServiceParams: params}
}

func (s *transactionService) Get(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	txn, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.TransactionResponse{Transaction: txn}, nil
}

func (s *transactionService) ListBySubscription(ctx context.Context, subscriptionID string) (*dto.ListTransactionsResponse, error) {
	txns, err := s.TransactionRepo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	items := lo.Map(txns, func(t *transaction.Transaction, _ int) *dto.TransactionResponse {
		return &dto.TransactionResponse{Transaction: t}
	})
	return &dto.ListTransactionsResponse{Items: items, Total: len(items)}, nil
}

func (s *transactionService) Refund(ctx context.Context, id string, req *dto.RefundTransactionRequest) (*dto.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txn, err := s.TransactionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if txn.SubscriptionID != nil {
		return nil, ierr.NewError("transaction belongs to a subscription").
			WithHint("Cancel the subscription to refund its charges").
			WithReportableDetails(map[string]any{
				"transaction_id":  txn.ID,
				"subscription_id": *txn.SubscriptionID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	record, err := executeRefund(ctx, s.ServiceParams, txn, req.Amount, req.Reason)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("refunded transaction",
		"transaction_id", txn.ID,
		"amount", record.Amount,
		"gateway_refund_id", record.GatewayRefundID)
	return &dto.TransactionResponse{Transaction: txn}, nil
}

// executeRefund issues a refund against a settled transaction: gateway call
// first (when the charge went through the gateway), then one DB transaction
// recording the refund on the original row and inserting the outbound ledger
// entry. A DB failure after a successful gateway refund is reported as a
// payment recording failure.
func executeRefund(ctx context.Context, params ServiceParams, txn *transaction.Transaction, requested decimal.Decimal, reason string) (*types.RefundRecord, error) {
	if !txn.IsRefundable() {
		return nil, ierr.NewError("transaction is not refundable").
			WithHint("Only settled, not yet refunded transactions can be refunded").
			WithReportableDetails(map[string]any{
				"transaction_id": txn.ID,
				"status":         txn.TxnStatus,
				"refunded":       txn.Refunded,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	amount := txn.ClampRefund(requested)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ierr.NewError("nothing left to refund").
			WithHint("The transaction has no refundable amount remaining").
			Mark(ierr.ErrInvalidOperation)
	}

	record := &types.RefundRecord{
		Amount:     amount,
		Reason:     reason,
		RefundedAt: time.Now().UTC(),
	}

	// cash transactions are refunded on the books only; gateway charges go
	// back through the processor
	if txn.PaymentType.RequiresGateway() {
		if txn.PaymentIntentID == nil || *txn.PaymentIntentID == "" {
			return nil, ierr.NewError("transaction has no payment intent").
				WithHint("Transaction has no recorded payment to refund").
				Mark(ierr.ErrInvalidOperation)
		}
		result, err := params.Gateway.CreateRefund(ctx, *txn.PaymentIntentID, amount)
		if err != nil {
			return nil, err
		}
		record.PaymentIntentID = *txn.PaymentIntentID
		record.GatewayRefundID = result.RefundID
	}

	err := params.DB.WithTx(ctx, func(ctx context.Context) error {
		return applyRefund(ctx, params, txn, record)
	})
	if err != nil {
		if record.GatewayRefundID != "" {
			return nil, ierr.WithError(err).
				WithHint("Refund succeeded but recording it failed").
				WithReportableDetails(map[string]any{
					"transaction_id":    txn.ID,
					"payment_intent_id": record.PaymentIntentID,
					"gateway_refund_id": record.GatewayRefundID,
				}).
				Mark(ierr.ErrPaymentRecordingFailure)
		}
		return nil, err
	}

	return record, nil
}

// applyRefund writes the refund to the ledger: the original transaction gets
// the refund record, and an outbound transaction mirrors the money leaving.
// Must run inside a transaction.
func applyRefund(ctx context.Context, params ServiceParams, txn *transaction.Transaction, record *types.RefundRecord) error {
	txn.Refunded = true
	txn.RefundedAmount = txn.RefundedAmount.Add(record.Amount)
	txn.Refund = record
	if err := txn.Validate(); err != nil {
		return err
	}
	if err := params.TransactionRepo.Update(ctx, txn); err != nil {
		return err
	}

	outbound := &transaction.Transaction{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		InvoiceID:      txn.InvoiceID,
		SubscriptionID: txn.SubscriptionID,
		MemberID:       txn.MemberID,
		LocationID:     txn.LocationID,
		Type:           types.TransactionTypeOutbound,
		TxnStatus:      types.TransactionStatusPaid,
		PaymentType:    txn.PaymentType,
		Subtotal:       record.Amount,
		Tax:            decimal.Zero,
		Total:          record.Amount,
		RefundedAmount: decimal.Zero,
		SettledAt:      lo.ToPtr(record.RefundedAt),
		Metadata:       types.Metadata{"refund_of": txn.ID},
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if record.GatewayRefundID != "" {
		outbound.Metadata["gateway_refund_id"] = record.GatewayRefundID
	}
	return params.TransactionRepo.Create(ctx, outbound)
}
