package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/invoice"
	"github.com/gymlane/gymlane/internal/domain/subscription"
	"github.com/gymlane/gymlane/internal/domain/transaction"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/gateway"
	"github.com/gymlane/gymlane/internal/scheduler"
	"github.com/gymlane/gymlane/internal/types"
)

const metadataPromoID = "promo_id"

// InvoiceService owns the invoice lifecycle and the ledger pairing rule: every
// invoice is created together with one pending transaction, and settlement
// transitions that same row to paid. A second transaction for the same invoice
// is never inserted.
type InvoiceService interface {
	Create(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Get(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	List(ctx context.Context, filter *invoice.ListFilter) (*dto.ListInvoicesResponse, error)
	Preview(ctx context.Context, req *dto.PreviewInvoiceRequest) (*dto.PreviewInvoiceResponse, error)
	Send(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkPaid(ctx context.Context, id string, req *dto.MarkInvoicePaidRequest) (*dto.InvoiceResponse, error)
	Void(ctx context.Context, id string) error
}

type invoiceService struct {
	ServiceParams
	billing BillingService
	promo   PromoService
	wallet  WalletService
}

func NewInvoiceService(params ServiceParams, billing BillingService, promoSvc PromoService, walletSvc WalletService) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		billing:       billing,
		promo:         promoSvc,
		wallet:        walletSvc,
	}
}

func (s *invoiceService) Create(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m, err := s.MemberRepo.Get(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	loc, err := s.lookupLocation(ctx, m.LocationID)
	if err != nil {
		return nil, err
	}

	collectionMethod := req.CollectionMethod
	if collectionMethod == "" {
		collectionMethod = types.CollectionMethodSendInvoice
	}

	inv := &invoice.Invoice{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber:    types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE_NUM),
		MemberID:         m.ID,
		LocationID:       loc.ID,
		SubscriptionID:   req.SubscriptionID,
		InvoiceStatus:    types.InvoiceStatusDraft,
		InvoiceType:      types.InvoiceTypeOneOff,
		PaymentType:      req.PaymentType,
		CollectionMethod: collectionMethod,
		Currency:         req.Currency,
		PeriodStart:      req.PeriodStart,
		PeriodEnd:        req.PeriodEnd,
		Metadata:         req.Metadata,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	for i, item := range req.LineItems {
		quantity := item.Quantity
		if quantity.IsZero() {
			quantity = decimal.NewFromInt(1)
		}
		inv.LineItems = append(inv.LineItems, &invoice.LineItem{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM),
			InvoiceID: inv.ID,
			Name:      item.Name,
			Quantity:  quantity,
			Price:     item.Price,
			Position:  i,
			BaseModel: types.GetDefaultBaseModel(ctx),
		})
	}
	inv.ComputeTotals()

	if req.PromoCode != "" {
		p, err := s.PromoRepo.GetByCode(ctx, loc.ID, req.PromoCode)
		if err != nil {
			return nil, err
		}
		if err := p.CanRedeem("", time.Now().UTC()); err != nil {
			return nil, err
		}
		inv.Discount = p.CalculateDiscount(inv.Subtotal)
		if inv.Metadata == nil {
			inv.Metadata = types.Metadata{}
		}
		inv.Metadata[metadataPromoID] = p.ID
	}
	inv.Tax = loc.TaxOn(inv.Subtotal.Sub(inv.Discount))
	inv.ComputeTotals()

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.createDraftPair(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"member_id", inv.MemberID,
		"total", inv.Total)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// createDraftPair persists a draft invoice together with its pending
// transaction. Must run inside a transaction.
func (s *invoiceService) createDraftPair(ctx context.Context, inv *invoice.Invoice) error {
	return createInvoiceDraftPair(ctx, s.ServiceParams, inv)
}

// createInvoiceDraftPair is the single place a draft invoice and its pending
// transaction come into existence, always together
func createInvoiceDraftPair(ctx context.Context, params ServiceParams, inv *invoice.Invoice) error {
	if err := params.InvoiceRepo.CreateWithLineItems(ctx, inv); err != nil {
		return err
	}
	return params.TransactionRepo.Create(ctx, newPendingTransaction(ctx, inv))
}

func newPendingTransaction(ctx context.Context, inv *invoice.Invoice) *transaction.Transaction {
	return &transaction.Transaction{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		InvoiceID:      lo.ToPtr(inv.ID),
		SubscriptionID: inv.SubscriptionID,
		MemberID:       inv.MemberID,
		LocationID:     inv.LocationID,
		Type:           types.TransactionTypeInbound,
		TxnStatus:      types.TransactionStatusPending,
		PaymentType:    inv.PaymentType,
		Subtotal:       inv.Subtotal,
		Tax:            inv.Tax,
		Total:          inv.Total,
		RefundedAmount: decimal.Zero,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

func (s *invoiceService) Get(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

func (s *invoiceService) List(ctx context.Context, filter *invoice.ListFilter) (*dto.ListInvoicesResponse, error) {
	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
		return &dto.InvoiceResponse{Invoice: inv}
	})
	return &dto.ListInvoicesResponse{Items: items, Total: len(items)}, nil
}

// Preview computes the full charge breakdown for a pricing without touching
// the database beyond reads
func (s *invoiceService) Preview(ctx context.Context, req *dto.PreviewInvoiceRequest) (*dto.PreviewInvoiceResponse, error) {
	pr, err := s.lookupPricing(ctx, req.PricingID)
	if err != nil {
		return nil, err
	}
	loc, err := s.lookupLocation(ctx, pr.LocationID)
	if err != nil {
		return nil, err
	}

	var snapshot *types.PromoSnapshot
	if req.PromoCode != "" {
		p, err := s.PromoRepo.GetByCode(ctx, loc.ID, req.PromoCode)
		if err != nil {
			return nil, err
		}
		if err := p.CanRedeem(pr.ID, time.Now().UTC()); err != nil {
			return nil, err
		}
		price := pr.Amount
		if req.FirstCharge {
			price = pr.FirstChargeAmount()
		}
		snapshot = p.Snapshot(price)
	}

	breakdown, err := s.billing.ComputeCharge(ctx, &ChargeInput{
		Pricing:     pr,
		Location:    loc,
		Promo:       snapshot,
		Cycle:       1,
		FirstCharge: req.FirstCharge,
	})
	if err != nil {
		return nil, err
	}

	return &dto.PreviewInvoiceResponse{
		Currency: breakdown.Currency,
		Subtotal: breakdown.Subtotal,
		Discount: breakdown.Discount,
		Tax:      breakdown.Tax,
		Fee:      breakdown.Fee,
		Total:    breakdown.Total,
	}, nil
}

// Send moves a draft invoice out the door. Automatic collection on a gateway
// payment type charges immediately and settles; everything else marks the
// invoice sent and schedules the reminder and overdue jobs.
func (s *invoiceService) Send(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceStatus != types.InvoiceStatusDraft {
		return nil, ierr.NewError("only draft invoices can be sent").
			WithHint("Invoice has already been sent or settled").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if inv.CollectionMethod == types.CollectionMethodChargeAutomatically && inv.PaymentType.RequiresGateway() {
		return s.chargeAndSettle(ctx, inv)
	}

	now := time.Now().UTC()
	dueDate := now.AddDate(0, 0, s.Config.Billing.DueDays)
	inv.InvoiceStatus = types.InvoiceStatusSent
	inv.SentAt = &now
	inv.DueDate = &dueDate
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	if err := s.scheduleInvoiceJobs(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("sent invoice", "invoice_id", inv.ID, "due_date", dueDate)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// chargeAndSettle collects an invoice via the gateway. The charge runs outside
// any database transaction; a DB failure after a successful charge is reported
// as a payment recording failure carrying the payment intent id so the
// operator can reconcile.
func (s *invoiceService) chargeAndSettle(ctx context.Context, inv *invoice.Invoice) (*dto.InvoiceResponse, error) {
	m, err := s.MemberRepo.Get(ctx, inv.MemberID)
	if err != nil {
		return nil, err
	}
	paymentMethodID, err := m.PaymentMethodFor("")
	if err != nil {
		return nil, err
	}
	if m.GatewayCustomerID == nil || *m.GatewayCustomerID == "" {
		return nil, ierr.NewError("member has no gateway customer").
			WithHint("Member has no stored payment method").
			Mark(ierr.ErrValidation)
	}

	result, err := s.Gateway.ProcessPayment(ctx, &gateway.ChargeRequest{
		Amount:            inv.Total,
		Currency:          inv.Currency,
		GatewayCustomerID: *m.GatewayCustomerID,
		PaymentMethodID:   paymentMethodID,
		Description:       inv.InvoiceNumber,
		Metadata:          types.Metadata{"invoice_id": inv.ID},
	})
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.settle(ctx, inv, &settlement{
			paymentType:     inv.PaymentType,
			paymentIntentID: &result.PaymentIntentID,
			paymentMethodID: &result.PaymentMethodID,
		})
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment succeeded but recording it failed").
			WithReportableDetails(map[string]any{
				"invoice_id":        inv.ID,
				"payment_intent_id": result.PaymentIntentID,
			}).
			Mark(ierr.ErrPaymentRecordingFailure)
	}

	s.cancelInvoiceJobs(ctx, inv.ID)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// MarkPaid records settlement of a sent invoice. Legal only from sent; the
// paired pending transaction flips to paid in place, the subscription period
// advances, and cash-collected subscriptions get their next cycle drafted
// idempotently.
func (s *invoiceService) MarkPaid(ctx context.Context, id string, req *dto.MarkInvoicePaidRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceStatus != types.InvoiceStatusSent {
		return nil, ierr.NewError("only sent invoices can be marked paid").
			WithHint("Invoice must be sent before it can be marked paid").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	paymentType := inv.PaymentType
	if req.PaymentType != "" {
		paymentType = req.PaymentType
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.settle(ctx, inv, &settlement{paymentType: paymentType, reference: req.Reference})
	})
	if err != nil {
		return nil, err
	}

	s.cancelInvoiceJobs(ctx, inv.ID)

	s.Logger.Infow("marked invoice paid", "invoice_id", inv.ID, "payment_type", paymentType)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// settlement carries the payment evidence into settle
type settlement struct {
	paymentType     types.PaymentType
	paymentIntentID *string
	paymentMethodID *string
	reference       string
}

// settle is the single settlement path. It must run inside a transaction:
// invoice -> paid, the pending transaction -> paid in place, promo redemption
// consumed, subscription period advanced, next cash cycle drafted, wallet fee
// debited. Any failure rolls the whole settlement back.
func (s *invoiceService) settle(ctx context.Context, inv *invoice.Invoice, stl *settlement) error {
	now := time.Now().UTC()

	inv.InvoiceStatus = types.InvoiceStatusPaid
	inv.PaidAt = &now
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	txn, err := s.TransactionRepo.GetByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	if txn.TxnStatus != types.TransactionStatusPending {
		return ierr.NewError("invoice transaction is not pending").
			WithHint("Invoice has already been settled").
			WithReportableDetails(map[string]any{
				"invoice_id":     inv.ID,
				"transaction_id": txn.ID,
				"status":         txn.TxnStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	txn.TxnStatus = types.TransactionStatusPaid
	txn.PaymentType = stl.paymentType
	txn.PaymentIntentID = stl.paymentIntentID
	txn.PaymentMethodID = stl.paymentMethodID
	txn.SettledAt = &now
	if stl.reference != "" {
		if txn.Metadata == nil {
			txn.Metadata = types.Metadata{}
		}
		txn.Metadata["reference"] = stl.reference
	}
	if err := s.TransactionRepo.Update(ctx, txn); err != nil {
		return err
	}

	if promoID, ok := inv.Metadata[metadataPromoID]; ok && promoID != "" {
		if err := s.promo.ApplyRedemption(ctx, promoID); err != nil {
			return err
		}
	}

	if inv.SubscriptionID != nil {
		if err := s.advanceSubscription(ctx, inv, now); err != nil {
			return err
		}
	}

	return nil
}

// advanceSubscription rolls the subscription into its next period after a
// settled invoice and drafts the next cash cycle
func (s *invoiceService) advanceSubscription(ctx context.Context, inv *invoice.Invoice, now time.Time) error {
	sub, err := s.SubRepo.Get(ctx, *inv.SubscriptionID)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus.IsTerminal() {
		return nil
	}

	pr, err := s.lookupPricing(ctx, sub.PricingID)
	if err != nil {
		return err
	}
	pl, err := s.lookupPlan(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	// settle the snapshotted discount on its first applied charge
	if sub.HasUnappliedPromo() {
		if err := s.promo.ApplyRedemption(ctx, sub.PromoSnapshot.PromoID); err != nil {
			return err
		}
		sub.PromoSnapshot.Applied = true
		sub.PromoSnapshot.AppliedAt = &now
	}

	nextEnd, err := types.NextBillingDate(sub.CurrentPeriodEnd, pr.IntervalThreshold, pr.Interval)
	if err != nil {
		return err
	}
	sub.CurrentPeriodStart = sub.CurrentPeriodEnd
	sub.CurrentPeriodEnd = nextEnd
	if sub.CancelAtPeriodEnd {
		sub.CancelAt = &sub.CurrentPeriodEnd
	}
	sub.MakeUpCredits += pl.MakeUpCredits
	if sub.SubscriptionStatus == types.SubscriptionStatusPastDue ||
		sub.SubscriptionStatus == types.SubscriptionStatusUnpaid {
		sub.SubscriptionStatus = types.SubscriptionStatusActive
	}
	// a settled invoice whose period starts at or after the trial end converts
	// the trial; cash subscriptions have no renewal job to do it for them
	if sub.SubscriptionStatus == types.SubscriptionStatusTrialing && sub.TrialEnd != nil &&
		inv.PeriodStart != nil && !inv.PeriodStart.Before(*sub.TrialEnd) {
		sub.SubscriptionStatus = types.SubscriptionStatusActive
		sub.TrialEnd = nil
	}
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	if sub.PaymentType == types.PaymentTypeCash && !sub.CancelAtPeriodEnd {
		if err := s.draftNextCycle(ctx, sub, pr.Currency); err != nil {
			return err
		}
	}

	// an out-of-band settlement (a demoted charge paid late) has no renewal
	// handler behind it, so the timer is re-armed here for gateway payers
	if sub.PaymentType.RequiresGateway() && sub.SubscriptionStatus == types.SubscriptionStatusActive {
		if err := scheduleSubscriptionRenewal(ctx, s.ServiceParams, sub, pr); err != nil {
			return err
		}
	}

	loc, err := s.lookupLocation(ctx, sub.LocationID)
	if err != nil {
		return err
	}
	if loc.WalletFeeAbsorption && inv.PaymentType == types.PaymentTypeCash {
		fee := loc.FeeOn(inv.Total)
		if fee.IsPositive() {
			if err := s.wallet.Charge(ctx, loc.ID, fee, "fee absorption for "+inv.InvoiceNumber); err != nil {
				return err
			}
		}
	}

	return nil
}

// draftNextCycle creates the next period's draft invoice and pending
// transaction for a cash subscription. Idempotent: an existing open draft is
// left alone.
func (s *invoiceService) draftNextCycle(ctx context.Context, sub *subscription.Subscription, currency string) error {
	existing, err := s.InvoiceRepo.GetDraftForSubscription(ctx, sub.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if existing != nil {
		return nil
	}

	pr, err := s.lookupPricing(ctx, sub.PricingID)
	if err != nil {
		return err
	}
	loc, err := s.lookupLocation(ctx, sub.LocationID)
	if err != nil {
		return err
	}

	cycle, err := s.chargeCycle(ctx, sub.ID)
	if err != nil {
		return err
	}
	breakdown, err := s.billing.ComputeCharge(ctx, &ChargeInput{
		Pricing:  pr,
		Location: loc,
		Promo:    sub.PromoSnapshot,
		Cycle:    cycle,
	})
	if err != nil {
		return err
	}

	inv := buildSubscriptionInvoice(ctx, sub, breakdown, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	return s.createDraftPair(ctx, inv)
}

// chargeCycle returns the 1-based number of the next charge for a subscription
func (p ServiceParams) chargeCycle(ctx context.Context, subscriptionID string) (int, error) {
	txns, err := p.TransactionRepo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}
	settled := lo.CountBy(txns, func(t *transaction.Transaction) bool {
		return t.Type == types.TransactionTypeInbound && t.TxnStatus == types.TransactionStatusPaid
	})
	return settled + 1, nil
}

// buildSubscriptionInvoice assembles a recurring invoice from a charge breakdown
func buildSubscriptionInvoice(ctx context.Context, sub *subscription.Subscription, breakdown *ChargeBreakdown, periodStart, periodEnd time.Time) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber:    types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE_NUM),
		MemberID:         sub.MemberID,
		LocationID:       sub.LocationID,
		SubscriptionID:   lo.ToPtr(sub.ID),
		InvoiceStatus:    types.InvoiceStatusDraft,
		InvoiceType:      types.InvoiceTypeRecurring,
		PaymentType:      sub.PaymentType,
		CollectionMethod: sub.CollectionMethod,
		Currency:         breakdown.Currency,
		Discount:         breakdown.Discount,
		Tax:              breakdown.Tax,
		PeriodStart:      &periodStart,
		PeriodEnd:        &periodEnd,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	inv.LineItems = []*invoice.LineItem{{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM),
		InvoiceID: inv.ID,
		Name:      "Membership",
		Quantity:  decimal.NewFromInt(1),
		Price:     breakdown.Subtotal.Add(breakdown.Fee),
		Position:  0,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}}
	inv.ComputeTotals()
	return inv
}

// Void cancels an open invoice and fails its pending transaction
func (s *invoiceService) Void(ctx context.Context, id string) error {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.InvoiceStatus != types.InvoiceStatusDraft && inv.InvoiceStatus != types.InvoiceStatusSent {
		return ierr.NewError("only open invoices can be voided").
			WithHint("Paid or already voided invoices cannot be voided").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv.InvoiceStatus = types.InvoiceStatusVoid
		inv.VoidedAt = &now
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		txn, err := s.TransactionRepo.GetByInvoice(ctx, inv.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil
			}
			return err
		}
		if txn.TxnStatus == types.TransactionStatusPending {
			txn.TxnStatus = types.TransactionStatusFailed
			if err := s.TransactionRepo.Update(ctx, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cancelInvoiceJobs(ctx, inv.ID)
	return nil
}

// scheduleInvoiceJobs sets up the pre-due reminder and the overdue check for a
// sent invoice
func (s *invoiceService) scheduleInvoiceJobs(ctx context.Context, inv *invoice.Invoice) error {
	if inv.DueDate == nil {
		return nil
	}

	payload := scheduler.InvoicePayload{
		InvoiceID:  inv.ID,
		TenantID:   inv.TenantID,
		LocationID: inv.LocationID,
	}

	reminderAt := inv.DueDate.AddDate(0, 0, -s.Config.Billing.ReminderDaysBefore)
	if reminderAt.After(time.Now().UTC()) {
		reminderPayload := payload
		reminderPayload.Sequence = 1
		if err := s.SchedulerClient.Schedule(ctx, &scheduler.ScheduleRequest{
			ID:      scheduler.InvoiceReminderJobID(inv.ID, 1),
			Kind:    types.ScheduledJobKindInvoiceReminder,
			Payload: reminderPayload,
			RunAt:   &reminderAt,
		}); err != nil {
			return err
		}
	}

	return s.SchedulerClient.Schedule(ctx, &scheduler.ScheduleRequest{
		ID:      scheduler.InvoiceOverdueJobID(inv.ID),
		Kind:    types.ScheduledJobKindInvoiceOverdue,
		Payload: payload,
		RunAt:   inv.DueDate,
	})
}

// cancelInvoiceJobs sweeps all possible reminder and overdue jobs for an
// invoice. Cancelling a job that was never scheduled is a no-op.
func (s *invoiceService) cancelInvoiceJobs(ctx context.Context, invoiceID string) {
	for n := 1; n <= s.Config.Scheduler.MaxReminderJobs; n++ {
		if err := s.SchedulerClient.Cancel(ctx, scheduler.InvoiceReminderJobID(invoiceID, n)); err != nil {
			s.Logger.Warnw("failed to cancel reminder job", "invoice_id", invoiceID, "sequence", n, "error", err)
		}
	}
	if err := s.SchedulerClient.Cancel(ctx, scheduler.InvoiceOverdueJobID(invoiceID)); err != nil {
		s.Logger.Warnw("failed to cancel overdue job", "invoice_id", invoiceID, "error", err)
	}
}
