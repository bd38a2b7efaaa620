package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/invoice"
	"github.com/gymlane/gymlane/internal/domain/location"
	"github.com/gymlane/gymlane/internal/domain/member"
	"github.com/gymlane/gymlane/internal/domain/plan"
	"github.com/gymlane/gymlane/internal/domain/pricing"
	"github.com/gymlane/gymlane/internal/domain/promo"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/scheduler"
	"github.com/gymlane/gymlane/internal/types"
)

type InvoiceServiceSuite struct {
	ServiceTestSuite
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) TestCreateDraftWithPendingTransaction() {
	s.seedLocation(&location.Location{TaxRate: decimal.NewFromInt(10)})
	s.seedMember(&member.Member{})
	s.seedPromo(&promo.Promo{
		Code:     "TEN",
		Type:     types.PromoTypePercentage,
		Value:    decimal.NewFromInt(10),
		Duration: types.PromoDurationOnce,
	})

	resp, err := s.invoiceService.Create(s.GetContext(), &dto.CreateInvoiceRequest{
		MemberID:    "member_1",
		Currency:    "usd",
		PaymentType: types.PaymentTypeCash,
		PromoCode:   "TEN",
		LineItems: []dto.LineItemRequest{
			{Name: "Personal training", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(5000)},
		},
	})
	s.Require().NoError(err)

	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Equal(types.InvoiceTypeOneOff, resp.InvoiceType)
	s.True(resp.Subtotal.Equal(decimal.NewFromInt(10000)))
	s.True(resp.Discount.Equal(decimal.NewFromInt(1000)))
	// tax on the discounted base: 10% of 9000
	s.True(resp.Tax.Equal(decimal.NewFromInt(900)))
	s.True(resp.Total.Equal(decimal.NewFromInt(9900)))
	s.NotEmpty(resp.InvoiceNumber)

	txn, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusPending, txn.TxnStatus)
	s.True(txn.Total.Equal(resp.Total))
}

func (s *InvoiceServiceSuite) TestSendSchedulesReminderAndOverdueJobs() {
	inv := s.draftOneOffInvoice()

	sent, err := s.invoiceService.Send(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.NotNil(sent.SentAt)
	s.Require().NotNil(sent.DueDate)
	s.Equal(s.GetConfig().Billing.DueDays, int(sent.DueDate.Sub(*sent.SentAt).Hours()/24))

	_, err = s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceReminderJobID(inv.ID, 1))
	s.NoError(err)
	overdue, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceOverdueJobID(inv.ID))
	s.Require().NoError(err)
	s.Require().NotNil(overdue.RunAt)
	s.True(overdue.RunAt.Equal(*sent.DueDate))
}

func (s *InvoiceServiceSuite) TestSendNonDraftRejected() {
	inv := s.draftOneOffInvoice()
	_, err := s.invoiceService.Send(s.GetContext(), inv.ID)
	s.Require().NoError(err)

	_, err = s.invoiceService.Send(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestSendChargesAutomaticallyAndSettlesInPlace() {
	s.seedLocation(&location.Location{})
	s.seedCardMember()

	resp, err := s.invoiceService.Create(s.GetContext(), &dto.CreateInvoiceRequest{
		MemberID:         "member_1",
		Currency:         "usd",
		PaymentType:      types.PaymentTypeCard,
		CollectionMethod: types.CollectionMethodChargeAutomatically,
		LineItems:        []dto.LineItemRequest{{Name: "Gear", Price: decimal.NewFromInt(2500)}},
	})
	s.Require().NoError(err)

	pending, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)

	sent, err := s.invoiceService.Send(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, sent.InvoiceStatus)
	s.Equal(1, s.GetGateway().ChargeCount())

	// the pending transaction settled in place, no second row was inserted
	settled, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(pending.ID, settled.ID)
	s.Equal(types.TransactionStatusPaid, settled.TxnStatus)
	s.Require().NotNil(settled.PaymentIntentID)
	s.Equal("pi_test_1", *settled.PaymentIntentID)
}

func (s *InvoiceServiceSuite) TestMarkPaidAdvancesCashSubscription() {
	sub, inv := s.sentCashSubscriptionInvoice()
	pending, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	periodEnd := sub.CurrentPeriodEnd

	paid, err := s.invoiceService.MarkPaid(s.GetContext(), inv.ID,
		&dto.MarkInvoicePaidRequest{Reference: "receipt 42"})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.NotNil(paid.PaidAt)

	// the pending transaction flipped in place
	settled, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(pending.ID, settled.ID)
	s.Equal(types.TransactionStatusPaid, settled.TxnStatus)
	s.Equal("receipt 42", settled.Metadata["reference"])

	// the subscription rolled into its next period
	rolled, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.True(rolled.CurrentPeriodStart.Equal(periodEnd))
	s.True(rolled.CurrentPeriodEnd.After(periodEnd))

	// exactly one next-cycle draft with its own pending transaction
	draft, err := s.GetStores().InvoiceRepo.GetDraftForSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.NotEqual(inv.ID, draft.ID)
	nextPending, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), draft.ID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusPending, nextPending.TxnStatus)

	// invoice jobs are swept after settlement
	_, err = s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceOverdueJobID(inv.ID))
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestMarkPaidConvertsCashTrial() {
	s.seedLocation(&location.Location{})
	s.seedMember(&member.Member{})
	s.seedPlan(&plan.Plan{TrialDays: 7})
	s.seedPricing(&pricing.Pricing{Amount: decimal.NewFromInt(10000)})

	created, err := s.subscriptionService.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		MemberID:    "member_1",
		PlanID:      "plan_1",
		PricingID:   "pricing_1",
		PaymentType: types.PaymentTypeCash,
	})
	s.Require().NoError(err)
	sub, err := s.subscriptionService.Activate(s.GetContext(), created.ID,
		&dto.ActivateSubscriptionRequest{Cash: &dto.CashActivation{}})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusTrialing, sub.SubscriptionStatus)
	s.Require().NotNil(sub.TrialEnd)
	trialEnd := *sub.TrialEnd

	// the first paid cycle starts where the trial ends
	draft, err := s.GetStores().InvoiceRepo.GetDraftForSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Require().NotNil(draft.PeriodStart)
	s.True(draft.PeriodStart.Equal(trialEnd))

	sent, err := s.invoiceService.Send(s.GetContext(), draft.ID)
	s.Require().NoError(err)
	_, err = s.invoiceService.MarkPaid(s.GetContext(), sent.ID, &dto.MarkInvoicePaidRequest{})
	s.Require().NoError(err)

	// settling the first paid cycle converts the trial
	converted, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, converted.SubscriptionStatus)
	s.Nil(converted.TrialEnd)
	s.True(converted.CurrentPeriodStart.Equal(trialEnd))
	s.True(converted.CurrentPeriodEnd.After(trialEnd))
}

func (s *InvoiceServiceSuite) TestMarkPaidTwiceRejected() {
	_, inv := s.sentCashSubscriptionInvoice()

	_, err := s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Require().NoError(err)

	_, err = s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestMarkPaidDraftRejected() {
	inv := s.draftOneOffInvoice()

	_, err := s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestVoidFailsPendingTransaction() {
	inv := s.draftOneOffInvoice()

	s.Require().NoError(s.invoiceService.Void(s.GetContext(), inv.ID))

	voided, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, voided.InvoiceStatus)
	s.NotNil(voided.VoidedAt)

	txn, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusFailed, txn.TxnStatus)
}

func (s *InvoiceServiceSuite) TestVoidPaidRejected() {
	_, inv := s.sentCashSubscriptionInvoice()
	_, err := s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Require().NoError(err)

	err = s.invoiceService.Void(s.GetContext(), inv.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestMarkPaidDebitsWalletForAbsorbedFee() {
	_, inv := s.sentCashSubscriptionInvoiceAt(&location.Location{
		WalletFeeAbsorption: true,
		FeePercent:          decimal.NewFromInt(3),
	})
	s.seedWallet(decimal.NewFromInt(1000))

	_, err := s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Require().NoError(err)

	// fee on the invoice total: floor(10000 * 3%) = 300
	after, err := s.GetStores().WalletRepo.Get(s.GetContext(), "wallet_1")
	s.Require().NoError(err)
	s.True(after.Balance.Equal(decimal.NewFromInt(700)))

	usage, err := s.GetStores().WalletRepo.ListUsage(s.GetContext(), "wallet_1", 10)
	s.Require().NoError(err)
	s.Require().Len(usage, 1)
	s.False(usage[0].IsCredit)
	s.True(usage[0].Amount.Equal(decimal.NewFromInt(300)))
}

func (s *InvoiceServiceSuite) TestMarkPaidFailsClosedWithoutWallet() {
	_, inv := s.sentCashSubscriptionInvoiceAt(&location.Location{
		WalletFeeAbsorption: true,
		FeePercent:          decimal.NewFromInt(3),
	})

	_, err := s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Error(err)
	s.True(ierr.IsWalletChargeFailure(err))
}

func (s *InvoiceServiceSuite) TestMarkPaidFailsClosedOnInsufficientBalance() {
	_, inv := s.sentCashSubscriptionInvoiceAt(&location.Location{
		WalletFeeAbsorption: true,
		FeePercent:          decimal.NewFromInt(3),
	})
	s.seedWallet(decimal.NewFromInt(100))

	_, err := s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Error(err)
	s.True(ierr.IsWalletChargeFailure(err))

	// the balance was never touched
	after, err := s.GetStores().WalletRepo.Get(s.GetContext(), "wallet_1")
	s.Require().NoError(err)
	s.True(after.Balance.Equal(decimal.NewFromInt(100)))
}

func (s *InvoiceServiceSuite) TestPreviewComputesWithoutPersisting() {
	s.seedMonthlyFixture(10000)
	s.seedPromo(&promo.Promo{
		Code:     "FIFTEEN",
		Type:     types.PromoTypeFixedAmount,
		Value:    decimal.NewFromInt(1500),
		Duration: types.PromoDurationOnce,
	})

	preview, err := s.invoiceService.Preview(s.GetContext(), &dto.PreviewInvoiceRequest{
		MemberID:  "member_1",
		PricingID: "pricing_1",
		PromoCode: "FIFTEEN",
	})
	s.Require().NoError(err)
	s.True(preview.Subtotal.Equal(decimal.NewFromInt(10000)))
	s.True(preview.Discount.Equal(decimal.NewFromInt(1500)))
	s.True(preview.Total.Equal(decimal.NewFromInt(8500)))

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.ListFilter{})
	s.NoError(err)
	s.Empty(invoices)
}

func (s *InvoiceServiceSuite) TestSettlementConsumesPromoRedemption() {
	s.seedLocation(&location.Location{})
	s.seedMember(&member.Member{})
	s.seedPromo(&promo.Promo{
		Code:           "CAPPED",
		Type:           types.PromoTypeFixedAmount,
		Value:          decimal.NewFromInt(500),
		Duration:       types.PromoDurationOnce,
		MaxRedemptions: lo.ToPtr(1),
	})

	resp, err := s.invoiceService.Create(s.GetContext(), &dto.CreateInvoiceRequest{
		MemberID:    "member_1",
		Currency:    "usd",
		PaymentType: types.PaymentTypeCash,
		PromoCode:   "CAPPED",
		LineItems:   []dto.LineItemRequest{{Name: "Session pack", Price: decimal.NewFromInt(3000)}},
	})
	s.Require().NoError(err)
	_, err = s.invoiceService.Send(s.GetContext(), resp.ID)
	s.Require().NoError(err)

	// redemption moves only at settlement
	before, err := s.GetStores().PromoRepo.Get(s.GetContext(), "promo_1")
	s.Require().NoError(err)
	s.Zero(before.RedemptionCount)

	_, err = s.invoiceService.MarkPaid(s.GetContext(), resp.ID, &dto.MarkInvoicePaidRequest{})
	s.Require().NoError(err)

	after, err := s.GetStores().PromoRepo.Get(s.GetContext(), "promo_1")
	s.Require().NoError(err)
	s.Equal(1, after.RedemptionCount)
}

// draftOneOffInvoice seeds a plain fixture and creates a cash draft invoice
func (s *InvoiceServiceSuite) draftOneOffInvoice() *dto.InvoiceResponse {
	s.seedLocation(&location.Location{})
	s.seedMember(&member.Member{})

	resp, err := s.invoiceService.Create(s.GetContext(), &dto.CreateInvoiceRequest{
		MemberID:    "member_1",
		Currency:    "usd",
		PaymentType: types.PaymentTypeCash,
		LineItems:   []dto.LineItemRequest{{Name: "Day pass", Price: decimal.NewFromInt(1500)}},
	})
	s.Require().NoError(err)
	return resp
}

// sentCashSubscriptionInvoice builds an active cash subscription and sends its
// first-cycle draft
func (s *InvoiceServiceSuite) sentCashSubscriptionInvoice() (*dto.SubscriptionResponse, *dto.InvoiceResponse) {
	return s.sentCashSubscriptionInvoiceAt(&location.Location{})
}

func (s *InvoiceServiceSuite) sentCashSubscriptionInvoiceAt(loc *location.Location) (*dto.SubscriptionResponse, *dto.InvoiceResponse) {
	s.seedLocation(loc)
	s.seedMember(&member.Member{})
	s.seedPlan(&plan.Plan{})
	s.seedPricing(&pricing.Pricing{Amount: decimal.NewFromInt(10000)})

	created, err := s.subscriptionService.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		MemberID:    "member_1",
		PlanID:      "plan_1",
		PricingID:   "pricing_1",
		PaymentType: types.PaymentTypeCash,
	})
	s.Require().NoError(err)
	sub, err := s.subscriptionService.Activate(s.GetContext(), created.ID,
		&dto.ActivateSubscriptionRequest{Cash: &dto.CashActivation{}})
	s.Require().NoError(err)

	draft, err := s.GetStores().InvoiceRepo.GetDraftForSubscription(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	sent, err := s.invoiceService.Send(s.GetContext(), draft.ID)
	s.Require().NoError(err)
	return sub, sent
}
