package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/invoice"
	"github.com/gymlane/gymlane/internal/domain/location"
	"github.com/gymlane/gymlane/internal/domain/member"
	"github.com/gymlane/gymlane/internal/domain/plan"
	"github.com/gymlane/gymlane/internal/domain/pricing"
	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	"github.com/gymlane/gymlane/internal/scheduler"
	"github.com/gymlane/gymlane/internal/testutil"
	"github.com/gymlane/gymlane/internal/types"
)

type RenewalServiceSuite struct {
	ServiceTestSuite
}

func TestRenewalService(t *testing.T) {
	suite.Run(t, new(RenewalServiceSuite))
}

// activeBiWeeklyCardSub activates a bi-weekly card subscription, which carries
// a one-shot renewal job
func (s *RenewalServiceSuite) activeBiWeeklyCardSub() *dto.SubscriptionResponse {
	s.seedLocation(&location.Location{})
	s.seedCardMember()
	s.seedPlan(&plan.Plan{})
	s.seedPricing(&pricing.Pricing{
		Amount:            decimal.NewFromInt(6000),
		Interval:          types.BillingIntervalWeek,
		IntervalThreshold: 2,
	})

	created, err := s.subscriptionService.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		MemberID:    "member_1",
		PlanID:      "plan_1",
		PricingID:   "pricing_1",
		PaymentType: types.PaymentTypeCard,
	})
	s.Require().NoError(err)
	sub, err := s.subscriptionService.Activate(s.GetContext(), created.ID,
		&dto.ActivateSubscriptionRequest{Card: &dto.CardActivation{}})
	s.Require().NoError(err)
	return sub
}

// activeMonthlyCardSub anchors on the 10th of last month so the renewal rides
// a cron expression
func (s *RenewalServiceSuite) activeMonthlyCardSub() *dto.SubscriptionResponse {
	s.seedLocation(&location.Location{})
	s.seedCardMember()
	s.seedPlan(&plan.Plan{})
	s.seedPricing(&pricing.Pricing{Amount: decimal.NewFromInt(10000)})

	now := time.Now().UTC()
	anchor := time.Date(now.Year(), now.Month(), 10, 9, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	created, err := s.subscriptionService.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		MemberID:    "member_1",
		PlanID:      "plan_1",
		PricingID:   "pricing_1",
		PaymentType: types.PaymentTypeCard,
		StartDate:   &anchor,
	})
	s.Require().NoError(err)
	sub, err := s.subscriptionService.Activate(s.GetContext(), created.ID,
		&dto.ActivateSubscriptionRequest{Card: &dto.CardActivation{}})
	s.Require().NoError(err)
	return sub
}

func (s *RenewalServiceSuite) renewalJob(subscriptionID string) *scheduledjob.ScheduledJob {
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.RenewalJobID(subscriptionID))
	s.Require().NoError(err)
	return job
}

func (s *RenewalServiceSuite) TestRenewalChargesAndAdvancesPeriod() {
	sub := s.activeBiWeeklyCardSub()
	oldEnd := sub.CurrentPeriodEnd

	err := s.renewalService.HandleRenewal(s.GetContext(), s.renewalJob(sub.ID))
	s.Require().NoError(err)

	// activation was the first charge, the renewal the second
	s.Equal(2, s.GetGateway().ChargeCount())

	rolled, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, rolled.SubscriptionStatus)
	s.True(rolled.CurrentPeriodStart.Equal(oldEnd))
	s.True(rolled.CurrentPeriodEnd.Equal(oldEnd.AddDate(0, 0, 14)))

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.ListFilter{
		SubscriptionID: sub.ID,
		Statuses:       []string{string(types.InvoiceStatusPaid)},
	})
	s.Require().NoError(err)
	s.Len(invoices, 2)

	txn, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), invoices[0].ID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusPaid, txn.TxnStatus)
	s.Require().NotNil(txn.PaymentIntentID)
	s.Equal("pi_test_2", *txn.PaymentIntentID)
}

func (s *RenewalServiceSuite) TestRenewalOneShotSchedulesExactlyOneSuccessor() {
	sub := s.activeBiWeeklyCardSub()
	job := s.renewalJob(sub.ID)
	s.Require().NotNil(job.RunAt)

	s.Require().NoError(s.renewalService.HandleRenewal(s.GetContext(), job))

	rolled, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)

	successor := s.renewalJob(sub.ID)
	s.Require().NotNil(successor.RunAt)
	s.True(successor.RunAt.Equal(rolled.CurrentPeriodEnd))
	s.Nil(successor.CronExpr)
	s.Equal(types.ScheduledJobStatusScheduled, successor.JobStatus)
}

func (s *RenewalServiceSuite) TestRenewalCronJobDoesNotChainSuccessor() {
	sub := s.activeMonthlyCardSub()
	job := s.renewalJob(sub.ID)
	s.Require().True(job.IsRecurring())
	before := *job.NextRunAt

	s.Require().NoError(s.renewalService.HandleRenewal(s.GetContext(), job))

	// the cron job reschedules through the worker, not through the handler
	after := s.renewalJob(sub.ID)
	s.Require().True(after.IsRecurring())
	s.True(after.NextRunAt.Equal(before))
}

func (s *RenewalServiceSuite) TestRenewalDeclineDemotesToPastDue() {
	sub := s.activeBiWeeklyCardSub()
	s.GetGateway().FailCharges = true

	err := s.renewalService.HandleRenewal(s.GetContext(), s.renewalJob(sub.ID))
	s.Require().NoError(err)

	demoted, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, demoted.SubscriptionStatus)

	// the unpaid cycle stays on the books as a sent invoice with a pending
	// transaction and an overdue check
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.ListFilter{
		SubscriptionID: sub.ID,
		Statuses:       []string{string(types.InvoiceStatusSent)},
	})
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.Require().NotNil(invoices[0].DueDate)

	txn, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), invoices[0].ID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusPending, txn.TxnStatus)

	overdue, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceOverdueJobID(invoices[0].ID))
	s.Require().NoError(err)
	s.True(overdue.RunAt.Equal(*invoices[0].DueDate))
}

func (s *RenewalServiceSuite) TestLateSettlementRearmsRenewalTimer() {
	sub := s.activeBiWeeklyCardSub()
	s.GetGateway().FailCharges = true

	s.Require().NoError(s.renewalService.HandleRenewal(s.GetContext(), s.renewalJob(sub.ID)))

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.ListFilter{
		SubscriptionID: sub.ID,
		Statuses:       []string{string(types.InvoiceStatusSent)},
	})
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)

	// the member pays the open cycle out of band
	_, err = s.invoiceService.MarkPaid(s.GetContext(), invoices[0].ID, &dto.MarkInvoicePaidRequest{})
	s.Require().NoError(err)

	recovered, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, recovered.SubscriptionStatus)

	// the renewal timer points at the next cycle again
	job := s.renewalJob(sub.ID)
	s.Require().NotNil(job.RunAt)
	s.True(job.RunAt.Equal(recovered.CurrentPeriodEnd))
}

func (s *RenewalServiceSuite) TestRenewalCashSubscriptionIsNoOp() {
	s.seedLocation(&location.Location{})
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

	// cash subscriptions carry no renewal timer; simulate a stray job
	runAt := time.Now().UTC()
	s.Require().NoError(s.GetSchedulerClient().Schedule(s.GetContext(), &scheduler.ScheduleRequest{
		ID:   scheduler.RenewalJobID(sub.ID),
		Kind: types.ScheduledJobKindRenewal,
		Payload: scheduler.RenewalPayload{
			SubscriptionID: sub.ID,
			TenantID:       testutil.TestTenantID,
			LocationID:     testutil.TestLocationID,
		},
		RunAt: &runAt,
	}))

	err = s.renewalService.HandleRenewal(s.GetContext(), s.renewalJob(sub.ID))
	s.Require().NoError(err)

	s.Zero(s.GetGateway().ChargeCount())
	unchanged, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.True(unchanged.CurrentPeriodEnd.Equal(sub.CurrentPeriodEnd))
}

func (s *RenewalServiceSuite) TestRenewalDueCancellationWinsOverCharge() {
	sub := s.activeBiWeeklyCardSub()
	job := s.renewalJob(sub.ID)

	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	stored.CancelAt = lo.ToPtr(time.Now().UTC().Add(-time.Hour))
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), stored))

	s.Require().NoError(s.renewalService.HandleRenewal(s.GetContext(), job))

	cancelled, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, cancelled.SubscriptionStatus)
	s.NotNil(cancelled.CancelledAt)

	m, err := s.GetStores().MemberRepo.Get(s.GetContext(), "member_1")
	s.Require().NoError(err)
	s.False(m.MembershipActive)

	// only the activation charge ever happened
	s.Equal(1, s.GetGateway().ChargeCount())
}

func (s *RenewalServiceSuite) TestRenewalPausedSubscriptionSkipped() {
	sub := s.activeBiWeeklyCardSub()
	job := s.renewalJob(sub.ID)

	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	stored.SubscriptionStatus = types.SubscriptionStatusPaused
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), stored))

	s.Require().NoError(s.renewalService.HandleRenewal(s.GetContext(), job))
	s.Equal(1, s.GetGateway().ChargeCount())
}

func (s *RenewalServiceSuite) TestReminderChainsNextSequence() {
	inv := s.sentCashInvoice()
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceReminderJobID(inv.ID, 1))
	s.Require().NoError(err)

	s.Require().NoError(s.renewalService.HandleReminder(s.GetContext(), job))

	reminded, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.NotEmpty(reminded.Metadata["last_reminder_at"])

	next, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceReminderJobID(inv.ID, 2))
	s.Require().NoError(err)
	s.Equal(types.ScheduledJobKindInvoiceReminder, next.Kind)
}

func (s *RenewalServiceSuite) TestReminderStopsAtCap() {
	inv := s.sentCashInvoice()
	maxSeq := s.GetConfig().Scheduler.MaxReminderJobs

	runAt := time.Now().UTC()
	s.Require().NoError(s.GetSchedulerClient().Schedule(s.GetContext(), &scheduler.ScheduleRequest{
		ID:   scheduler.InvoiceReminderJobID(inv.ID, maxSeq),
		Kind: types.ScheduledJobKindInvoiceReminder,
		Payload: scheduler.InvoicePayload{
			InvoiceID:  inv.ID,
			TenantID:   testutil.TestTenantID,
			LocationID: testutil.TestLocationID,
			Sequence:   maxSeq,
		},
		RunAt: &runAt,
	}))
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceReminderJobID(inv.ID, maxSeq))
	s.Require().NoError(err)

	s.Require().NoError(s.renewalService.HandleReminder(s.GetContext(), job))

	_, err = s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceReminderJobID(inv.ID, maxSeq+1))
	s.Error(err)
}

func (s *RenewalServiceSuite) TestReminderSettledInvoiceIsNoOp() {
	inv := s.sentCashInvoice()
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceReminderJobID(inv.ID, 1))
	s.Require().NoError(err)

	_, err = s.invoiceService.MarkPaid(s.GetContext(), inv.ID, &dto.MarkInvoicePaidRequest{})
	s.Require().NoError(err)

	s.Require().NoError(s.renewalService.HandleReminder(s.GetContext(), job))

	paid, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Empty(paid.Metadata["last_reminder_at"])
}

func (s *RenewalServiceSuite) TestOverdueFirstPassDemotesAndGrantsGrace() {
	inv := s.overdueCashInvoice()
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceOverdueJobID(inv.ID))
	s.Require().NoError(err)

	s.Require().NoError(s.renewalService.HandleOverdue(s.GetContext(), job))

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), *inv.SubscriptionID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)

	// the invoice stays open through the grace window
	open, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, open.InvoiceStatus)

	recheck, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceOverdueJobID(inv.ID))
	s.Require().NoError(err)
	s.Require().NotNil(recheck.RunAt)
	s.True(recheck.RunAt.After(time.Now().UTC()))
}

func (s *RenewalServiceSuite) TestOverdueSecondPassWritesOff() {
	inv := s.overdueCashInvoice()
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceOverdueJobID(inv.ID))
	s.Require().NoError(err)

	// first pass demoted already
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), *inv.SubscriptionID)
	s.Require().NoError(err)
	sub.SubscriptionStatus = types.SubscriptionStatusPastDue
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	s.Require().NoError(s.renewalService.HandleOverdue(s.GetContext(), job))

	written, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusUncollectible, written.InvoiceStatus)

	txn, err := s.GetStores().TransactionRepo.GetByInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.TransactionStatusFailed, txn.TxnStatus)

	demoted, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), *inv.SubscriptionID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusUnpaid, demoted.SubscriptionStatus)
}

func (s *RenewalServiceSuite) TestOverdueBeforeDueDateIsNoOp() {
	inv := s.sentCashInvoice()
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.InvoiceOverdueJobID(inv.ID))
	s.Require().NoError(err)

	s.Require().NoError(s.renewalService.HandleOverdue(s.GetContext(), job))

	open, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, open.InvoiceStatus)
}

func (s *RenewalServiceSuite) TestScheduledCancelExecutesWhenDue() {
	sub := s.activeBiWeeklyCardSub()

	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	stored.CancelAt = lo.ToPtr(time.Now().UTC().Add(-time.Minute))
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), stored))

	job := s.cancellationJob(sub.ID)
	s.Require().NoError(s.renewalService.HandleScheduledCancel(s.GetContext(), job))

	cancelled, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, cancelled.SubscriptionStatus)

	m, err := s.GetStores().MemberRepo.Get(s.GetContext(), "member_1")
	s.Require().NoError(err)
	s.False(m.MembershipActive)
}

func (s *RenewalServiceSuite) TestScheduledCancelWithdrawnIsNoOp() {
	sub := s.activeBiWeeklyCardSub()

	// CancelAt was cleared after the job went out
	job := s.cancellationJob(sub.ID)
	s.Require().NoError(s.renewalService.HandleScheduledCancel(s.GetContext(), job))

	still, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, still.SubscriptionStatus)
}

func (s *RenewalServiceSuite) TestRecoverTrialRenewalsReplacesLostJob() {
	s.seedLocation(&location.Location{})
	s.seedCardMember()
	s.seedPlan(&plan.Plan{TrialDays: 1})
	s.seedPricing(&pricing.Pricing{Amount: decimal.NewFromInt(10000)})

	created, err := s.subscriptionService.Create(s.GetContext(), &dto.CreateSubscriptionRequest{
		MemberID:    "member_1",
		PlanID:      "plan_1",
		PricingID:   "pricing_1",
		PaymentType: types.PaymentTypeCard,
	})
	s.Require().NoError(err)
	sub, err := s.subscriptionService.Activate(s.GetContext(), created.ID,
		&dto.ActivateSubscriptionRequest{Card: &dto.CardActivation{}})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusTrialing, sub.SubscriptionStatus)

	// the renewal job vanished
	s.Require().NoError(s.GetSchedulerClient().Cancel(s.GetContext(), scheduler.RenewalJobID(sub.ID)))

	s.Require().NoError(s.renewalService.RecoverTrialRenewals(s.GetContext()))

	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.RenewalJobID(sub.ID))
	s.Require().NoError(err)
	s.Equal(types.ScheduledJobKindRenewal, job.Kind)
}

func (s *RenewalServiceSuite) cancellationJob(subscriptionID string) *scheduledjob.ScheduledJob {
	runAt := time.Now().UTC()
	s.Require().NoError(s.GetSchedulerClient().Schedule(s.GetContext(), &scheduler.ScheduleRequest{
		ID:   scheduler.CancellationJobID(subscriptionID),
		Kind: types.ScheduledJobKindCancellation,
		Payload: scheduler.CancellationPayload{
			SubscriptionID: subscriptionID,
			TenantID:       testutil.TestTenantID,
			LocationID:     testutil.TestLocationID,
		},
		RunAt: &runAt,
	}))
	job, err := s.GetSchedulerClient().Lookup(s.GetContext(), scheduler.CancellationJobID(subscriptionID))
	s.Require().NoError(err)
	return job
}

// sentCashInvoice activates a cash subscription and sends its first draft
func (s *RenewalServiceSuite) sentCashInvoice() *dto.InvoiceResponse {
	s.seedLocation(&location.Location{})
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
	return sent
}

// overdueCashInvoice backdates a sent invoice past its due date
func (s *RenewalServiceSuite) overdueCashInvoice() *dto.InvoiceResponse {
	sent := s.sentCashInvoice()

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), sent.ID)
	s.Require().NoError(err)
	stored.DueDate = lo.ToPtr(time.Now().UTC().AddDate(0, 0, -1))
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), stored))
	sent.Invoice = stored
	return sent
}
