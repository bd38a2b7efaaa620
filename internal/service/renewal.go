package service

import (
	"context"
	"time"

	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	"github.com/gymlane/gymlane/internal/domain/subscription"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/gateway"
	"github.com/gymlane/gymlane/internal/scheduler"
	"github.com/gymlane/gymlane/internal/types"
)

// trialRecoveryWindow is how far ahead the trial sweep looks for trials whose
// renewal job went missing
const trialRecoveryWindow = 24 * time.Hour

// RenewalService executes the scheduled side of billing: renewals, payment
// reminders, overdue demotions, and deferred cancellations. Handlers re-read
// every subscription fresh; the job payload only carries ids.
type RenewalService interface {
	RegisterHandlers(worker *scheduler.Worker)
	HandleRenewal(ctx context.Context, job *scheduledjob.ScheduledJob) error
	HandleReminder(ctx context.Context, job *scheduledjob.ScheduledJob) error
	HandleOverdue(ctx context.Context, job *scheduledjob.ScheduledJob) error
	HandleScheduledCancel(ctx context.Context, job *scheduledjob.ScheduledJob) error
	// RecoverTrialRenewals re-upserts renewal jobs for trials about to convert,
	// healing jobs lost to scheduling failures. Safe to run repeatedly.
	RecoverTrialRenewals(ctx context.Context) error
}

type renewalService struct {
	ServiceParams
	billing BillingService
	promo   PromoService
}

func NewRenewalService(params ServiceParams, billing BillingService, promoSvc PromoService) RenewalService {
	return &renewalService{
		ServiceParams: params,
		billing:       billing,
		promo:         promoSvc,
	}
}

func (s *renewalService) RegisterHandlers(worker *scheduler.Worker) {
	worker.RegisterHandler(types.ScheduledJobKindRenewal, s.HandleRenewal)
	worker.RegisterHandler(types.ScheduledJobKindInvoiceReminder, s.HandleReminder)
	worker.RegisterHandler(types.ScheduledJobKindInvoiceOverdue, s.HandleOverdue)
	worker.RegisterHandler(types.ScheduledJobKindCancellation, s.HandleScheduledCancel)
}

// HandleRenewal runs one billing cycle boundary: honor a pending cancellation,
// otherwise charge the member, advance the period, and line up the next run.
// A declined card demotes to past_due instead of failing the job, so the job
// system never re-runs a charge.
func (s *renewalService) HandleRenewal(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	var payload scheduler.RenewalPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	ctx = types.SetTenantID(ctx, payload.TenantID)

	sub, err := s.SubRepo.Get(ctx, payload.SubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("renewal for unknown subscription", "subscription_id", payload.SubscriptionID)
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	switch sub.SubscriptionStatus {
	case types.SubscriptionStatusActive, types.SubscriptionStatusTrialing, types.SubscriptionStatusPastDue:
	default:
		// paused, terminal, or never activated: nothing to renew
		return nil
	}

	// a recorded cancellation that has come due wins over the charge
	if sub.CancelAt != nil && !now.Before(*sub.CancelAt) {
		return s.cancelSubscription(ctx, sub, now)
	}

	if !sub.PaymentType.RequiresGateway() {
		// cash cycles advance at mark-paid, not on a timer
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
	pl, err := s.lookupPlan(ctx, sub.PlanID)
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

	// the new period begins where the old one (or the trial) ends
	periodStart := sub.CurrentPeriodEnd
	periodEnd, err := types.NextBillingDate(periodStart, pr.IntervalThreshold, pr.Interval)
	if err != nil {
		return err
	}

	var result *gateway.ChargeResult
	if breakdown.Total.IsPositive() {
		m, err := s.MemberRepo.Get(ctx, sub.MemberID)
		if err != nil {
			return err
		}
		paymentMethodID, err := m.PaymentMethodFor("")
		if err != nil {
			return s.demoteOnFailedCharge(ctx, sub, breakdown, periodStart, periodEnd, err)
		}
		if m.GatewayCustomerID == nil || *m.GatewayCustomerID == "" {
			return s.demoteOnFailedCharge(ctx, sub, breakdown, periodStart, periodEnd,
				ierr.NewError("member has no gateway customer").Mark(ierr.ErrValidation))
		}
		result, err = s.Gateway.ProcessPayment(ctx, &gateway.ChargeRequest{
			Amount:            breakdown.Total,
			Currency:          breakdown.Currency,
			GatewayCustomerID: *m.GatewayCustomerID,
			PaymentMethodID:   paymentMethodID,
			Description:       "membership renewal",
			Metadata:          types.Metadata{"subscription_id": sub.ID},
		})
		if err != nil {
			if ierr.IsGatewayFailure(err) {
				return s.demoteOnFailedCharge(ctx, sub, breakdown, periodStart, periodEnd, err)
			}
			return err
		}
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv := buildSubscriptionInvoice(ctx, sub, breakdown, periodStart, periodEnd)
		inv.InvoiceStatus = types.InvoiceStatusPaid
		inv.PaidAt = &now
		if err := s.InvoiceRepo.CreateWithLineItems(ctx, inv); err != nil {
			return err
		}

		txn := newPendingTransaction(ctx, inv)
		txn.TxnStatus = types.TransactionStatusPaid
		txn.SettledAt = &now
		if result != nil {
			txn.PaymentIntentID = &result.PaymentIntentID
			txn.PaymentMethodID = &result.PaymentMethodID
		}
		if err := s.TransactionRepo.Create(ctx, txn); err != nil {
			return err
		}

		if sub.HasUnappliedPromo() && sub.DiscountForCharge(cycle) != nil {
			if err := s.promo.ApplyRedemption(ctx, sub.PromoSnapshot.PromoID); err != nil {
				return err
			}
			sub.PromoSnapshot.Applied = true
			sub.PromoSnapshot.AppliedAt = &now
		}

		sub.CurrentPeriodStart = periodStart
		sub.CurrentPeriodEnd = periodEnd
		if sub.CancelAtPeriodEnd {
			sub.CancelAt = &sub.CurrentPeriodEnd
		}
		sub.TrialEnd = nil
		sub.SubscriptionStatus = types.SubscriptionStatusActive
		sub.MakeUpCredits += pl.MakeUpCredits
		return s.SubRepo.Update(ctx, sub)
	})
	if err != nil {
		if result != nil {
			return ierr.WithError(err).
				WithHint("Renewal charge succeeded but recording it failed").
				WithReportableDetails(map[string]any{
					"subscription_id":   sub.ID,
					"payment_intent_id": result.PaymentIntentID,
				}).
				Mark(ierr.ErrPaymentRecordingFailure)
		}
		return err
	}

	// one-shot cadences chain: each run schedules exactly one successor
	if !job.IsRecurring() {
		if err := scheduleSubscriptionRenewal(ctx, s.ServiceParams, sub, pr); err != nil {
			return err
		}
	}

	s.Logger.Infow("renewed subscription",
		"subscription_id", sub.ID,
		"cycle", cycle,
		"total", breakdown.Total,
		"period_end", sub.CurrentPeriodEnd)
	return nil
}

// demoteOnFailedCharge moves the subscription to past_due, leaves an unpaid
// invoice on the books, and schedules the overdue check. Returns nil so the
// job system does not retry the charge.
func (s *renewalService) demoteOnFailedCharge(ctx context.Context, sub *subscription.Subscription, breakdown *ChargeBreakdown, periodStart, periodEnd time.Time, cause error) error {
	now := time.Now().UTC()
	dueDate := now.AddDate(0, 0, s.Config.Billing.DueDays)

	inv := buildSubscriptionInvoice(ctx, sub, breakdown, periodStart, periodEnd)
	inv.InvoiceStatus = types.InvoiceStatusSent
	inv.SentAt = &now
	inv.DueDate = &dueDate

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := createInvoiceDraftPair(ctx, s.ServiceParams, inv); err != nil {
			return err
		}
		if sub.CanTransitionTo(types.SubscriptionStatusPastDue) {
			sub.SubscriptionStatus = types.SubscriptionStatusPastDue
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.SchedulerClient.Schedule(ctx, &scheduler.ScheduleRequest{
		ID:   scheduler.InvoiceOverdueJobID(inv.ID),
		Kind: types.ScheduledJobKindInvoiceOverdue,
		Payload: scheduler.InvoicePayload{
			InvoiceID:  inv.ID,
			TenantID:   sub.TenantID,
			LocationID: sub.LocationID,
		},
		RunAt: &dueDate,
	}); err != nil {
		return err
	}

	s.Logger.Warnw("renewal charge failed, subscription past due",
		"subscription_id", sub.ID,
		"invoice_id", inv.ID,
		"error", cause)
	return nil
}

// HandleReminder nudges the member about an unpaid invoice and chains the next
// numbered reminder while the cap allows
func (s *renewalService) HandleReminder(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	var payload scheduler.InvoicePayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	ctx = types.SetTenantID(ctx, payload.TenantID)

	inv, err := s.InvoiceRepo.Get(ctx, payload.InvoiceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if inv.InvoiceStatus != types.InvoiceStatusSent {
		return nil
	}

	if inv.Metadata == nil {
		inv.Metadata = types.Metadata{}
	}
	inv.Metadata["last_reminder_at"] = time.Now().UTC().Format(time.RFC3339)
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}
	s.Logger.Infow("payment reminder issued",
		"invoice_id", inv.ID,
		"sequence", payload.Sequence,
		"due_date", inv.DueDate)

	next := payload.Sequence + 1
	if next > s.Config.Scheduler.MaxReminderJobs {
		return nil
	}
	runAt := time.Now().UTC().AddDate(0, 0, s.Config.Billing.ReminderDaysBefore)
	if inv.DueDate != nil && runAt.After(*inv.DueDate) {
		return nil
	}
	nextPayload := payload
	nextPayload.Sequence = next
	return s.SchedulerClient.Schedule(ctx, &scheduler.ScheduleRequest{
		ID:      scheduler.InvoiceReminderJobID(inv.ID, next),
		Kind:    types.ScheduledJobKindInvoiceReminder,
		Payload: nextPayload,
		RunAt:   &runAt,
	})
}

// HandleOverdue runs when an invoice passes its due date unpaid. First pass
// demotes the subscription to past_due and grants one grace extension; the
// second pass writes the invoice off and demotes to unpaid.
func (s *renewalService) HandleOverdue(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	var payload scheduler.InvoicePayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	ctx = types.SetTenantID(ctx, payload.TenantID)

	inv, err := s.InvoiceRepo.Get(ctx, payload.InvoiceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	if !inv.IsOverdue(now) {
		return nil
	}

	var sub *subscription.Subscription
	if inv.SubscriptionID != nil {
		sub, err = s.SubRepo.Get(ctx, *inv.SubscriptionID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
	}

	if sub != nil && sub.CanTransitionTo(types.SubscriptionStatusPastDue) {
		// first overdue pass: demote and check once more after the grace window
		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			sub.SubscriptionStatus = types.SubscriptionStatusPastDue
			return s.SubRepo.Update(ctx, sub)
		})
		if err != nil {
			return err
		}
		graceEnd := now.AddDate(0, 0, s.Config.Billing.DueDays)
		s.Logger.Warnw("invoice overdue, subscription past due",
			"invoice_id", inv.ID,
			"subscription_id", sub.ID,
			"next_check", graceEnd)
		return s.SchedulerClient.Schedule(ctx, &scheduler.ScheduleRequest{
			ID:      scheduler.InvoiceOverdueJobID(inv.ID),
			Kind:    types.ScheduledJobKindInvoiceOverdue,
			Payload: payload,
			RunAt:   &graceEnd,
		})
	}

	// grace exhausted: write off the invoice and demote to unpaid
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv.InvoiceStatus = types.InvoiceStatusUncollectible
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		txn, err := s.TransactionRepo.GetByInvoice(ctx, inv.ID)
		if err == nil && txn.TxnStatus == types.TransactionStatusPending {
			txn.TxnStatus = types.TransactionStatusFailed
			if err := s.TransactionRepo.Update(ctx, txn); err != nil {
				return err
			}
		} else if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if sub != nil && sub.CanTransitionTo(types.SubscriptionStatusUnpaid) {
			sub.SubscriptionStatus = types.SubscriptionStatusUnpaid
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
		}
		return nil
	})
}

// HandleScheduledCancel executes a deferred cancellation when its date arrives
func (s *renewalService) HandleScheduledCancel(ctx context.Context, job *scheduledjob.ScheduledJob) error {
	var payload scheduler.CancellationPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	ctx = types.SetTenantID(ctx, payload.TenantID)

	sub, err := s.SubRepo.Get(ctx, payload.SubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if sub.SubscriptionStatus.IsTerminal() {
		return nil
	}

	now := time.Now().UTC()
	if sub.CancelAt == nil || now.Before(*sub.CancelAt) {
		// the cancellation was withdrawn or moved; nothing to do here
		return nil
	}
	return s.cancelSubscription(ctx, sub, now)
}

// cancelSubscription finalizes a due cancellation and removes the renewal timer
func (s *renewalService) cancelSubscription(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.SubscriptionStatus = types.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		sub.EndedAt = &now
		sub.CancelAtPeriodEnd = false
		if sub.Cancellation == nil {
			sub.Cancellation = &types.CancellationRecord{
				Mode:        types.CancellationModeEndOfPeriod,
				RequestedAt: now,
				EffectiveAt: now,
			}
		}
		sub.CancelAt = nil
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.MemberRepo.SetMembershipActive(ctx, sub.MemberID, false)
	})
	if err != nil {
		return err
	}

	if err := s.SchedulerClient.Cancel(ctx, scheduler.RenewalJobID(sub.ID)); err != nil {
		s.Logger.Warnw("failed to cancel renewal job", "subscription_id", sub.ID, "error", err)
	}
	s.Logger.Infow("executed scheduled cancellation", "subscription_id", sub.ID)
	return nil
}

func (s *renewalService) RecoverTrialRenewals(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(trialRecoveryWindow)
	subs, err := s.SubRepo.ListExpiringTrials(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		if !sub.PaymentType.RequiresGateway() {
			continue
		}
		jobCtx := types.SetTenantID(ctx, sub.TenantID)
		if _, err := s.SchedulerClient.Lookup(jobCtx, scheduler.RenewalJobID(sub.ID)); err == nil {
			continue
		}
		m, err := s.MemberRepo.Get(jobCtx, sub.MemberID)
		if err != nil {
			s.Logger.Errorw("trial recovery member lookup failed", "subscription_id", sub.ID, "error", err)
			continue
		}
		// a trial with nothing to charge has not been card-activated yet
		if !m.HasStoredPaymentMethod() {
			continue
		}
		pr, err := s.lookupPricing(jobCtx, sub.PricingID)
		if err != nil {
			s.Logger.Errorw("trial recovery pricing lookup failed", "subscription_id", sub.ID, "error", err)
			continue
		}
		if err := scheduleSubscriptionRenewal(jobCtx, s.ServiceParams, sub, pr); err != nil {
			s.Logger.Errorw("trial recovery scheduling failed", "subscription_id", sub.ID, "error", err)
			continue
		}
		s.Logger.Infow("recovered renewal job for expiring trial", "subscription_id", sub.ID, "trial_end", sub.TrialEnd)
	}
	return nil
}
