package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/pricing"
	"github.com/gymlane/gymlane/internal/domain/subscription"
	"github.com/gymlane/gymlane/internal/domain/transaction"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/gateway"
	"github.com/gymlane/gymlane/internal/scheduler"
	"github.com/gymlane/gymlane/internal/types"
)

// SubscriptionService drives the membership state machine. Gateway charges
// always run outside the database transaction; the transaction then records
// the already-moved money atomically, and renewal scheduling happens after
// commit.
type SubscriptionService interface {
	Create(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	Get(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	List(ctx context.Context, filter *subscription.ListFilter) (*dto.ListSubscriptionsResponse, error)
	Activate(ctx context.Context, id string, req *dto.ActivateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	Pause(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	Resume(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	Cancel(ctx context.Context, id string, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSubscriptionRequest) (*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
	billing BillingService
	promo   PromoService
}

func NewSubscriptionService(params ServiceParams, billing BillingService, promoSvc PromoService) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		billing:       billing,
		promo:         promoSvc,
	}
}

func (s *subscriptionService) Create(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m, err := s.MemberRepo.Get(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	pr, err := s.lookupPricing(ctx, req.PricingID)
	if err != nil {
		return nil, err
	}
	if pr.PlanID != req.PlanID {
		return nil, ierr.NewError("pricing does not belong to plan").
			WithHint("The selected pricing does not belong to the selected plan").
			WithReportableDetails(map[string]any{
				"pricing_id": pr.ID,
				"plan_id":    req.PlanID,
			}).
			Mark(ierr.ErrValidation)
	}
	pl, err := s.lookupPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	start := time.Now().UTC()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	schedule, err := s.billing.ResolveSchedule(pr, pl, start)
	if err != nil {
		return nil, err
	}

	collectionMethod := req.CollectionMethod
	if collectionMethod == "" {
		if req.PaymentType.RequiresGateway() {
			collectionMethod = types.CollectionMethodChargeAutomatically
		} else {
			collectionMethod = types.CollectionMethodSendInvoice
		}
	}

	// plans with a trial start out trialing, everything else waits incomplete
	// for its first charge
	initialStatus := types.SubscriptionStatusIncomplete
	if schedule.TrialEnd != nil {
		initialStatus = types.SubscriptionStatusTrialing
	}

	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		MemberID:           m.ID,
		LocationID:         m.LocationID,
		PlanID:             pl.ID,
		PricingID:          pr.ID,
		ParentID:           req.ParentID,
		SubscriptionStatus: initialStatus,
		PaymentType:        req.PaymentType,
		CollectionMethod:   collectionMethod,
		StartDate:          start,
		CurrentPeriodStart: schedule.PeriodStart,
		CurrentPeriodEnd:   schedule.PeriodEnd,
		TrialEnd:           schedule.TrialEnd,
		CancelAt:           schedule.CancelAt,
		Metadata:           req.Metadata,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	if req.PromoCode != "" {
		p, err := s.PromoRepo.GetByCode(ctx, m.LocationID, req.PromoCode)
		if err != nil {
			return nil, err
		}
		if err := p.CanRedeem(pr.ID, start); err != nil {
			return nil, err
		}
		sub.PromoSnapshot = p.Snapshot(pr.Amount)
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("created subscription",
		"subscription_id", sub.ID,
		"member_id", sub.MemberID,
		"pricing_id", sub.PricingID,
		"payment_type", sub.PaymentType)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) Get(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) List(ctx context.Context, filter *subscription.ListFilter) (*dto.ListSubscriptionsResponse, error) {
	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := lo.Map(subs, func(sub *subscription.Subscription, _ int) *dto.SubscriptionResponse {
		return &dto.SubscriptionResponse{Subscription: sub}
	})
	return &dto.ListSubscriptionsResponse{Items: items, Total: len(items)}, nil
}

// Activate takes an incomplete subscription live. Re-activating a subscription
// that is already live returns it unchanged.
func (s *subscriptionService) Activate(ctx context.Context, id string, req *dto.ActivateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.Scheduler.OperationTimeout)
	defer cancel()

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sub.SubscriptionStatus {
	case types.SubscriptionStatusIncomplete, types.SubscriptionStatusTrialing:
	case types.SubscriptionStatusActive:
		return &dto.SubscriptionResponse{Subscription: sub}, nil
	default:
		return nil, ierr.NewError("subscription cannot be activated").
			WithHint("Only incomplete or trialing subscriptions can be activated").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	// the activation variant has to match how the subscription pays
	if req.Card != nil && !sub.PaymentType.RequiresGateway() {
		return nil, ierr.NewError("subscription does not pay through the gateway").
			WithHint("Cash-collected subscriptions are activated with the cash variant").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"payment_type":    sub.PaymentType,
			}).
			Mark(ierr.ErrValidation)
	}
	if req.Cash != nil && sub.PaymentType.RequiresGateway() {
		return nil, ierr.NewError("subscription pays through the gateway").
			WithHint("Card and bank subscriptions are activated with the card variant").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"payment_type":    sub.PaymentType,
			}).
			Mark(ierr.ErrValidation)
	}

	if req.Cash != nil {
		return s.activateCash(ctx, sub)
	}
	return s.activateCard(ctx, sub, req.Card)
}

// activateCash takes a cash-collected subscription live: the first cycle's
// draft invoice and pending transaction are created together, settlement
// happens later at mark-paid. Idempotent on the draft.
func (s *subscriptionService) activateCash(ctx context.Context, sub *subscription.Subscription) (*dto.SubscriptionResponse, error) {
	pr, err := s.lookupPricing(ctx, sub.PricingID)
	if err != nil {
		return nil, err
	}
	loc, err := s.lookupLocation(ctx, sub.LocationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	breakdown, err := s.billing.ComputeCharge(ctx, &ChargeInput{
		Pricing:     pr,
		Location:    loc,
		Promo:       sub.PromoSnapshot,
		Cycle:       1,
		FirstCharge: true,
	})
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.InvoiceRepo.GetDraftForSubscription(ctx, sub.ID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing == nil {
			periodStart := sub.CurrentPeriodStart
			periodEnd := sub.CurrentPeriodEnd
			if sub.IsInTrial(now) {
				// the first paid period starts when the trial ends
				periodStart = *sub.TrialEnd
				periodEnd, err = types.NextBillingDate(periodStart, pr.IntervalThreshold, pr.Interval)
				if err != nil {
					return err
				}
			}
			inv := buildSubscriptionInvoice(ctx, sub, breakdown, periodStart, periodEnd)
			if err := createInvoiceDraftPair(ctx, s.ServiceParams, inv); err != nil {
				return err
			}
		}

		if sub.IsInTrial(now) {
			sub.SubscriptionStatus = types.SubscriptionStatusTrialing
		} else {
			sub.SubscriptionStatus = types.SubscriptionStatusActive
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.MemberRepo.SetMembershipActive(ctx, sub.MemberID, true)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("activated cash subscription", "subscription_id", sub.ID, "status", sub.SubscriptionStatus)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// activateCard activates against the gateway. In trial nothing is charged and
// only the renewal timer is set; otherwise the charge runs first, outside any
// transaction, and the single transaction afterwards records it all.
func (s *subscriptionService) activateCard(ctx context.Context, sub *subscription.Subscription, card *dto.CardActivation) (*dto.SubscriptionResponse, error) {
	now := time.Now().UTC()
	pr, err := s.lookupPricing(ctx, sub.PricingID)
	if err != nil {
		return nil, err
	}

	if sub.IsInTrial(now) {
		err = s.DB.WithTx(ctx, func(ctx context.Context) error {
			sub.SubscriptionStatus = types.SubscriptionStatusTrialing
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
			return s.MemberRepo.SetMembershipActive(ctx, sub.MemberID, true)
		})
		if err != nil {
			return nil, err
		}
		if err := s.scheduleRenewal(ctx, sub, pr); err != nil {
			return nil, err
		}
		s.Logger.Infow("activated trial subscription", "subscription_id", sub.ID, "trial_end", sub.TrialEnd)
		return &dto.SubscriptionResponse{Subscription: sub}, nil
	}

	m, err := s.MemberRepo.Get(ctx, sub.MemberID)
	if err != nil {
		return nil, err
	}
	loc, err := s.lookupLocation(ctx, sub.LocationID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.billing.ComputeCharge(ctx, &ChargeInput{
		Pricing:     pr,
		Location:    loc,
		Promo:       sub.PromoSnapshot,
		Cycle:       1,
		FirstCharge: true,
	})
	if err != nil {
		return nil, err
	}

	var result *gateway.ChargeResult
	if breakdown.Total.IsPositive() {
		requested := ""
		if card != nil {
			requested = card.PaymentMethodID
		}
		paymentMethodID, err := m.PaymentMethodFor(requested)
		if err != nil {
			return nil, err
		}
		if m.GatewayCustomerID == nil || *m.GatewayCustomerID == "" {
			return nil, ierr.NewError("member has no gateway customer").
				WithHint("Member has no stored payment method").
				Mark(ierr.ErrValidation)
		}
		result, err = s.Gateway.ProcessPayment(ctx, &gateway.ChargeRequest{
			Amount:            breakdown.Total,
			Currency:          breakdown.Currency,
			GatewayCustomerID: *m.GatewayCustomerID,
			PaymentMethodID:   paymentMethodID,
			Description:       "membership activation",
			Metadata:          types.Metadata{"subscription_id": sub.ID},
		})
		if err != nil {
			return nil, err
		}
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv := buildSubscriptionInvoice(ctx, sub, breakdown, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
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

		if sub.HasUnappliedPromo() {
			if err := s.promo.ApplyRedemption(ctx, sub.PromoSnapshot.PromoID); err != nil {
				return err
			}
			sub.PromoSnapshot.Applied = true
			sub.PromoSnapshot.AppliedAt = &now
		}

		sub.SubscriptionStatus = types.SubscriptionStatusActive
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.MemberRepo.SetMembershipActive(ctx, sub.MemberID, true)
	})
	if err != nil {
		if result != nil {
			return nil, ierr.WithError(err).
				WithHint("Payment succeeded but recording it failed").
				WithReportableDetails(map[string]any{
					"subscription_id":   sub.ID,
					"payment_intent_id": result.PaymentIntentID,
				}).
				Mark(ierr.ErrPaymentRecordingFailure)
		}
		return nil, err
	}

	if err := s.scheduleRenewal(ctx, sub, pr); err != nil {
		return nil, err
	}

	s.Logger.Infow("activated subscription",
		"subscription_id", sub.ID,
		"total", breakdown.Total,
		"discount", breakdown.Discount)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// scheduleRenewal registers the subscription's renewal timer
func (s *subscriptionService) scheduleRenewal(ctx context.Context, sub *subscription.Subscription, pr *pricing.Pricing) error {
	return scheduleSubscriptionRenewal(ctx, s.ServiceParams, sub, pr)
}

// scheduleSubscriptionRenewal registers the renewal timer by deterministic job
// id. Monthly and yearly cadences on day-of-month 28 or earlier ride a cron
// expression; everything else is a one-shot job whose handler schedules the
// successor, which keeps month-end clamping correct.
func scheduleSubscriptionRenewal(ctx context.Context, params ServiceParams, sub *subscription.Subscription, pr *pricing.Pricing) error {
	payload := scheduler.RenewalPayload{
		SubscriptionID: sub.ID,
		TenantID:       sub.TenantID,
		LocationID:     sub.LocationID,
	}
	req := &scheduler.ScheduleRequest{
		ID:      scheduler.RenewalJobID(sub.ID),
		Kind:    types.ScheduledJobKindRenewal,
		Payload: payload,
	}

	anchor := sub.CurrentPeriodEnd
	if pr.Interval.IsCalendarAligned(pr.IntervalThreshold) && anchor.Day() <= 28 {
		req.CronExpr = lo.ToPtr(renewalCronExpr(anchor, pr.Interval))
	} else {
		req.RunAt = &anchor
	}

	if err := params.SchedulerClient.Schedule(ctx, req); err != nil {
		return ierr.WithError(err).
			WithHint("Subscription is active but its renewal could not be scheduled").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrSchedulingFailure)
	}
	return nil
}

// renewalCronExpr produces the calendar-aligned cron expression anchored on
// the billing date. Only valid for monthly and yearly intervals with
// day-of-month <= 28.
func renewalCronExpr(anchor time.Time, interval types.BillingInterval) string {
	if interval == types.BillingIntervalYear {
		return fmt.Sprintf("%d %d %d %d *", anchor.Minute(), anchor.Hour(), anchor.Day(), int(anchor.Month()))
	}
	return fmt.Sprintf("%d %d %d * *", anchor.Minute(), anchor.Hour(), anchor.Day())
}

// Pause suspends billing. Pausing an already paused subscription is a no-op.
func (s *subscriptionService) Pause(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionStatus == types.SubscriptionStatusPaused {
		return &dto.SubscriptionResponse{Subscription: sub}, nil
	}
	if !sub.CanTransitionTo(types.SubscriptionStatusPaused) {
		return nil, ierr.NewError("subscription cannot be paused").
			WithHint("Only active or trialing subscriptions can be paused").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	sub.SubscriptionStatus = types.SubscriptionStatusPaused
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.cancelSubscriptionJobs(ctx, sub.ID)

	s.Logger.Infow("paused subscription", "subscription_id", sub.ID)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// Resume reactivates a paused subscription. The billing period restarts from
// now; no back-billing for the paused stretch.
func (s *subscriptionService) Resume(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.Scheduler.OperationTimeout)
	defer cancel()

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusPaused {
		return nil, ierr.NewError("only paused subscriptions can be resumed").
			WithHint("Only paused subscriptions can be resumed").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	pr, err := s.lookupPricing(ctx, sub.PricingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	periodEnd, err := types.NextBillingDate(now, pr.IntervalThreshold, pr.Interval)
	if err != nil {
		return nil, err
	}

	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = periodEnd
	if sub.IsInTrial(now) {
		sub.SubscriptionStatus = types.SubscriptionStatusTrialing
		sub.CurrentPeriodEnd = *sub.TrialEnd
	} else {
		sub.SubscriptionStatus = types.SubscriptionStatusActive
	}
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	// the renewal timer only comes back for gateway-paying subscriptions whose
	// member still has a customer record to charge
	if sub.PaymentType.RequiresGateway() {
		m, err := s.MemberRepo.Get(ctx, sub.MemberID)
		if err != nil {
			return nil, err
		}
		if m.GatewayCustomerID != nil && *m.GatewayCustomerID != "" {
			if err := s.scheduleRenewal(ctx, sub, pr); err != nil {
				return nil, err
			}
		} else {
			s.Logger.Warnw("renewal not scheduled on resume, member has no gateway customer",
				"subscription_id", sub.ID,
				"member_id", sub.MemberID)
		}
	}

	s.Logger.Infow("resumed subscription",
		"subscription_id", sub.ID,
		"current_period_end", sub.CurrentPeriodEnd)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// Cancel terminates a subscription. Cancelled is absorbing: a cancelled
// subscription is never revived, members re-subscribe with a new record.
func (s *subscriptionService) Cancel(ctx context.Context, id string, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Config.Scheduler.OperationTimeout)
	defer cancel()

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionStatus.IsTerminal() {
		return nil, ierr.NewError("subscription is already terminated").
			WithHint("Cancelled subscriptions cannot be cancelled again").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	switch req.Mode {
	case types.CancellationModeNow:
		return s.cancelNow(ctx, sub, req)
	case types.CancellationModeEndOfPeriod:
		return s.cancelDeferred(ctx, sub, req, sub.CurrentPeriodEnd)
	case types.CancellationModeAtDate:
		return s.cancelDeferred(ctx, sub, req, req.CancelAt.UTC())
	default:
		return nil, ierr.NewError("invalid cancellation mode").
			WithHint("Invalid cancellation mode").
			Mark(ierr.ErrValidation)
	}
}

// cancelNow terminates immediately, optionally refunding the latest settled
// charge. The refund eligibility check runs before any state changes so an
// impossible refund leaves everything untouched.
func (s *subscriptionService) cancelNow(ctx context.Context, sub *subscription.Subscription, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	now := time.Now().UTC()

	var refundTxn *transaction.Transaction
	var refundRecord *types.RefundRecord
	if req.Refund != nil {
		txn, err := s.TransactionRepo.GetLatestPaidForSubscription(ctx, sub.ID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, ierr.NewError("no refundable transaction").
					WithHint("The subscription has no settled charge to refund").
					WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
					Mark(ierr.ErrInvalidOperation)
			}
			return nil, err
		}
		refundTxn = txn
	}

	if refundTxn != nil {
		record, err := executeRefund(ctx, s.ServiceParams, refundTxn, req.Refund.Amount, req.Refund.Reason)
		if err != nil {
			return nil, err
		}
		refundRecord = record
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.SubscriptionStatus = types.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		sub.EndedAt = &now
		sub.CancelAt = nil
		sub.CancelAtPeriodEnd = false
		sub.Cancellation = &types.CancellationRecord{
			Mode:        types.CancellationModeNow,
			Reason:      req.Reason,
			RequestedAt: now,
			EffectiveAt: now,
			Refunded:    refundRecord != nil,
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.MemberRepo.SetMembershipActive(ctx, sub.MemberID, false)
	})
	if err != nil {
		return nil, err
	}

	s.cancelSubscriptionJobs(ctx, sub.ID)

	s.Logger.Infow("cancelled subscription",
		"subscription_id", sub.ID,
		"refunded", refundRecord != nil)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// cancelDeferred records a future cancellation and schedules the job that will
// execute it
func (s *subscriptionService) cancelDeferred(ctx context.Context, sub *subscription.Subscription, req *dto.CancelSubscriptionRequest, effectiveAt time.Time) (*dto.SubscriptionResponse, error) {
	now := time.Now().UTC()
	if effectiveAt.Before(now) {
		return nil, ierr.NewError("cancellation date is in the past").
			WithHint("The cancellation date must be in the future").
			WithReportableDetails(map[string]any{"cancel_at": effectiveAt}).
			Mark(ierr.ErrValidation)
	}

	sub.CancelAt = &effectiveAt
	sub.CancelAtPeriodEnd = req.Mode == types.CancellationModeEndOfPeriod
	if sub.CancelAtPeriodEnd {
		sub.CancelAt = &sub.CurrentPeriodEnd
	}
	sub.Cancellation = &types.CancellationRecord{
		Mode:        req.Mode,
		Reason:      req.Reason,
		RequestedAt: now,
		EffectiveAt: *sub.CancelAt,
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.SchedulerClient.Schedule(ctx, &scheduler.ScheduleRequest{
		ID:   scheduler.CancellationJobID(sub.ID),
		Kind: types.ScheduledJobKindCancellation,
		Payload: scheduler.CancellationPayload{
			SubscriptionID: sub.ID,
			TenantID:       sub.TenantID,
			LocationID:     sub.LocationID,
		},
		RunAt: sub.CancelAt,
	}); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Cancellation is recorded but its execution could not be scheduled").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrSchedulingFailure)
	}

	s.Logger.Infow("scheduled subscription cancellation",
		"subscription_id", sub.ID,
		"effective_at", sub.CancelAt)
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// Update changes the mutable fields only. Pricing, periods, and status moves
// have their own operations.
func (s *subscriptionService) Update(ctx context.Context, id string, req *dto.UpdateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionStatus.IsTerminal() {
		return nil, ierr.NewError("subscription is terminated").
			WithHint("Terminated subscriptions cannot be updated").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if req.CollectionMethod != nil {
		sub.CollectionMethod = *req.CollectionMethod
	}
	if req.MakeUpCredits != nil {
		sub.MakeUpCredits = *req.MakeUpCredits
	}
	if req.CancelAt != nil {
		if err := s.moveCancellation(ctx, sub, req.CancelAt.UTC()); err != nil {
			return nil, err
		}
	}
	if req.TrialEnd != nil {
		if err := s.extendTrial(ctx, sub, req.TrialEnd.UTC()); err != nil {
			return nil, err
		}
	}
	if req.Metadata != nil {
		sub.Metadata = req.Metadata
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// moveCancellation shifts an already scheduled deferred cancellation and its
// job to a new future date
func (s *subscriptionService) moveCancellation(ctx context.Context, sub *subscription.Subscription, at time.Time) error {
	if sub.CancelAt == nil {
		return ierr.NewError("no scheduled cancellation to move").
			WithHint("Schedule a cancellation first with the cancel operation").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrInvalidOperation)
	}
	if at.Before(time.Now().UTC()) {
		return ierr.NewError("cancellation date is in the past").
			WithHint("The cancellation date must be in the future").
			WithReportableDetails(map[string]any{"cancel_at": at}).
			Mark(ierr.ErrValidation)
	}

	sub.CancelAt = &at
	sub.CancelAtPeriodEnd = at.Equal(sub.CurrentPeriodEnd)
	if sub.Cancellation != nil {
		sub.Cancellation.EffectiveAt = at
		if !sub.CancelAtPeriodEnd {
			sub.Cancellation.Mode = types.CancellationModeAtDate
		}
	}

	if err := s.SchedulerClient.Schedule(ctx, &scheduler.ScheduleRequest{
		ID:   scheduler.CancellationJobID(sub.ID),
		Kind: types.ScheduledJobKindCancellation,
		Payload: scheduler.CancellationPayload{
			SubscriptionID: sub.ID,
			TenantID:       sub.TenantID,
			LocationID:     sub.LocationID,
		},
		RunAt: sub.CancelAt,
	}); err != nil {
		return ierr.WithError(err).
			WithHint("Cancellation was moved but its execution could not be rescheduled").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrSchedulingFailure)
	}
	return nil
}

// extendTrial pushes the trial end later. The first paid period starts at
// trial end, so the period and the renewal timer move with it.
func (s *subscriptionService) extendTrial(ctx context.Context, sub *subscription.Subscription, trialEnd time.Time) error {
	if sub.TrialEnd == nil {
		return ierr.NewError("subscription has no trial").
			WithHint("Only trialing subscriptions can have their trial extended").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrInvalidOperation)
	}
	if !trialEnd.After(*sub.TrialEnd) {
		return ierr.NewError("trial can only be extended").
			WithHint("The new trial end must be after the current one").
			WithReportableDetails(map[string]any{
				"trial_end":     trialEnd,
				"current_value": *sub.TrialEnd,
			}).
			Mark(ierr.ErrValidation)
	}

	if sub.CurrentPeriodEnd.Equal(*sub.TrialEnd) {
		sub.CurrentPeriodEnd = trialEnd
	}
	sub.TrialEnd = &trialEnd

	if sub.PaymentType.RequiresGateway() {
		pr, err := s.lookupPricing(ctx, sub.PricingID)
		if err != nil {
			return err
		}
		return s.scheduleRenewal(ctx, sub, pr)
	}
	return nil
}

// cancelSubscriptionJobs removes the renewal timer and any pending deferred
// cancellation. Best effort: a failure is logged, not surfaced.
func (s *subscriptionService) cancelSubscriptionJobs(ctx context.Context, subscriptionID string) {
	if err := s.SchedulerClient.Cancel(ctx, scheduler.RenewalJobID(subscriptionID)); err != nil {
		s.Logger.Warnw("failed to cancel renewal job", "subscription_id", subscriptionID, "error", err)
	}
	if err := s.SchedulerClient.Cancel(ctx, scheduler.CancellationJobID(subscriptionID)); err != nil {
		s.Logger.Warnw("failed to cancel cancellation job", "subscription_id", subscriptionID, "error", err)
	}
}
