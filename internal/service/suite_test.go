package service

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/gymlane/gymlane/internal/cache"
	"github.com/gymlane/gymlane/internal/domain/location"
	"github.com/gymlane/gymlane/internal/domain/member"
	"github.com/gymlane/gymlane/internal/domain/plan"
	"github.com/gymlane/gymlane/internal/domain/pricing"
	"github.com/gymlane/gymlane/internal/domain/promo"
	"github.com/gymlane/gymlane/internal/domain/wallet"
	"github.com/gymlane/gymlane/internal/testutil"
	"github.com/gymlane/gymlane/internal/types"
)

// ServiceTestSuite wires the billing services over the in-memory stores, the
// recording gateway, and the real scheduling client.
type ServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	params ServiceParams

	billingService      BillingService
	promoService        PromoService
	walletService       WalletService
	invoiceService      InvoiceService
	subscriptionService SubscriptionService
	transactionService  TransactionService
	renewalService      RenewalService
}

func (s *ServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.params = ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Cache:            cache.NewInMemoryCache(),
		Gateway:          s.GetGateway(),
		SchedulerClient:  s.GetSchedulerClient(),
		MemberRepo:       stores.MemberRepo,
		LocationRepo:     stores.LocationRepo,
		PlanRepo:         stores.PlanRepo,
		PricingRepo:      stores.PricingRepo,
		SubRepo:          stores.SubscriptionRepo,
		InvoiceRepo:      stores.InvoiceRepo,
		TransactionRepo:  stores.TransactionRepo,
		PromoRepo:        stores.PromoRepo,
		WalletRepo:       stores.WalletRepo,
		ScheduledJobRepo: stores.ScheduledJobRepo,
	}

	s.billingService = NewBillingService(s.params)
	s.promoService = NewPromoService(s.params)
	s.walletService = NewWalletService(s.params)
	s.invoiceService = NewInvoiceService(s.params, s.billingService, s.promoService, s.walletService)
	s.subscriptionService = NewSubscriptionService(s.params, s.billingService, s.promoService)
	s.transactionService = NewTransactionService(s.params)
	s.renewalService = NewRenewalService(s.params, s.billingService, s.promoService)
}

func (s *ServiceTestSuite) seedLocation(loc *location.Location) *location.Location {
	if loc.ID == "" {
		loc.ID = testutil.TestLocationID
	}
	if loc.Name == "" {
		loc.Name = "Downtown Studio"
	}
	loc.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.GetStores().LocationRepo.(*testutil.InMemoryLocationStore).Add(loc)
	return loc
}

func (s *ServiceTestSuite) seedMember(m *member.Member) *member.Member {
	if m.ID == "" {
		m.ID = "member_1"
	}
	if m.LocationID == "" {
		m.LocationID = testutil.TestLocationID
	}
	if m.Name == "" {
		m.Name = "Alex Doe"
	}
	m.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.GetStores().MemberRepo.(*testutil.InMemoryMemberStore).Add(m)
	return m
}

// seedCardMember seeds a member with a stored payment method
func (s *ServiceTestSuite) seedCardMember() *member.Member {
	return s.seedMember(&member.Member{
		ID:                     "member_1",
		GatewayCustomerID:      lo.ToPtr("cus_1"),
		DefaultPaymentMethodID: lo.ToPtr("pm_1"),
	})
}

func (s *ServiceTestSuite) seedPlan(p *plan.Plan) *plan.Plan {
	if p.ID == "" {
		p.ID = "plan_1"
	}
	if p.LocationID == "" {
		p.LocationID = testutil.TestLocationID
	}
	if p.Name == "" {
		p.Name = "Unlimited"
	}
	p.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))
	return p
}

func (s *ServiceTestSuite) seedPricing(p *pricing.Pricing) *pricing.Pricing {
	if p.ID == "" {
		p.ID = "pricing_1"
	}
	if p.PlanID == "" {
		p.PlanID = "plan_1"
	}
	if p.LocationID == "" {
		p.LocationID = testutil.TestLocationID
	}
	if p.Currency == "" {
		p.Currency = "usd"
	}
	if p.Interval == "" {
		p.Interval = types.BillingIntervalMonth
		p.IntervalThreshold = 1
	}
	p.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.NoError(s.GetStores().PricingRepo.Create(s.GetContext(), p))
	return p
}

func (s *ServiceTestSuite) seedPromo(p *promo.Promo) *promo.Promo {
	if p.ID == "" {
		p.ID = "promo_1"
	}
	if p.LocationID == "" {
		p.LocationID = testutil.TestLocationID
	}
	p.IsActive = true
	p.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.NoError(s.GetStores().PromoRepo.Create(s.GetContext(), p))
	return p
}

func (s *ServiceTestSuite) seedWallet(balance decimal.Decimal) *wallet.Wallet {
	w := &wallet.Wallet{
		ID:         "wallet_1",
		LocationID: testutil.TestLocationID,
		Currency:   "usd",
		Balance:    balance,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().WalletRepo.Create(s.GetContext(), w))
	return w
}

// seedMonthlyFixture seeds a plain location, card member, plan, and a monthly
// pricing at the given amount in cents
func (s *ServiceTestSuite) seedMonthlyFixture(amount int64) (*member.Member, *pricing.Pricing) {
	s.seedLocation(&location.Location{})
	m := s.seedCardMember()
	s.seedPlan(&plan.Plan{})
	pr := s.seedPricing(&pricing.Pricing{Amount: decimal.NewFromInt(amount)})
	return m, pr
}
