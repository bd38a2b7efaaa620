package service

import (
	"github.com/gymlane/gymlane/internal/cache"
	"github.com/gymlane/gymlane/internal/config"
	"github.com/gymlane/gymlane/internal/domain/invoice"
	"github.com/gymlane/gymlane/internal/domain/location"
	"github.com/gymlane/gymlane/internal/domain/member"
	"github.com/gymlane/gymlane/internal/domain/plan"
	"github.com/gymlane/gymlane/internal/domain/pricing"
	"github.com/gymlane/gymlane/internal/domain/promo"
	"github.com/gymlane/gymlane/internal/domain/scheduledjob"
	"github.com/gymlane/gymlane/internal/domain/subscription"
	"github.com/gymlane/gymlane/internal/domain/transaction"
	"github.com/gymlane/gymlane/internal/domain/wallet"
	"github.com/gymlane/gymlane/internal/gateway"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/scheduler"
)

// ServiceParams bundles the dependencies shared by the billing services.
// Everything is an interface so test suites can swap in fakes.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	Gateway         gateway.Gateway
	SchedulerClient scheduler.Client

	MemberRepo       member.Repository
	LocationRepo     location.Repository
	PlanRepo         plan.Repository
	PricingRepo      pricing.Repository
	SubRepo          subscription.Repository
	InvoiceRepo      invoice.Repository
	TransactionRepo  transaction.Repository
	PromoRepo        promo.Repository
	WalletRepo       wallet.Repository
	ScheduledJobRepo scheduledjob.Repository
}

func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	cacheStore cache.Cache,
	gw gateway.Gateway,
	schedulerClient scheduler.Client,
	memberRepo member.Repository,
	locationRepo location.Repository,
	planRepo plan.Repository,
	pricingRepo pricing.Repository,
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
	transactionRepo transaction.Repository,
	promoRepo promo.Repository,
	walletRepo wallet.Repository,
	scheduledJobRepo scheduledjob.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           cfg,
		DB:               db,
		Cache:            cacheStore,
		Gateway:          gw,
		SchedulerClient:  schedulerClient,
		MemberRepo:       memberRepo,
		LocationRepo:     locationRepo,
		PlanRepo:         planRepo,
		PricingRepo:      pricingRepo,
		SubRepo:          subRepo,
		InvoiceRepo:      invoiceRepo,
		TransactionRepo:  transactionRepo,
		PromoRepo:        promoRepo,
		WalletRepo:       walletRepo,
		ScheduledJobRepo: scheduledJobRepo,
	}
}
