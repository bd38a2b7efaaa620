package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymlane/gymlane/internal/api"
	v1 "github.com/gymlane/gymlane/internal/api/v1"
	"github.com/gymlane/gymlane/internal/cache"
	"github.com/gymlane/gymlane/internal/config"
	"github.com/gymlane/gymlane/internal/gateway"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/repository"
	"github.com/gymlane/gymlane/internal/scheduler"
	"github.com/gymlane/gymlane/internal/sentry"
	"github.com/gymlane/gymlane/internal/service"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/gymlane/gymlane/internal/validator"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Payment gateway
			gateway.NewStripeGateway,

			// Repositories
			repository.NewMemberRepository,
			repository.NewLocationRepository,
			repository.NewPlanRepository,
			repository.NewPricingRepository,
			repository.NewPromoRepository,
			repository.NewSubscriptionRepository,
			repository.NewInvoiceRepository,
			repository.NewTransactionRepository,
			repository.NewWalletRepository,
			repository.NewScheduledJobRepository,

			// Scheduler
			scheduler.NewClient,
			scheduler.NewWorker,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewBillingService,
			service.NewPromoService,
			service.NewWalletService,
			service.NewInvoiceService,
			service.NewSubscriptionService,
			service.NewTransactionService,
			service.NewRenewalService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideDBClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideHandlers(
	logger *logger.Logger,
	subscriptionService service.SubscriptionService,
	invoiceService service.InvoiceService,
	promoService service.PromoService,
	transactionService service.TransactionService,
	walletService service.WalletService,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(logger),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		Invoice:      v1.NewInvoiceHandler(invoiceService, logger),
		Promo:        v1.NewPromoHandler(promoService, logger),
		Transaction:  v1.NewTransactionHandler(transactionService, logger),
		Wallet:       v1.NewWalletHandler(walletService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	return api.NewRouter(handlers, cfg)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	worker *scheduler.Worker,
	renewalService service.RenewalService,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startWorker(lc, worker, renewalService, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		startWorker(lc, worker, renewalService, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startWorker(
	lc fx.Lifecycle,
	worker *scheduler.Worker,
	renewalService service.RenewalService,
	log *logger.Logger,
) {
	renewalService.RegisterHandlers(worker)

	workerCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting scheduler worker...")
			go worker.Start(workerCtx)

			// Sweep for trials nearing expiry whose renewal job went missing
			go func() {
				if err := renewalService.RecoverTrialRenewals(workerCtx); err != nil {
					log.Errorw("trial renewal recovery failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping scheduler worker...")
			cancel()
			return nil
		},
	})
}
