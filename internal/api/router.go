package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/gymlane/gymlane/internal/api/v1"
	"github.com/gymlane/gymlane/internal/config"
	"github.com/gymlane/gymlane/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Subscription *v1.SubscriptionHandler
	Invoice      *v1.InvoiceHandler
	Promo        *v1.PromoHandler
	Transaction  *v1.TransactionHandler
	Wallet       *v1.WalletHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// v1 routes require tenant scope
	v1Group := router.Group("/v1", middleware.TenantMiddleware)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("", handlers.Subscription.ListSubscriptions)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
		subscriptions.PUT("/:id", handlers.Subscription.UpdateSubscription)
		subscriptions.POST("/:id/activate", handlers.Subscription.ActivateSubscription)
		subscriptions.POST("/:id/pause", handlers.Subscription.PauseSubscription)
		subscriptions.POST("/:id/resume", handlers.Subscription.ResumeSubscription)
		subscriptions.POST("/:id/cancel", handlers.Subscription.CancelSubscription)
		subscriptions.GET("/:id/transactions", handlers.Transaction.ListSubscriptionTransactions)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.POST("/preview", handlers.Invoice.PreviewInvoice)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/send", handlers.Invoice.SendInvoice)
		invoices.POST("/:id/mark-paid", handlers.Invoice.MarkInvoicePaid)
		invoices.POST("/:id/void", handlers.Invoice.VoidInvoice)
	}

	promos := router.Group("/promos")
	{
		promos.POST("", handlers.Promo.CreatePromo)
		promos.GET("", handlers.Promo.ListPromos)
		promos.POST("/validate", handlers.Promo.ValidatePromo)
		promos.GET("/:id", handlers.Promo.GetPromo)
		promos.DELETE("/:id", handlers.Promo.ArchivePromo)
	}

	transactions := router.Group("/transactions")
	{
		transactions.GET("/:id", handlers.Transaction.GetTransaction)
		transactions.POST("/:id/refund", handlers.Transaction.RefundTransaction)
	}

	locations := router.Group("/locations")
	{
		locations.GET("/:id/wallet", handlers.Wallet.GetWallet)
		locations.POST("/:id/wallet/top-up", handlers.Wallet.TopUpWallet)
	}
}
