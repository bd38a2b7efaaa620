package repository

import (
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
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	postgresRepo "github.com/gymlane/gymlane/internal/repository/postgres"
)

func NewMemberRepository(db *postgres.DB, logger *logger.Logger) member.Repository {
	return postgresRepo.NewMemberRepository(db, logger)
}

func NewLocationRepository(db *postgres.DB, logger *logger.Logger) location.Repository {
	return postgresRepo.NewLocationRepository(db, logger)
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewPricingRepository(db *postgres.DB, logger *logger.Logger) pricing.Repository {
	return postgresRepo.NewPricingRepository(db, logger)
}

func NewPromoRepository(db *postgres.DB, logger *logger.Logger) promo.Repository {
	return postgresRepo.NewPromoRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return postgresRepo.NewTransactionRepository(db, logger)
}

func NewWalletRepository(db *postgres.DB, logger *logger.Logger) wallet.Repository {
	return postgresRepo.NewWalletRepository(db, logger)
}

func NewScheduledJobRepository(db *postgres.DB, logger *logger.Logger) scheduledjob.Repository {
	return postgresRepo.NewScheduledJobRepository(db, logger)
}
