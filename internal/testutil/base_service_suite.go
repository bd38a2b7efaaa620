package testutil

import (
	"context"
	"time"

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
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/postgres"
	"github.com/gymlane/gymlane/internal/scheduler"
	"github.com/gymlane/gymlane/internal/types"
	"github.com/stretchr/testify/suite"
)

// Identifiers shared by test fixtures
const (
	TestTenantID   = "tenant_test"
	TestUserID     = "user_test"
	TestLocationID = "loc_test"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	MemberRepo       member.Repository
	LocationRepo     location.Repository
	PlanRepo         plan.Repository
	PricingRepo      pricing.Repository
	SubscriptionRepo subscription.Repository
	InvoiceRepo      invoice.Repository
	TransactionRepo  transaction.Repository
	PromoRepo        promo.Repository
	WalletRepo       wallet.Repository
	ScheduledJobRepo scheduledjob.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx             context.Context
	stores          Stores
	db              postgres.IClient
	gateway         *MockGateway
	schedulerClient scheduler.Client
	logger          *logger.Logger
	config          *config.Configuration
	now             time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxTenantID, TestTenantID)
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, TestUserID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		MemberRepo:       NewInMemoryMemberStore(),
		LocationRepo:     NewInMemoryLocationStore(),
		PlanRepo:         NewInMemoryPlanStore(),
		PricingRepo:      NewInMemoryPricingStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		TransactionRepo:  NewInMemoryTransactionStore(),
		PromoRepo:        NewInMemoryPromoStore(),
		WalletRepo:       NewInMemoryWalletStore(),
		ScheduledJobRepo: NewInMemoryScheduledJobStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.gateway = NewMockGateway()
	// The real scheduling client over the in-memory job store, so tests
	// exercise actual next-run computation and upsert semantics.
	s.schedulerClient = scheduler.NewClient(s.stores.ScheduledJobRepo, s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.MemberRepo.(*InMemoryMemberStore).Clear()
	s.stores.LocationRepo.(*InMemoryLocationStore).Clear()
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.PricingRepo.(*InMemoryPricingStore).Clear()
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.TransactionRepo.(*InMemoryTransactionStore).Clear()
	s.stores.PromoRepo.(*InMemoryPromoStore).Clear()
	s.stores.WalletRepo.(*InMemoryWalletStore).Clear()
	s.stores.ScheduledJobRepo.(*InMemoryScheduledJobStore).Clear()
}

// ClearStores resets every store mid-test
func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetGateway returns the recording payment gateway
func (s *BaseServiceTestSuite) GetGateway() *MockGateway {
	return s.gateway
}

// GetSchedulerClient returns the scheduling client backed by the in-memory job store
func (s *BaseServiceTestSuite) GetSchedulerClient() scheduler.Client {
	return s.schedulerClient
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
