package testutil

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flexprice/paysync/internal/cache"
	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/domain/invoice"
	"github.com/flexprice/paysync/internal/domain/payment"
	"github.com/flexprice/paysync/internal/domain/plan"
	"github.com/flexprice/paysync/internal/domain/subscription"
	"github.com/flexprice/paysync/internal/idempotency"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/integration/paystack/webhook"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/types"
	"github.com/flexprice/paysync/internal/validator"
	webhookPublisher "github.com/flexprice/paysync/internal/webhook/publisher"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	PaymentRepo      payment.Repository
	SubscriptionRepo subscription.Repository
	InvoiceRepo      invoice.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	stores           Stores
	pubSub           *InMemoryPubSub
	webhookPublisher webhookPublisher.WebhookPublisher
	db               *MockPostgresClient
	httpClient       *MockHTTPClient
	gateway          paystack.PaystackClient
	verifier         *webhook.Verifier
	catalog          plan.Catalog
	cache            cache.Cache
	idempotency      *idempotency.Generator
	logger           *logger.Logger
	config           *config.Configuration
	now              time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Webhook.Enabled = true

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}

	s.catalog, err = plan.NewCatalog(cfg)
	if err != nil {
		s.T().Fatalf("failed to create plan catalog: %v", err)
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
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PaymentRepo:      NewInMemoryPaymentStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.httpClient = NewMockHTTPClient()
	s.gateway = paystack.NewClient(s.config, s.httpClient, nil, s.logger)
	s.verifier = webhook.NewVerifier(s.config)
	s.cache = cache.NewInMemoryCache(s.config)
	s.idempotency = idempotency.NewGenerator()

	s.pubSub = NewInMemoryPubSub()
	publisher, err := webhookPublisher.NewPublisher(s.pubSub, s.config, s.logger)
	if err != nil {
		s.T().Fatalf("failed to create webhook publisher: %v", err)
	}
	s.webhookPublisher = publisher
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PaymentRepo.(*InMemoryPaymentStore).Clear()
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.pubSub.ClearMessages()
	s.httpClient.Clear()
	s.db.Reset()
	s.cache.Flush(context.Background())
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// StubInitialize answers the gateway's initialize endpoint with a checkout link
func (s *BaseServiceTestSuite) StubInitialize(accessCode string) {
	s.httpClient.RegisterJSONResponse("/transaction/initialize", http.StatusOK, map[string]interface{}{
		"status":  true,
		"message": "Authorization URL created",
		"data": map[string]interface{}{
			"authorization_url": "https://checkout.paystack.com/" + accessCode,
			"access_code":       accessCode,
			"reference":         accessCode,
		},
	})
}

// StubVerify answers the gateway's verify endpoint for reference
func (s *BaseServiceTestSuite) StubVerify(reference, status string, amountMinor int64, currency string) {
	s.httpClient.RegisterJSONResponse("/transaction/verify/"+reference, http.StatusOK, map[string]interface{}{
		"status":  true,
		"message": "Verification successful",
		"data":    s.TransactionData(reference, status, amountMinor, currency),
	})
}

// TransactionData renders a gateway transaction object
func (s *BaseServiceTestSuite) TransactionData(reference, status string, amountMinor int64, currency string) map[string]interface{} {
	data := map[string]interface{}{
		"id":        4099260516,
		"status":    status,
		"reference": reference,
		"amount":    amountMinor,
		"currency":  currency,
		"customer":  map[string]interface{}{"id": 1, "email": TestUserEmail},
	}
	if status == paystack.StatusSuccess {
		data["paid_at"] = s.now.Format(time.RFC3339)
	}
	return data
}

// ChargeSuccessBody renders a signed-ready charge.success delivery
func (s *BaseServiceTestSuite) ChargeSuccessBody(reference string, amountMinor int64, currency string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"id":302961,"status":"success","reference":%q,"amount":%d,"currency":%q,"paid_at":%q,"customer":{"id":84312,"email":%q}}}`,
		reference, amountMinor, currency, s.now.Format(time.RFC3339), TestUserEmail,
	))
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
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetPubSub returns the pubsub the webhook publisher writes to
func (s *BaseServiceTestSuite) GetPubSub() *InMemoryPubSub {
	return s.pubSub
}

// GetWebhookPublisher returns the test webhook publisher
func (s *BaseServiceTestSuite) GetWebhookPublisher() webhookPublisher.WebhookPublisher {
	return s.webhookPublisher
}

// GetHTTPClient returns the mock transport behind the gateway client
func (s *BaseServiceTestSuite) GetHTTPClient() *MockHTTPClient {
	return s.httpClient
}

// GetGateway returns the gateway client wired to the mock transport
func (s *BaseServiceTestSuite) GetGateway() paystack.PaystackClient {
	return s.gateway
}

// GetVerifier returns the webhook signature verifier
func (s *BaseServiceTestSuite) GetVerifier() *webhook.Verifier {
	return s.verifier
}

// GetCatalog returns the plan catalog
func (s *BaseServiceTestSuite) GetCatalog() plan.Catalog {
	return s.catalog
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetIdempotency returns the reference and key generator
func (s *BaseServiceTestSuite) GetIdempotency() *idempotency.Generator {
	return s.idempotency
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
