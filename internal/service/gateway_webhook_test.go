package service

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/flexprice/paysync/internal/api/dto"
	"github.com/flexprice/paysync/internal/domain/payment"
	"github.com/flexprice/paysync/internal/domain/plan"
	"github.com/flexprice/paysync/internal/domain/subscription"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/integration/paystack/webhook"
	"github.com/flexprice/paysync/internal/testutil"
	"github.com/flexprice/paysync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type GatewayWebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  GatewayWebhookService
	testData struct {
		payment *payment.Payment
		sub     *subscription.Subscription
	}
}

func TestGatewayWebhookService(t *testing.T) {
	suite.Run(t, new(GatewayWebhookServiceSuite))
}

func (s *GatewayWebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
	s.setupTestData()
}

func (s *GatewayWebhookServiceSuite) setupService() {
	stores := s.GetStores()
	params := ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		PaymentRepo:      stores.PaymentRepo,
		SubRepo:          stores.SubscriptionRepo,
		InvoiceRepo:      stores.InvoiceRepo,
		PlanCatalog:      s.GetCatalog(),
		Gateway:          s.GetGateway(),
		WebhookVerifier:  s.GetVerifier(),
		Cache:            s.GetCache(),
		Idempotency:      s.GetIdempotency(),
		WebhookPublisher: s.GetWebhookPublisher(),
	}
	s.service = NewGatewayWebhookService(params, NewReconciliationService(params))
}

func (s *GatewayWebhookServiceSuite) setupTestData() {
	ctx := s.GetContext()
	stores := s.GetStores()

	s.testData.sub = subscription.New(ctx, plan.PlanBasic, types.BillingCycleMonthly, decimal.NewFromInt(120), types.CurrencyGHS)
	s.NoError(stores.SubscriptionRepo.Create(ctx, s.testData.sub))

	s.testData.payment = payment.New(ctx, "TXN_1700000000_1234", testutil.TestUserEmail, decimal.RequireFromString("120.00"), types.CurrencyGHS)
	s.testData.payment.SubscriptionID = lo.ToPtr(s.testData.sub.ID)
	s.NoError(stores.PaymentRepo.Create(ctx, s.testData.payment))
}

func (s *GatewayWebhookServiceSuite) sign(body []byte) string {
	return hex.EncodeToString(webhook.Sign([]byte(s.GetConfig().Gateway.SecretKey), body))
}

// deliver hands body to the service the way the HTTP handler does, without a tenant
func (s *GatewayWebhookServiceSuite) deliver(body []byte, signature string) (*dto.WebhookAckResponse, error) {
	return s.service.HandlePaystackWebhook(context.Background(), body, signature)
}

func (s *GatewayWebhookServiceSuite) paymentStatus() types.PaymentStatus {
	p, err := s.GetStores().PaymentRepo.GetByReference(s.GetContext(), s.testData.payment.Reference)
	s.Require().NoError(err)
	return p.Status
}

func (s *GatewayWebhookServiceSuite) invoiceCount() int {
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.Require().NoError(err)
	return len(invoices)
}

func (s *GatewayWebhookServiceSuite) TestChargeSuccessSettlesPayment() {
	body := s.ChargeSuccessBody(s.testData.payment.Reference, 12000, types.CurrencyGHS)

	ack, err := s.deliver(body, s.sign(body))
	s.Require().NoError(err)
	s.True(ack.Received)
	s.Equal(dto.WebhookStatusProcessed, ack.Status)

	s.Equal(types.PaymentStatusSuccess, s.paymentStatus())
	s.Equal(1, s.invoiceCount())

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)

	p, err := s.GetStores().PaymentRepo.GetByReference(s.GetContext(), s.testData.payment.Reference)
	s.Require().NoError(err)
	s.Equal("302961", lo.FromPtr(p.GatewayReference))
}

func (s *GatewayWebhookServiceSuite) TestDuplicateDeliveryIsAcknowledged() {
	body := s.ChargeSuccessBody(s.testData.payment.Reference, 12000, types.CurrencyGHS)
	signature := s.sign(body)

	_, err := s.deliver(body, signature)
	s.Require().NoError(err)
	commits := s.GetDB().Commits()

	ack, err := s.deliver(body, signature)
	s.Require().NoError(err)
	s.Equal(dto.WebhookStatusDuplicate, ack.Status)
	s.Equal(commits, s.GetDB().Commits())
	s.Equal(1, s.invoiceCount())
}

func (s *GatewayWebhookServiceSuite) TestRedeliveryAfterReplayExpiryIsNoop() {
	body := s.ChargeSuccessBody(s.testData.payment.Reference, 12000, types.CurrencyGHS)
	_, err := s.deliver(body, s.sign(body))
	s.Require().NoError(err)

	// the replay window has passed, the payment itself is already settled
	s.GetCache().Flush(context.Background())
	ack, err := s.deliver(body, s.sign(body))
	s.Require().NoError(err)
	s.Equal(dto.WebhookStatusProcessed, ack.Status)
	s.Equal(1, s.invoiceCount())
	s.Len(s.GetPubSub().EventNames(s.GetConfig().Webhook.Topic), 3)
}

func (s *GatewayWebhookServiceSuite) TestInvalidSignatureTouchesNothing() {
	body := s.ChargeSuccessBody(s.testData.payment.Reference, 12000, types.CurrencyGHS)
	signature := s.sign(body)

	tests := []struct {
		name      string
		body      []byte
		signature string
	}{
		{"tampered body", append(append([]byte(nil), body[:len(body)-1]...), []byte(`,"x":1}`)...), signature},
		{"missing signature", body, ""},
		{"wrong secret", body, hex.EncodeToString(webhook.Sign([]byte("sk_test_other"), body))},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.deliver(tt.body, tt.signature)
			s.Error(err)
			s.True(ierr.IsSignatureInvalid(err))
		})
	}

	s.Equal(types.PaymentStatusPending, s.paymentStatus())
	s.Equal(0, s.invoiceCount())
	s.Equal(0, s.GetDB().Commits())
	s.Equal(0, s.GetDB().Rollbacks())
	s.Empty(s.GetPubSub().EventNames(s.GetConfig().Webhook.Topic))

	// a rejected delivery is not remembered
	ack, err := s.deliver(body, signature)
	s.Require().NoError(err)
	s.Equal(dto.WebhookStatusProcessed, ack.Status)
}

func (s *GatewayWebhookServiceSuite) TestUnknownReferenceIsIgnored() {
	body := s.ChargeSuccessBody("TXN_0_0000", 12000, types.CurrencyGHS)

	ack, err := s.deliver(body, s.sign(body))
	s.Require().NoError(err)
	s.Equal(dto.WebhookStatusIgnored, ack.Status)
	s.Equal(types.PaymentStatusPending, s.paymentStatus())
}

func (s *GatewayWebhookServiceSuite) TestUnhandledEventIsIgnored() {
	body := []byte(`{"event":"subscription.disable","data":{"subscription_code":"SUB_vsyqdmlzble3uii"}}`)

	ack, err := s.deliver(body, s.sign(body))
	s.Require().NoError(err)
	s.Equal(dto.WebhookStatusIgnored, ack.Status)
	s.Equal(0, s.GetDB().Commits())
}

func (s *GatewayWebhookServiceSuite) TestMalformedPayloadIsRejected() {
	body := []byte(`{"event":"charge.success","data":{"status":"success"}}`)

	_, err := s.deliver(body, s.sign(body))
	s.True(ierr.IsValidation(err))
	s.Equal(types.PaymentStatusPending, s.paymentStatus())
}

func (s *GatewayWebhookServiceSuite) TestStorageExhaustionIsNotRemembered() {
	body := s.ChargeSuccessBody(s.testData.payment.Reference, 12000, types.CurrencyGHS)
	signature := s.sign(body)
	s.GetDB().InjectCommitFailures(100, nil)

	_, err := s.deliver(body, signature)
	s.True(ierr.IsStorageConflict(err))
	s.Equal(types.PaymentStatusPending, s.paymentStatus())

	// the gateway retries the same delivery once storage recovers
	s.GetDB().Reset()
	ack, err := s.deliver(body, signature)
	s.Require().NoError(err)
	s.Equal(dto.WebhookStatusProcessed, ack.Status)
	s.Equal(types.PaymentStatusSuccess, s.paymentStatus())
}
