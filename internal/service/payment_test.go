package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/flexprice/paysync/internal/api/dto"
	"github.com/flexprice/paysync/internal/domain/payment"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/testutil"
	"github.com/flexprice/paysync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PaymentService
	testData struct {
		request dto.InitializePaymentRequest
	}
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
	s.setupTestData()
}

func (s *PaymentServiceSuite) setupService() {
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
	s.service = NewPaymentService(params, NewReconciliationService(params))
}

func (s *PaymentServiceSuite) setupTestData() {
	s.testData.request = dto.InitializePaymentRequest{
		Amount:   decimal.RequireFromString("120.00"),
		Email:    testutil.TestUserEmail,
		Currency: types.CurrencyGHS,
	}
}

// initialize opens a checkout and returns the reference it was created under
func (s *PaymentServiceSuite) initialize() string {
	s.StubInitialize("0peioxfhpn")
	resp, err := s.service.InitializePayment(s.GetContext(), s.testData.request)
	s.Require().NoError(err)
	return resp.Reference
}

func (s *PaymentServiceSuite) storedPayments() []*payment.Payment {
	payments, err := s.GetStores().PaymentRepo.List(s.GetContext(), types.NewPaymentFilter())
	s.Require().NoError(err)
	return payments
}

func (s *PaymentServiceSuite) TestInitializePayment() {
	s.StubInitialize("0peioxfhpn")

	resp, err := s.service.InitializePayment(s.GetContext(), s.testData.request)
	s.Require().NoError(err)
	s.Equal("https://checkout.paystack.com/0peioxfhpn", resp.AuthorizationURL)
	s.Equal("0peioxfhpn", resp.AccessCode)
	s.Regexp(`^TXN_\d+_\d{4}$`, resp.Reference)
	s.Empty(resp.SubscriptionID)

	stored, err := s.GetStores().PaymentRepo.GetByReference(s.GetContext(), resp.Reference)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPending, stored.Status)
	s.Equal(types.DefaultTenantID, stored.TenantID)
	s.True(stored.Amount.Equal(decimal.NewFromInt(120)))
	s.Nil(stored.SubscriptionID)

	reqs := s.GetHTTPClient().Requests()
	s.Require().Len(reqs, 1)
	s.Contains(string(reqs[0].Body), `"amount":12000`)
	s.Contains(string(reqs[0].Body), resp.Reference)
}

func (s *PaymentServiceSuite) TestInitializePaymentDefaultsCurrency() {
	s.StubInitialize("0peioxfhpn")
	req := s.testData.request
	req.Currency = ""

	resp, err := s.service.InitializePayment(s.GetContext(), req)
	s.Require().NoError(err)

	stored, err := s.GetStores().PaymentRepo.GetByReference(s.GetContext(), resp.Reference)
	s.Require().NoError(err)
	s.Equal(s.GetConfig().Gateway.DefaultCurrency, stored.Currency)
}

func (s *PaymentServiceSuite) TestInitializePaymentValidation() {
	tests := []struct {
		name   string
		mutate func(*dto.InitializePaymentRequest)
	}{
		{"zero amount", func(r *dto.InitializePaymentRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *dto.InitializePaymentRequest) { r.Amount = decimal.NewFromInt(-5) }},
		{"sub minor unit amount", func(r *dto.InitializePaymentRequest) { r.Amount = decimal.RequireFromString("1.005") }},
		{"missing email", func(r *dto.InitializePaymentRequest) { r.Email = "" }},
		{"bad email", func(r *dto.InitializePaymentRequest) { r.Email = "not-an-email" }},
		{"unsupported currency", func(r *dto.InitializePaymentRequest) { r.Currency = "XYZ" }},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.testData.request
			tt.mutate(&req)

			_, err := s.service.InitializePayment(s.GetContext(), req)
			s.Error(err)
			s.True(ierr.IsValidation(err), "unexpected error: %v", err)
		})
	}

	s.Empty(s.storedPayments())
	s.Empty(s.GetHTTPClient().Requests())
}

func (s *PaymentServiceSuite) TestInitializePaymentRequiresTenant() {
	_, err := s.service.InitializePayment(context.Background(), s.testData.request)
	s.True(ierr.Is(err, ierr.ErrUnauthorized))
}

func (s *PaymentServiceSuite) TestInitializePaymentGatewayRejected() {
	s.GetHTTPClient().RegisterResponse("/transaction/initialize", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"status":false,"message":"Invalid Email Address Passed"}`),
	})

	_, err := s.service.InitializePayment(s.GetContext(), s.testData.request)
	s.Error(err)
	s.True(ierr.IsGatewayRejected(err))

	payments := s.storedPayments()
	s.Require().Len(payments, 1)
	s.Equal(types.PaymentStatusFailed, payments[0].Status)
	s.Contains(string(payments[0].GatewayTransactionData), "rejected")

	s.Equal([]string{types.WebhookEventPaymentFailed}, s.GetPubSub().EventNames(s.GetConfig().Webhook.Topic))
}

func (s *PaymentServiceSuite) TestInitializePaymentGatewayUnavailable() {
	s.GetHTTPClient().RegisterResponse("/transaction/initialize", testutil.MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       []byte(`upstream error`),
	})

	_, err := s.service.InitializePayment(s.GetContext(), s.testData.request)
	s.Error(err)
	s.True(ierr.IsGatewayUnavailable(err))

	payments := s.storedPayments()
	s.Require().Len(payments, 1)
	s.Equal(types.PaymentStatusPending, payments[0].Status)
	s.Empty(s.GetPubSub().EventNames(s.GetConfig().Webhook.Topic))
}

func (s *PaymentServiceSuite) TestVerifyPaymentSuccess() {
	reference := s.initialize()
	s.StubVerify(reference, paystack.StatusSuccess, 12000, types.CurrencyGHS)

	resp, err := s.service.VerifyPayment(s.GetContext(), reference)
	s.Require().NoError(err)
	s.True(resp.Applied)
	s.Equal(types.PaymentStatusSuccess, resp.Payment.Status)
	s.Require().NotNil(resp.Invoice)
	s.Equal(reference, resp.Invoice.PaymentReference)
	s.Nil(resp.Subscription)

	// settled payments are answered from storage
	requests := len(s.GetHTTPClient().Requests())
	again, err := s.service.VerifyPayment(s.GetContext(), reference)
	s.Require().NoError(err)
	s.False(again.Applied)
	s.Equal(resp.Invoice.ID, again.Invoice.ID)
	s.Len(s.GetHTTPClient().Requests(), requests)
}

func (s *PaymentServiceSuite) TestVerifyPaymentFailed() {
	reference := s.initialize()
	s.StubVerify(reference, paystack.StatusFailed, 12000, types.CurrencyGHS)

	resp, err := s.service.VerifyPayment(s.GetContext(), reference)
	s.Require().NoError(err)
	s.True(resp.Applied)
	s.Equal(types.PaymentStatusFailed, resp.Payment.Status)
	s.Nil(resp.Invoice)
}

func (s *PaymentServiceSuite) TestVerifyPaymentStillPending() {
	for _, status := range []string{paystack.StatusAbandoned, paystack.StatusOngoing, paystack.StatusProcessing} {
		s.Run(status, func() {
			reference := s.initialize()
			s.StubVerify(reference, status, 12000, types.CurrencyGHS)

			resp, err := s.service.VerifyPayment(s.GetContext(), reference)
			s.Require().NoError(err)
			s.False(resp.Applied)
			s.Equal(types.PaymentStatusPending, resp.Payment.Status)
			s.Nil(resp.Invoice)
		})
	}
}

func (s *PaymentServiceSuite) TestVerifyPaymentUnknownAtGateway() {
	reference := s.initialize()

	resp, err := s.service.VerifyPayment(s.GetContext(), reference)
	s.Require().NoError(err)
	s.False(resp.Applied)
	s.Equal(types.PaymentStatusPending, resp.Payment.Status)
}

func (s *PaymentServiceSuite) TestVerifyPaymentGatewayUnavailable() {
	reference := s.initialize()
	s.GetHTTPClient().RegisterResponse("/transaction/verify/"+reference, testutil.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       []byte(`{"status":false,"message":"Service unavailable"}`),
	})

	_, err := s.service.VerifyPayment(s.GetContext(), reference)
	s.True(ierr.IsGatewayUnavailable(err))

	stored, err := s.GetStores().PaymentRepo.GetByReference(s.GetContext(), reference)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPending, stored.Status)
}

func (s *PaymentServiceSuite) TestVerifyPaymentUnknownReference() {
	_, err := s.service.VerifyPayment(s.GetContext(), "TXN_0_0000")
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestPaymentsAreTenantScoped() {
	reference := s.initialize()
	other := types.SetTenantID(s.GetContext(), testutil.OtherTenantID)

	_, err := s.service.GetPayment(other, reference)
	s.True(ierr.Is(err, ierr.ErrPaymentNotFound))

	_, err = s.service.VerifyPayment(other, reference)
	s.True(ierr.Is(err, ierr.ErrPaymentNotFound))

	list, err := s.service.ListPayments(other, nil)
	s.Require().NoError(err)
	s.Empty(list.Items)

	own, err := s.service.GetPayment(s.GetContext(), reference)
	s.Require().NoError(err)
	s.Equal(reference, own.Reference)
}

func (s *PaymentServiceSuite) TestListPayments() {
	first := s.initialize()
	second := s.initialize()
	s.StubVerify(first, paystack.StatusSuccess, 12000, types.CurrencyGHS)
	_, err := s.service.VerifyPayment(s.GetContext(), first)
	s.Require().NoError(err)

	all, err := s.service.ListPayments(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Len(all.Items, 2)

	filter := types.NewPaymentFilter()
	filter.Status = lo.ToPtr(types.PaymentStatusPending)
	pending, err := s.service.ListPayments(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(pending.Items, 1)
	s.Equal(second, pending.Items[0].Reference)
	s.True(strings.HasPrefix(pending.Items[0].Reference, "TXN_"))
}
