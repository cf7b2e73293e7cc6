package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/paysync/internal/api/dto"
	v1 "github.com/flexprice/paysync/internal/api/v1"
	"github.com/flexprice/paysync/internal/auth"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/integration/paystack/webhook"
	"github.com/flexprice/paysync/internal/service"
	"github.com/flexprice/paysync/internal/testutil"
	"github.com/flexprice/paysync/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) PingContext(context.Context) error {
	return p.err
}

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
	pinger *fakePinger
	token  string
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	s.BaseServiceTestSuite.SetupSuite()
	gin.SetMode(gin.TestMode)
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	params := service.ServiceParams{
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
	reconciler := service.NewReconciliationService(params)
	log := s.GetLogger()

	s.pinger = &fakePinger{}
	s.router = NewRouter(Handlers{
		Health:       v1.NewHealthHandler(s.pinger, log),
		Payment:      v1.NewPaymentHandler(service.NewPaymentService(params, reconciler), log),
		Subscription: v1.NewSubscriptionHandler(service.NewSubscriptionService(params, reconciler), log),
		Invoice:      v1.NewInvoiceHandler(service.NewInvoiceService(params), log),
		Webhook:      v1.NewWebhookHandler(service.NewGatewayWebhookService(params, reconciler), s.GetVerifier().Header(), log),
	}, s.GetConfig(), auth.NewProvider(s.GetConfig()), log)

	var err error
	s.token, err = auth.GenerateToken(s.GetConfig().Auth.Secret, auth.Claims{
		UserID:   types.DefaultUserID,
		TenantID: types.DefaultTenantID,
		Email:    testutil.TestUserEmail,
	}, time.Hour)
	s.Require().NoError(err)
}

func (s *RouterSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(types.HeaderAuthorization, "Bearer "+s.token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) deliverWebhook(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(s.GetVerifier().Header(), signature)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) sign(body []byte) string {
	return hex.EncodeToString(webhook.Sign([]byte(s.GetConfig().Gateway.SecretKey), body))
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, out interface{}) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *RouterSuite) initialize() *dto.InitializePaymentResponse {
	s.StubInitialize("0peioxfhpn")
	w := s.do(http.MethodPost, "/v1/payments/initialize", map[string]interface{}{
		"amount": "120.00",
		"email":  testutil.TestUserEmail,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp dto.InitializePaymentResponse
	s.decode(w, &resp)
	return &resp
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok","database":"ok"}`, w.Body.String())

	s.pinger.err = errors.New("connection refused")
	w = s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *RouterSuite) TestTenantRoutesRequireToken() {
	for _, path := range []string{"/v1/payments", "/v1/subscriptions/current", "/v1/invoices"} {
		s.Run(path, func() {
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			s.Equal(http.StatusUnauthorized, w.Code)
		})
	}
}

func (s *RouterSuite) TestInitializeAndVerify() {
	init := s.initialize()
	s.Equal("https://checkout.paystack.com/0peioxfhpn", init.AuthorizationURL)
	s.Regexp(`^TXN_\d+_\d{4}$`, init.Reference)

	s.StubVerify(init.Reference, paystack.StatusSuccess, 12000, types.CurrencyGHS)
	w := s.do(http.MethodGet, "/v1/payments/verify/"+init.Reference, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var verified dto.VerifyPaymentResponse
	s.decode(w, &verified)
	s.True(verified.Applied)
	s.Equal(types.PaymentStatusSuccess, verified.Payment.Status)
	s.Require().NotNil(verified.Invoice)

	w = s.do(http.MethodGet, "/v1/payments/"+init.Reference, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var p dto.PaymentResponse
	s.decode(w, &p)
	s.Equal(types.PaymentStatusSuccess, p.Status)
	s.Equal("GH₵", p.CurrencySymbol)

	w = s.do(http.MethodGet, "/v1/invoices/"+verified.Invoice.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var inv dto.InvoiceResponse
	s.decode(w, &inv)
	s.Equal("GH₵", inv.CurrencySymbol)

	w = s.do(http.MethodGet, "/v1/invoices?status=paid", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var invoices dto.ListInvoicesResponse
	s.decode(w, &invoices)
	s.Len(invoices.Items, 1)
}

func (s *RouterSuite) TestInitializeValidation() {
	w := s.do(http.MethodPost, "/v1/payments/initialize", map[string]interface{}{
		"amount": "-1",
		"email":  testutil.TestUserEmail,
	})
	s.Equal(http.StatusBadRequest, w.Code)

	var resp ierr.ErrorResponse
	s.decode(w, &resp)
	s.Equal(ierr.ErrCodeValidation, resp.Error.Code)
	s.Empty(s.GetHTTPClient().Requests())
}

func (s *RouterSuite) TestVerifyGatewayUnavailable() {
	init := s.initialize()
	s.GetHTTPClient().RegisterResponse("/transaction/verify/"+init.Reference, testutil.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
	})

	w := s.do(http.MethodGet, "/v1/payments/verify/"+init.Reference, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *RouterSuite) TestUnknownPayment() {
	w := s.do(http.MethodGet, "/v1/payments/TXN_0_0000", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/v1/payments?status=refunded", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestPaystackWebhook() {
	init := s.initialize()
	body := s.ChargeSuccessBody(init.Reference, 12000, types.CurrencyGHS)

	w := s.deliverWebhook(body, "deadbeef")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.deliverWebhook([]byte(`{"event":"charge.success","data":{}}`), s.sign([]byte(`{"event":"charge.success","data":{}}`)))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.deliverWebhook(body, s.sign(body))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var ack dto.WebhookAckResponse
	s.decode(w, &ack)
	s.True(ack.Received)
	s.Equal(dto.WebhookStatusProcessed, ack.Status)

	w = s.deliverWebhook(body, s.sign(body))
	s.Require().Equal(http.StatusOK, w.Code)
	s.decode(w, &ack)
	s.Equal(dto.WebhookStatusDuplicate, ack.Status)

	w = s.do(http.MethodGet, "/v1/payments/"+init.Reference, nil)
	var p dto.PaymentResponse
	s.decode(w, &p)
	s.Equal(types.PaymentStatusSuccess, p.Status)
}

func (s *RouterSuite) TestPaystackWebhookAsksForRedeliveryOnStorageFailure() {
	init := s.initialize()
	body := s.ChargeSuccessBody(init.Reference, 12000, types.CurrencyGHS)
	s.GetDB().InjectCommitFailures(100, nil)

	w := s.deliverWebhook(body, s.sign(body))
	s.Equal(http.StatusInternalServerError, w.Code)

	var ack dto.WebhookAckResponse
	s.decode(w, &ack)
	s.False(ack.Received)
}

func (s *RouterSuite) TestUpgradeSubscription() {
	w := s.do(http.MethodGet, "/v1/subscriptions/current", nil)
	s.Equal(http.StatusNotFound, w.Code)

	s.StubInitialize("0peioxfhpn")
	w = s.do(http.MethodPost, "/v1/subscriptions/upgrade", dto.UpgradeSubscriptionRequest{
		PlanID:       "pro",
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.InitializePaymentResponse
	s.decode(w, &resp)
	s.NotEmpty(resp.SubscriptionID)

	s.StubVerify(resp.Reference, paystack.StatusSuccess, 25000, types.CurrencyGHS)
	w = s.do(http.MethodGet, "/v1/payments/verify/"+resp.Reference, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/v1/subscriptions/current", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var current dto.SubscriptionResponse
	s.decode(w, &current)
	s.Equal(resp.SubscriptionID, current.ID)
	s.Equal(types.SubscriptionStatusActive, current.Status)

	w = s.do(http.MethodGet, "/v1/subscriptions/"+resp.SubscriptionID, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/v1/subscriptions/upgrade", map[string]interface{}{
		"plan_id":       "platinum",
		"billing_cycle": "monthly",
	})
	s.Equal(http.StatusNotFound, w.Code)
}
