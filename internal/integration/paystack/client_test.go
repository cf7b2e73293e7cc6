package paystack_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/paysync/internal/config"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/httpclient"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/testutil"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	suite.Suite
	ctx    context.Context
	cfg    *config.Configuration
	http   *testutil.MockHTTPClient
	client paystack.PaystackClient
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = config.GetDefaultConfig()
	s.http = testutil.NewMockHTTPClient()
	s.client = paystack.NewClient(s.cfg, s.http, nil, logger.NewNoopLogger())
}

func (s *ClientSuite) TestInitializeTransaction() {
	s.http.RegisterJSONResponse("/transaction/initialize", http.StatusOK, map[string]interface{}{
		"status":  true,
		"message": "Authorization URL created",
		"data": map[string]interface{}{
			"authorization_url": "https://checkout.paystack.com/0peioxfhpn",
			"access_code":       "0peioxfhpn",
			"reference":         "TXN_1700000000_1234",
		},
	})

	result, err := s.client.InitializeTransaction(s.ctx, paystack.InitializeTransactionRequest{
		Email:       "owner@acme.test",
		AmountMinor: 12000,
		Reference:   "TXN_1700000000_1234",
		Currency:    "GHS",
	})
	s.Require().NoError(err)
	s.Equal("https://checkout.paystack.com/0peioxfhpn", result.AuthorizationURL)
	s.Equal("0peioxfhpn", result.AccessCode)

	reqs := s.http.Requests()
	s.Require().Len(reqs, 1)
	s.Equal(http.MethodPost, reqs[0].Method)
	s.Equal("Bearer sk_test_local", reqs[0].Headers["Authorization"])

	var sent map[string]interface{}
	s.Require().NoError(json.Unmarshal(reqs[0].Body, &sent))
	s.EqualValues(12000, sent["amount"])
	s.Equal("TXN_1700000000_1234", sent["reference"])
}

func (s *ClientSuite) TestInitializeTransactionErrors() {
	tests := []struct {
		name   string
		resp   testutil.MockResponse
		assert func(error) bool
	}{
		{
			name:   "status false is a rejection",
			resp:   testutil.MockResponse{StatusCode: http.StatusOK, Body: []byte(`{"status":false,"message":"Invalid amount"}`)},
			assert: ierr.IsGatewayRejected,
		},
		{
			name:   "4xx is a rejection",
			resp:   testutil.MockResponse{StatusCode: http.StatusBadRequest, Body: []byte(`{"status":false,"message":"Duplicate Transaction Reference"}`)},
			assert: ierr.IsGatewayRejected,
		},
		{
			name:   "5xx is unavailable",
			resp:   testutil.MockResponse{StatusCode: http.StatusBadGateway, Body: []byte(`upstream error`)},
			assert: ierr.IsGatewayUnavailable,
		},
		{
			name:   "transport failure is unavailable",
			resp:   testutil.MockResponse{Err: errors.New("connection refused")},
			assert: ierr.IsGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.http.Clear()
			s.http.RegisterResponse("/transaction/initialize", tt.resp)

			_, err := s.client.InitializeTransaction(s.ctx, paystack.InitializeTransactionRequest{
				Email:       "owner@acme.test",
				AmountMinor: 100,
				Reference:   "TXN_1",
			})
			s.Error(err)
			s.True(tt.assert(err), "unexpected error class: %v", err)
		})
	}
}

func (s *ClientSuite) TestFetchTransactionStatus() {
	s.http.RegisterJSONResponse("/transaction/verify/TXN_1700000000_1234", http.StatusOK, map[string]interface{}{
		"status":  true,
		"message": "Verification successful",
		"data": map[string]interface{}{
			"id":        4099260516,
			"status":    "success",
			"reference": "TXN_1700000000_1234",
			"amount":    12000,
			"currency":  "GHS",
			"paid_at":   "2023-11-14T22:13:20.000Z",
			"customer":  map[string]interface{}{"id": 1, "email": "owner@acme.test"},
		},
	})

	outcome, err := s.client.FetchTransactionStatus(s.ctx, "TXN_1700000000_1234")
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusSuccess, outcome.Status)
	s.Equal("success", outcome.GatewayStatus)
	s.True(outcome.Amount.Equal(decimal.RequireFromString("120.00")))
	s.Equal("GHS", outcome.Currency)
	s.Equal("4099260516", outcome.GatewayReference)
	s.Require().NotNil(outcome.PaidAt)
	s.Equal(int64(1700000000), outcome.PaidAt.Unix())
	s.NotEmpty(outcome.RawPayload)
	s.Equal(http.MethodGet, s.http.Requests()[0].Method)
}

func (s *ClientSuite) TestFetchTransactionStatusNotFound() {
	s.http.RegisterResponse("/transaction/verify/TXN_missing", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"status":false,"message":"Transaction reference not found"}`),
	})

	_, err := s.client.FetchTransactionStatus(s.ctx, "TXN_missing")
	s.True(ierr.IsTransactionNotFound(err))

	_, err = s.client.FetchTransactionStatus(s.ctx, "TXN_unregistered")
	s.True(ierr.IsTransactionNotFound(err))
}

func (s *ClientSuite) TestFetchTransactionStatusUnavailable() {
	s.http.RegisterResponse("/transaction/verify/TXN_1", testutil.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       []byte(`{"status":false,"message":"Service unavailable"}`),
	})

	_, err := s.client.FetchTransactionStatus(s.ctx, "TXN_1")
	s.True(ierr.IsGatewayUnavailable(err))
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		gateway string
		want    types.PaymentStatus
	}{
		{"success", types.PaymentStatusSuccess},
		{"SUCCESS", types.PaymentStatusSuccess},
		{"failed", types.PaymentStatusFailed},
		{"reversed", types.PaymentStatusFailed},
		{"abandoned", types.PaymentStatusPending},
		{"ongoing", types.PaymentStatusPending},
		{"pending", types.PaymentStatusPending},
		{"processing", types.PaymentStatusPending},
		{"queued", types.PaymentStatusPending},
		{"", types.PaymentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			assert.Equal(t, tt.want, paystack.MapStatus(tt.gateway))
		})
	}
}

func TestClientTimeoutIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.GetDefaultConfig()
	cfg.Gateway.BaseURL = server.URL
	cfg.Gateway.Timeout = 50 * time.Millisecond

	log := logger.NewNoopLogger()
	client := paystack.NewClient(cfg, httpclient.NewDefaultClient(cfg, log), nil, log)

	start := time.Now()
	_, err := client.FetchTransactionStatus(context.Background(), "TXN_slow")
	require.Error(t, err)
	assert.True(t, ierr.IsGatewayUnavailable(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestClientAgainstServer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"id":7,"status":"abandoned","reference":"TXN_2","amount":5050,"currency":"ngn","paid_at":null}}`))
	}))
	defer server.Close()

	cfg := config.GetDefaultConfig()
	cfg.Gateway.BaseURL = server.URL + "/"

	log := logger.NewNoopLogger()
	client := paystack.NewClient(cfg, httpclient.NewDefaultClient(cfg, log), nil, log)

	outcome, err := client.FetchTransactionStatus(context.Background(), "TXN_2")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk_test_local", gotAuth)
	assert.Equal(t, types.PaymentStatusPending, outcome.Status)
	assert.False(t, outcome.IsTerminal())
	assert.Equal(t, "NGN", outcome.Currency)
	assert.Equal(t, "50.5", outcome.Amount.String())
	assert.Nil(t, outcome.PaidAt)
}
