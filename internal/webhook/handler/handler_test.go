package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/paysync/internal/config"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/testutil"
	"github.com/flexprice/paysync/internal/types"
	"github.com/flexprice/paysync/internal/webhook/payload"
	"github.com/stretchr/testify/suite"
)

const tenantEndpoint = "https://hooks.acme.test/paysync"

type staticBuilder struct{}

func (staticBuilder) BuildPayload(_ context.Context, eventType string, data json.RawMessage) (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{"event_type": eventType, "source": data})
}

type staticFactory struct{}

func (staticFactory) GetBuilder(eventType string) (payload.PayloadBuilder, error) {
	if !strings.HasPrefix(eventType, "payment.") {
		return nil, ierr.NewErrorf("no builder registered for event type: %s", eventType).
			Mark(ierr.ErrValidation)
	}
	return staticBuilder{}, nil
}

type HandlerSuite struct {
	suite.Suite
	cfg     *config.Configuration
	http    *testutil.MockHTTPClient
	handler *handler
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.cfg = config.GetDefaultConfig()
	s.cfg.Webhook.Enabled = true
	s.cfg.Webhook.Tenants = map[string]config.TenantWebhookConfig{
		types.DefaultTenantID: {
			Endpoint:       tenantEndpoint,
			Enabled:        true,
			Headers:        map[string]string{"Authorization": "Bearer whsec_acme"},
			ExcludedEvents: []string{types.WebhookEventPaymentFailed},
		},
		testutil.OtherTenantID: {
			Endpoint: "https://hooks.other.test/paysync",
			Enabled:  false,
		},
	}
	s.http = testutil.NewMockHTTPClient()

	h, err := NewHandler(testutil.NewInMemoryPubSub(), s.cfg, staticFactory{}, s.http, logger.NewNoopLogger())
	s.Require().NoError(err)
	s.handler = h.(*handler)
}

func (s *HandlerSuite) message(tenantID, eventName string) *message.Message {
	body, err := json.Marshal(types.WebhookEvent{
		ID:        "webhook_01",
		EventName: eventName,
		TenantID:  tenantID,
		Timestamp: time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
		Payload:   json.RawMessage(`{"reference":"TXN_1700000000_1234"}`),
	})
	s.Require().NoError(err)
	return message.NewMessage("msg-1", body)
}

func (s *HandlerSuite) TestDeliversToTenantEndpoint() {
	s.http.RegisterResponse(tenantEndpoint, testutil.MockResponse{StatusCode: http.StatusOK})

	err := s.handler.processMessage(s.message(types.DefaultTenantID, types.WebhookEventPaymentSuccess))
	s.Require().NoError(err)

	reqs := s.http.Requests()
	s.Require().Len(reqs, 1)
	s.Equal(http.MethodPost, reqs[0].Method)
	s.Equal(tenantEndpoint, reqs[0].URL)
	s.Equal("Bearer whsec_acme", reqs[0].Headers["Authorization"])
	s.Equal("application/json", reqs[0].Headers["Content-Type"])

	var delivery Delivery
	s.Require().NoError(json.Unmarshal(reqs[0].Body, &delivery))
	s.True(strings.HasPrefix(delivery.ID, types.SHORT_ID_PREFIX_DELIVERY))
	s.Equal(delivery.ID, reqs[0].Headers[DeliveryHeader])
	s.Equal(types.WebhookEventPaymentSuccess, delivery.EventName)
	s.Equal(types.DefaultTenantID, delivery.TenantID)
	s.JSONEq(`{"event_type":"payment.success","source":{"reference":"TXN_1700000000_1234"}}`, string(delivery.Data))

	// tenant headers are not modified by the delivery headers
	s.NotContains(s.cfg.Webhook.Tenants[types.DefaultTenantID].Headers, DeliveryHeader)
}

func (s *HandlerSuite) TestSkipsWithoutDelivery() {
	tests := []struct {
		name     string
		tenantID string
		event    string
	}{
		{"tenant without endpoint", "tenant_unconfigured", types.WebhookEventPaymentSuccess},
		{"tenant disabled", testutil.OtherTenantID, types.WebhookEventPaymentSuccess},
		{"event excluded", types.DefaultTenantID, types.WebhookEventPaymentFailed},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.NoError(s.handler.processMessage(s.message(tt.tenantID, tt.event)))
		})
	}
	s.Empty(s.http.Requests())
}

func (s *HandlerSuite) TestEndpointFailureIsReturned() {
	s.http.RegisterResponse(tenantEndpoint, testutil.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       []byte(`unavailable`),
	})

	err := s.handler.processMessage(s.message(types.DefaultTenantID, types.WebhookEventPaymentSuccess))
	s.Error(err)
}

func (s *HandlerSuite) TestUnknownEventIsNotDelivered() {
	err := s.handler.processMessage(s.message(types.DefaultTenantID, types.WebhookEventInvoicePaid))
	s.True(ierr.IsValidation(err))
	s.Empty(s.http.Requests())
}

func (s *HandlerSuite) TestMalformedMessageIsDropped() {
	s.NoError(s.handler.processMessage(message.NewMessage("msg-2", []byte(`not json`))))
	s.Empty(s.http.Requests())
}
