package webhook

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/flexprice/paysync/internal/config"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chargeSuccessBody = `{"event":"charge.success","data":{"id":302961,"status":"success","reference":"TXN_1700000000_1234","amount":12000,"currency":"GHS","paid_at":"2023-11-14T22:13:20.000Z","customer":{"id":84312,"email":"owner@acme.test"}}}`

func sign(secret, body string) string {
	return hex.EncodeToString(Sign([]byte(secret), []byte(body)))
}

func TestVerify(t *testing.T) {
	cfg := config.GetDefaultConfig()
	v := NewVerifier(cfg)
	body := []byte(chargeSuccessBody)

	tests := []struct {
		name      string
		body      []byte
		signature string
		want      bool
	}{
		{"valid", body, sign(cfg.Gateway.SecretKey, chargeSuccessBody), true},
		{"upper case hex", body, strings.ToUpper(sign(cfg.Gateway.SecretKey, chargeSuccessBody)), true},
		{"wrong secret", body, sign("sk_test_other", chargeSuccessBody), false},
		{"tampered body", []byte(chargeSuccessBody + " "), sign(cfg.Gateway.SecretKey, chargeSuccessBody), false},
		{"empty signature", body, "", false},
		{"not hex", body, "zz-not-hex", false},
		{"truncated", body, sign(cfg.Gateway.SecretKey, chargeSuccessBody)[:64], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Verify(tt.body, tt.signature))
		})
	}
}

func TestVerifyWithoutSecret(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Gateway.SecretKey = ""
	v := NewVerifier(cfg)

	assert.False(t, v.Verify([]byte(chargeSuccessBody), sign("", chargeSuccessBody)))
}

func TestParseChargeSuccess(t *testing.T) {
	event, err := Parse([]byte(chargeSuccessBody))
	require.NoError(t, err)

	charge, ok := event.(*ChargeSuccess)
	require.True(t, ok)
	assert.Equal(t, EventChargeSuccess, charge.EventType())
	assert.Equal(t, "TXN_1700000000_1234", charge.Reference())
	assert.Equal(t, "owner@acme.test", charge.Data.Customer.Email)

	outcome := charge.Outcome()
	assert.Equal(t, types.PaymentStatusSuccess, outcome.Status)
	assert.Equal(t, "120", outcome.Amount.String())
	assert.Equal(t, "302961", outcome.GatewayReference)
	require.NotNil(t, outcome.PaidAt)
	assert.Equal(t, int64(1700000000), outcome.PaidAt.Unix())
	assert.JSONEq(t, `{"id":302961,"status":"success","reference":"TXN_1700000000_1234","amount":12000,"currency":"GHS","paid_at":"2023-11-14T22:13:20.000Z","customer":{"id":84312,"email":"owner@acme.test"}}`, string(outcome.RawPayload))
}

func TestParseUnknownEvents(t *testing.T) {
	for _, name := range []string{"subscription.create", "subscription.disable", "transfer.success", "invoice.create"} {
		t.Run(name, func(t *testing.T) {
			event, err := Parse([]byte(`{"event":"` + name + `","data":{"code":"SUB_x"}}`))
			require.NoError(t, err)

			unknown, ok := event.(*UnknownEvent)
			require.True(t, ok)
			assert.Equal(t, PaystackEventType(name), unknown.EventType())
		})
	}
}

func TestParseRejectsMalformedPayloads(t *testing.T) {
	for name, body := range map[string]string{
		"not json":          `not json`,
		"missing event":     `{"data":{}}`,
		"missing reference": `{"event":"charge.success","data":{"status":"success","amount":100}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.True(t, ierr.IsValidation(err))
		})
	}
}
