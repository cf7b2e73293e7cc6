package validator

import (
	"testing"

	"github.com/flexprice/paysync/internal/api/dto"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateRequest(t *testing.T) {
	NewValidator()

	ok := &dto.InitializePaymentRequest{
		Amount: decimal.RequireFromString("120.00"),
		Email:  "owner@acme.test",
	}
	assert.NoError(t, ValidateRequest(ok))

	tests := []struct {
		name string
		req  *dto.InitializePaymentRequest
	}{
		{"bad email", &dto.InitializePaymentRequest{Amount: decimal.NewFromInt(1), Email: "nope"}},
		{"zero amount", &dto.InitializePaymentRequest{Amount: decimal.Zero, Email: "owner@acme.test"}},
		{"sub minor amount", &dto.InitializePaymentRequest{Amount: decimal.RequireFromString("1.005"), Email: "owner@acme.test"}},
		{"unsupported currency", &dto.InitializePaymentRequest{Amount: decimal.NewFromInt(1), Email: "owner@acme.test", Currency: "XXX"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, ierr.IsValidation(ValidateRequest(tt.req)))
		})
	}
}
