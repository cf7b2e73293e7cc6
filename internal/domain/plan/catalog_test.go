package plan

import (
	"testing"

	"github.com/flexprice/paysync/internal/config"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogPrice(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	tests := []struct {
		plan     string
		cycle    types.BillingCycle
		expected string
	}{
		{PlanBasic, types.BillingCycleMonthly, "120"},
		{PlanBasic, types.BillingCycleYearly, "1200"},
		{PlanPro, types.BillingCycleMonthly, "250"},
		{PlanPro, types.BillingCycleYearly, "2500"},
		{PlanEnterprise, types.BillingCycleMonthly, "500"},
		{PlanEnterprise, types.BillingCycleYearly, "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.plan+"_"+string(tt.cycle), func(t *testing.T) {
			amount, currency, err := c.Price(tt.plan, tt.cycle)
			require.NoError(t, err)
			assert.True(t, amount.Equal(decimal.RequireFromString(tt.expected)))
			assert.Equal(t, types.CurrencyGHS, currency)
		})
	}
}

func TestCatalogUnknownPlan(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	_, _, err = c.Price("platinum", types.BillingCycleMonthly)
	assert.True(t, ierr.IsNotFound(err))

	_, _, err = c.Price(PlanBasic, types.BillingCycle("weekly"))
	assert.True(t, ierr.IsValidation(err))
}

func TestCatalogOverrides(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Plans = []config.PlanConfig{
		{ID: "Pro", MonthlyPrice: "300.50", YearlyPrice: "3000"},
		{ID: "starter", Name: "Starter", MonthlyPrice: "50", YearlyPrice: "500", Currency: "ngn"},
	}

	c, err := NewCatalog(cfg)
	require.NoError(t, err)

	amount, currency, err := c.Price(PlanPro, types.BillingCycleMonthly)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("300.50")))
	assert.Equal(t, types.CurrencyGHS, currency)

	amount, currency, err = c.Price("starter", types.BillingCycleYearly)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, types.CurrencyNGN, currency)

	plans := c.List()
	require.Len(t, plans, 4)
	assert.Equal(t, "starter", plans[0].ID)
}

func TestCatalogRejectsBadOverride(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Plans = []config.PlanConfig{{ID: "pro", MonthlyPrice: "abc", YearlyPrice: "1"}}

	_, err := NewCatalog(cfg)
	assert.True(t, ierr.IsValidation(err))
}
