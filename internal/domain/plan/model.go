package plan

import (
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is a purchasable tier. Plans are static configuration, not stored rows.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
	Currency     string          `json:"currency"`
}

// PriceFor returns the plan price for a billing cycle
func (p *Plan) PriceFor(cycle types.BillingCycle) decimal.Decimal {
	if cycle == types.BillingCycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}
