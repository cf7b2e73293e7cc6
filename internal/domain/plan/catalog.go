package plan

import (
	"sort"
	"strings"

	"github.com/flexprice/paysync/internal/config"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

const (
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Catalog is a read-only lookup of plan prices
type Catalog interface {
	// Price returns the amount and currency to charge for a plan and cycle
	Price(planID string, cycle types.BillingCycle) (decimal.Decimal, string, error)
	Get(planID string) (*Plan, error)
	List() []*Plan
}

type catalog struct {
	plans map[string]*Plan
}

func defaultPlans() []*Plan {
	return []*Plan{
		{ID: PlanBasic, Name: "Basic", MonthlyPrice: decimal.NewFromInt(120), YearlyPrice: decimal.NewFromInt(1200), Currency: types.CurrencyGHS},
		{ID: PlanPro, Name: "Pro", MonthlyPrice: decimal.NewFromInt(250), YearlyPrice: decimal.NewFromInt(2500), Currency: types.CurrencyGHS},
		{ID: PlanEnterprise, Name: "Enterprise", MonthlyPrice: decimal.NewFromInt(500), YearlyPrice: decimal.NewFromInt(5000), Currency: types.CurrencyGHS},
	}
}

// NewCatalog builds the built-in catalog with the configured overrides applied
func NewCatalog(cfg *config.Configuration) (Catalog, error) {
	c := &catalog{plans: make(map[string]*Plan)}
	for _, p := range defaultPlans() {
		c.plans[p.ID] = p
	}

	if cfg == nil {
		return c, nil
	}

	for _, override := range cfg.Plans {
		id := strings.ToLower(strings.TrimSpace(override.ID))
		if id == "" {
			return nil, ierr.NewError("plan override without id").
				WithHint("Every plan override needs an id").
				Mark(ierr.ErrValidation)
		}

		monthly, err := decimal.NewFromString(override.MonthlyPrice)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("invalid monthly price for plan %s", override.ID).
				Mark(ierr.ErrValidation)
		}
		yearly, err := decimal.NewFromString(override.YearlyPrice)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("invalid yearly price for plan %s", override.ID).
				Mark(ierr.ErrValidation)
		}

		currency := types.NormalizeCurrency(override.Currency)
		if currency == "" {
			currency = types.NormalizeCurrency(cfg.Gateway.DefaultCurrency)
		}

		name := override.Name
		if name == "" {
			name = strings.ToUpper(id[:1]) + id[1:]
		}

		c.plans[id] = &Plan{
			ID:           id,
			Name:         name,
			MonthlyPrice: monthly,
			YearlyPrice:  yearly,
			Currency:     currency,
		}
	}

	return c, nil
}

func (c *catalog) Get(planID string) (*Plan, error) {
	p, ok := c.plans[strings.ToLower(strings.TrimSpace(planID))]
	if !ok {
		return nil, ierr.NewErrorf("plan %s not found", planID).
			WithHint("Unknown plan").
			WithReportableDetails(map[string]any{"plan_id": planID}).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (c *catalog) Price(planID string, cycle types.BillingCycle) (decimal.Decimal, string, error) {
	if err := cycle.Validate(); err != nil {
		return decimal.Zero, "", ierr.WithError(err).
			WithHint("Billing cycle must be monthly or yearly").
			Mark(ierr.ErrValidation)
	}

	p, err := c.Get(planID)
	if err != nil {
		return decimal.Zero, "", err
	}

	return p.PriceFor(cycle), p.Currency, nil
}

func (c *catalog) List() []*Plan {
	plans := make([]*Plan, 0, len(c.plans))
	for _, p := range c.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].MonthlyPrice.LessThan(plans[j].MonthlyPrice)
	})
	return plans
}
