package types

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Currencies the gateway settles in. Every one of them has two minor digits.
const (
	CurrencyGHS = "GHS"
	CurrencyNGN = "NGN"
	CurrencyZAR = "ZAR"
	CurrencyKES = "KES"
	CurrencyUSD = "USD"

	DefaultCurrency = CurrencyGHS

	minorUnitExponent = 2
)

var supportedCurrencies = []string{
	CurrencyGHS,
	CurrencyNGN,
	CurrencyZAR,
	CurrencyKES,
	CurrencyUSD,
}

// CURRENCY_CODES_SYMBOLS maps ISO currency codes to their display symbols
var CURRENCY_CODES_SYMBOLS = map[string]string{
	CurrencyGHS: "GH₵",
	CurrencyNGN: "₦",
	CurrencyZAR: "R",
	CurrencyKES: "KSh",
	CurrencyUSD: "$",
}

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[strings.ToUpper(code)]; ok {
		return symbol
	}
	return code
}

// NormalizeCurrency upper-cases and trims a currency code
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidateCurrency(code string) error {
	if !lo.Contains(supportedCurrencies, NormalizeCurrency(code)) {
		return fmt.Errorf("unsupported currency: %s", code)
	}
	return nil
}

// ToMinorUnits converts a major-unit amount into the integer minor units the
// gateway expects. Amounts with sub-minor precision are rejected rather than
// rounded.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(minorUnitExponent)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), minorUnitExponent)
	}
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s is out of range", amount.String())
	}
	return shifted.IntPart(), nil
}

// FromMinorUnits converts gateway minor units back to a major-unit amount
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorUnitExponent)
}
