package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies and threeDecimalCurrencies follow ISO 4217 minor
// unit exponents; everything else rounds to two places.
var (
	zeroDecimalCurrencies  = map[string]struct{}{"JPY": {}, "KRW": {}, "VND": {}, "CLP": {}, "ISK": {}}
	threeDecimalCurrencies = map[string]struct{}{"BHD": {}, "IQD": {}, "JOD": {}, "KWD": {}, "OMR": {}, "TND": {}}
)

// Places returns the number of decimal places of a currency's minor unit.
func Places(currency string) int32 {
	c := strings.ToUpper(currency)
	if _, ok := zeroDecimalCurrencies[c]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[c]; ok {
		return 3
	}
	return 2
}

// MinorUnit returns the smallest representable amount of a currency.
func MinorUnit(currency string) decimal.Decimal {
	return decimal.New(1, -Places(currency))
}
