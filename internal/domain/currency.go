package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code in lower case, as the gateway expects it
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
	CurrencyGBP Currency = "gbp"
	CurrencyINR Currency = "inr"
	CurrencyCAD Currency = "cad"
	CurrencyAUD Currency = "aud"
	CurrencyJPY Currency = "jpy"
)

// minor unit exponent per supported currency
var supportedCurrencies = map[Currency]int32{
	CurrencyUSD: 2,
	CurrencyEUR: 2,
	CurrencyGBP: 2,
	CurrencyINR: 2,
	CurrencyCAD: 2,
	CurrencyAUD: 2,
	CurrencyJPY: 0,
}

// ParseCurrency normalizes s and checks it against the supported set
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	_, ok := supportedCurrencies[c]
	return c, ok
}

// Supported reports whether c is accepted for donations
func (c Currency) Supported() bool {
	_, ok := supportedCurrencies[c]
	return ok
}

// MinorUnits returns the number of decimal places of the currency's minor unit
func (c Currency) MinorUnits() int32 {
	return supportedCurrencies[c]
}

// ToMinor converts amount to an integer count of minor units, truncating excess precision
func (c Currency) ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(c.MinorUnits()).IntPart()
}

// Fits reports whether amount has no more decimal places than the minor unit allows
func (c Currency) Fits(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(c.MinorUnits()))
}
