package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultCurrency is used when a subscription value carries no currency.
const DefaultCurrency = "brl"

// Money is an amount in the smallest unit of its currency.
// Arithmetic is integer-only.
//
// Examples:
//   - BRL(2990) = R$29.90
//   - USD(4900) = $49.00
type Money struct {
	Amount   int64  `json:"amount"`   // centavos, cents, ...
	Currency string `json:"currency"` // ISO 4217, lowercase
}

// BRL creates a Money value in Brazilian reais (centavos).
func BRL(centavos int64) Money { return Money{Amount: centavos, Currency: "brl"} }

// USD creates a Money value in US dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// Zero returns a zero amount in currency.
func Zero(currency string) Money {
	return Money{Currency: normalizeCurrency(currency)}
}

// Add returns m + other. Panics if the currencies differ.
func (m Money) Add(other Money) Money {
	m.mustMatch(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract returns m - other. Panics if the currencies differ.
func (m Money) Subtract(other Money) Money {
	m.mustMatch(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Multiply scales the amount by qty.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal reports whether amount and currency both match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan compares two amounts. Panics if the currencies differ.
func (m Money) LessThan(other Money) bool {
	m.mustMatch(other)
	return m.Amount < other.Amount
}

// Normalize fills an empty currency with DefaultCurrency.
func (m Money) Normalize() Money {
	if m.Currency == "" {
		m.Currency = DefaultCurrency
	}
	m.Currency = normalizeCurrency(m.Currency)
	return m
}

// FormatMajor renders the amount in major units without a symbol,
// e.g. "29.90" for BRL(2990) and "100" for a zero-decimal currency.
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return fmt.Sprintf("%d", m.Amount)
	}

	divisor := int64(1)
	for range decimals {
		divisor *= 10
	}

	abs := m.Amount
	sign := ""
	if abs < 0 {
		abs, sign = -abs, "-"
	}

	return fmt.Sprintf("%s%d.%0*d", sign, abs/divisor, decimals, abs%divisor)
}

// String renders the amount with its currency symbol, e.g. "R$29.90".
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON adds a display field next to amount and currency.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON reads amount and currency; display is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = raw.Amount
	m.Currency = raw.Currency
	return nil
}

// Sum adds up values. All must share a currency; an empty call returns
// zero in DefaultCurrency.
func Sum(values ...Money) Money {
	if len(values) == 0 {
		return Zero(DefaultCurrency)
	}

	total := values[0]
	for _, v := range values[1:] {
		total = total.Add(v)
	}
	return total
}

func (m Money) mustMatch(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

func normalizeCurrency(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

var currencySymbols = map[string]string{
	"brl": "R$",
	"usd": "$",
	"eur": "€",
	"jpy": "¥",
}

func currencySymbol(currency string) string {
	if sym, ok := currencySymbols[normalizeCurrency(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of minor-unit digits for currency.
func currencyDecimals(currency string) int {
	switch normalizeCurrency(currency) {
	case "jpy", "krw", "clp", "pyg":
		return 0
	default:
		return 2
	}
}
