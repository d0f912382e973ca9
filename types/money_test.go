package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"BRL", BRL(2990), 2990, "brl", "R$29.90"},
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"EUR", EUR(1999), 1999, "eur", "€19.99"},
		{"Zero", Zero("BRL"), 0, "brl", "R$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if got := tt.money.String(); got != tt.display {
				t.Errorf("String: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return BRL(1000).Add(BRL(990)) }, BRL(1990)},
		{"Subtract", func() Money { return BRL(2990).Subtract(BRL(990)) }, BRL(2000)},
		{"Subtract to negative", func() Money { return BRL(100).Subtract(BRL(200)) }, BRL(-100)},
		{"Multiply", func() Money { return BRL(2990).Multiply(3) }, BRL(8970)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op(); !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for currency mismatch")
		}
	}()

	_ = BRL(100).Add(USD(100))
}

func TestMoneyNormalize(t *testing.T) {
	tests := []struct {
		in   Money
		want Money
	}{
		{Money{Amount: 2990}, BRL(2990)},
		{Money{Amount: 100, Currency: " USD "}, USD(100)},
		{EUR(5), EUR(5)},
	}

	for _, tt := range tests {
		if got := tt.in.Normalize(); !got.Equal(tt.want) {
			t.Errorf("Normalize(%+v): got %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{BRL(2990), "29.90"},
		{BRL(1), "0.01"},
		{BRL(0), "0.00"},
		{BRL(-2990), "-29.90"},
		{Money{Amount: 100, Currency: "jpy"}, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(BRL(2990))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	expected := `{"amount":2990,"currency":"brl","display":"R$29.90"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !back.Equal(BRL(2990)) {
		t.Errorf("Unmarshal: got %+v", back)
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Money
		expected Money
	}{
		{"Empty", nil, Zero(DefaultCurrency)},
		{"Single", []Money{BRL(100)}, BRL(100)},
		{"Multiple", []Money{BRL(100), BRL(200), BRL(300)}, BRL(600)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sum(tt.values...); !got.Equal(tt.expected) {
				t.Errorf("Sum: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCurrencySymbols(t *testing.T) {
	tests := []struct {
		currency string
		symbol   string
	}{
		{"brl", "R$"},
		{"usd", "$"},
		{"eur", "€"},
		{"unknown", "UNKNOWN "},
	}

	for _, tt := range tests {
		if got := currencySymbol(tt.currency); got != tt.symbol {
			t.Errorf("symbol for %s: got %s, want %s", tt.currency, got, tt.symbol)
		}
	}
}

func BenchmarkMoneyString(b *testing.B) {
	m := BRL(2990)
	for b.Loop() {
		_ = m.String()
	}
}
