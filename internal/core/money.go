package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in euro cents.
type Money struct {
	Cents int64
}

// MoneyFromAmount converts a backend decimal amount (euros) to cents, rounding half
// away from zero.
func MoneyFromAmount(euros float64) Money {
	if math.IsNaN(euros) || math.IsInf(euros, 0) {
		return Money{}
	}
	return Money{Cents: int64(math.Round(euros * 100))}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Returns an error for invalid formats,
// negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, ErrInvalidAmount
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// First two fractional digits, then half-up on the third
	var fracCents int64
	for i := 0; i < 2 && i < len(fracPart); i++ {
		d := int64(fracPart[i] - '0')
		if i == 0 {
			d *= 10
		}
		fracCents += d
	}
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		fracCents++
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Euros returns the euro value as a float64 for request bodies and display.
// Use cents for calculations.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// FormatEuros renders the amount as "€ 1.234,56".
func (m Money) FormatEuros() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s€ %s,%02d", sign, b.String(), cents%100)
}
